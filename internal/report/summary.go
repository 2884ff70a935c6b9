package report

import (
	"arena/internal/session"
)

// VariantSummary aggregates one variant's results.
type VariantSummary struct {
	VariantID    string
	Name         string
	Wins         int
	WinRate      float64
	AverageScore float64
	Rated        int
	AmazingCount int
}

// Summary aggregates a session.
type Summary struct {
	Total    int
	Ties     int
	TieRate  float64
	Variants []VariantSummary
}

// Summarize computes per-variant win counts, win rates, average scores, and
// "amazing" counts, plus the global tie rate. Rates are fractions of all
// results; averages cover only the results that rated the variant.
func Summarize(variants []session.Variant, results []session.VoteResult) Summary {
	summary := Summary{Total: len(results), Variants: make([]VariantSummary, len(variants))}
	index := make(map[string]int, len(variants))
	scoreSums := make([]float64, len(variants))
	for i, v := range variants {
		index[v.ID] = i
		summary.Variants[i] = VariantSummary{VariantID: v.ID, Name: v.Name}
	}
	for _, r := range results {
		if r.IsTie() {
			summary.Ties++
		} else if i, ok := index[r.Winner]; ok {
			summary.Variants[i].Wins++
		}
		for id, rating := range r.Ratings {
			i, ok := index[id]
			if !ok {
				continue
			}
			scoreSums[i] += rating.Score
			summary.Variants[i].Rated++
			if rating.Amazing {
				summary.Variants[i].AmazingCount++
			}
		}
	}
	if summary.Total > 0 {
		summary.TieRate = float64(summary.Ties) / float64(summary.Total)
	}
	for i := range summary.Variants {
		vs := &summary.Variants[i]
		if summary.Total > 0 {
			vs.WinRate = float64(vs.Wins) / float64(summary.Total)
		}
		if vs.Rated > 0 {
			vs.AverageScore = scoreSums[i] / float64(vs.Rated)
		}
	}
	return summary
}
