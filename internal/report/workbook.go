package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"arena/internal/session"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// WriteWorkbook writes an xlsx workbook with a Results sheet holding one row
// per vote and a Summary sheet holding the per-variant aggregates.
func WriteWorkbook(w io.Writer, variants []session.Variant, results []session.VoteResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("name results sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return fmt.Errorf("percent style: %w", err)
	}

	if err := writeResults(f, header, variants, results); err != nil {
		return err
	}
	if err := writeSummary(f, header, percent, Summarize(variants, results)); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func resultsHeader(variants []session.Variant) []any {
	row := []any{"Case", "Timestamp", "Winner", "Duration (s)", "Representative"}
	for _, v := range variants {
		row = append(row, v.Name+" Score", v.Name+" Amazing", v.Name+" Note")
	}
	return row
}

func winnerName(variants []session.Variant, winner string) string {
	if winner == session.Tie {
		return "Tie"
	}
	for _, v := range variants {
		if v.ID == winner {
			return v.Name
		}
	}
	return winner
}

func writeResults(f *excelize.File, header int, variants []session.Variant, results []session.VoteResult) error {
	headerRow := resultsHeader(variants)
	if err := f.SetSheetRow(resultsSheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headerRow), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", last, header); err != nil {
		return fmt.Errorf("style results header: %w", err)
	}
	for i, r := range results {
		row := []any{
			r.CaseName,
			r.Timestamp.UTC().Format(time.RFC3339),
			winnerName(variants, r.Winner),
			nil,
			yesNo(r.Representative),
		}
		if r.Duration > 0 {
			row[3] = r.Duration
		}
		for _, v := range variants {
			rating, ok := r.Ratings[v.ID]
			if !ok {
				row = append(row, nil, nil, nil)
				continue
			}
			row = append(row, rating.Score, yesNo(rating.Amazing), rating.Note)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return fmt.Errorf("write result row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(resultsSheet, "A", "B", 24)
}

func writeSummary(f *excelize.File, header, percent int, summary Summary) error {
	headerRow := []any{"Variant", "Wins", "Win Rate", "Average Score", "Amazing"}
	if err := f.SetSheetRow(summarySheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "A1", "E1", header); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	for i, vs := range summary.Variants {
		row := []any{vs.Name, vs.Wins, vs.WinRate, vs.AverageScore, vs.AmazingCount}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	rateFrom, _ := excelize.CoordinatesToCellName(3, 2)
	rateTo, _ := excelize.CoordinatesToCellName(3, len(summary.Variants)+1)
	if len(summary.Variants) > 0 {
		if err := f.SetCellStyle(summarySheet, rateFrom, rateTo, percent); err != nil {
			return fmt.Errorf("style win rates: %w", err)
		}
	}

	footer := len(summary.Variants) + 3
	rows := [][]any{
		{"Total Cases", summary.Total},
		{"Ties", summary.Ties},
		{"Tie Rate", summary.TieRate},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, footer+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary totals: %w", err)
		}
	}
	tieRate, _ := excelize.CoordinatesToCellName(2, footer+2)
	if err := f.SetCellStyle(summarySheet, tieRate, tieRate, percent); err != nil {
		return fmt.Errorf("style tie rate: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "A", 20)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
