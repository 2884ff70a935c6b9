package matcher

import (
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"arena/internal/session"
)

// Reason explains why a file did not become part of a case.
type Reason string

const (
	ReasonNoMatch   Reason = "no_match"
	ReasonAmbiguous Reason = "ambiguous"
	// ReasonShadowed marks extra files that lost to the first file under
	// PolicyFirst.
	ReasonShadowed Reason = "shadowed"
)

// Suggestion is a near-miss base name held by another variant.
type Suggestion struct {
	VariantID string  `json:"variant_id"`
	Key       string  `json:"key"`
	Score     float64 `json:"score"`
}

// Entry describes one file left out of the case list.
type Entry struct {
	VariantID   string       `json:"variant_id"`
	Name        string       `json:"name"`
	Key         string       `json:"key"`
	Reason      Reason       `json:"reason"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Unmatched reports every selected file that did not contribute a source to
// cases. Files whose key is missing from another variant carry the closest
// keys of the variants that lack it, scored with Jaro-Winkler and filtered by
// threshold.
func Unmatched(variants []session.Variant, files Files, cases []session.TestCase, opts Options, threshold float64) []Entry {
	used := make(map[string]map[string]struct{}, len(variants))
	for _, tc := range cases {
		for _, src := range tc.Sources {
			if used[src.VariantID] == nil {
				used[src.VariantID] = make(map[string]struct{})
			}
			used[src.VariantID][src.Location()] = struct{}{}
		}
	}
	matched := make(map[string]struct{}, len(cases))
	for _, tc := range cases {
		matched[tc.ID] = struct{}{}
	}

	keysByVariant := make(map[string]map[string]int, len(variants))
	for _, v := range variants {
		counts := make(map[string]int)
		for _, name := range files[v.ID] {
			counts[opts.Key(name)]++
		}
		keysByVariant[v.ID] = counts
	}

	var out []Entry
	for _, v := range variants {
		for _, name := range files[v.ID] {
			if _, ok := used[v.ID][name]; ok {
				continue
			}
			key := opts.Key(name)
			entry := Entry{VariantID: v.ID, Name: name, Key: key}
			switch {
			case keysByVariant[v.ID][key] > 1 && opts.Duplicates == PolicyReject:
				entry.Reason = ReasonAmbiguous
			case isMatchedKey(matched, key):
				entry.Reason = ReasonShadowed
			case ambiguousElsewhere(key, variants, keysByVariant) && opts.Duplicates == PolicyReject:
				entry.Reason = ReasonAmbiguous
			default:
				entry.Reason = ReasonNoMatch
				entry.Suggestions = suggest(key, v.ID, variants, keysByVariant, threshold)
			}
			out = append(out, entry)
		}
	}
	return out
}

func isMatchedKey(matched map[string]struct{}, key string) bool {
	_, ok := matched[key]
	return ok
}

func ambiguousElsewhere(key string, variants []session.Variant, keys map[string]map[string]int) bool {
	for _, v := range variants {
		if keys[v.ID][key] == 0 {
			return false
		}
	}
	return true
}

func suggest(key, owner string, variants []session.Variant, keys map[string]map[string]int, threshold float64) []Suggestion {
	metric := metrics.NewJaroWinkler()
	var out []Suggestion
	for _, v := range variants {
		if v.ID == owner || keys[v.ID][key] > 0 {
			continue
		}
		var best Suggestion
		for candidate := range keys[v.ID] {
			score := strutil.Similarity(key, candidate, metric)
			if score < threshold {
				continue
			}
			if score > best.Score || (score == best.Score && candidate < best.Key) {
				best = Suggestion{VariantID: v.ID, Key: candidate, Score: score}
			}
		}
		if best.Key != "" {
			out = append(out, best)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
