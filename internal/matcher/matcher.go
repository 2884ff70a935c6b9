package matcher

import (
	"slices"
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"

	"arena/internal/media"
	"arena/internal/session"
)

// DuplicatePolicy decides how repeated base names within one variant resolve.
type DuplicatePolicy string

const (
	// PolicyFirst picks the variant's first file for the base name.
	PolicyFirst DuplicatePolicy = "first"
	// PolicyReject drops base names that are ambiguous in any variant.
	PolicyReject DuplicatePolicy = "reject"
)

// Options tunes matching.
type Options struct {
	Duplicates DuplicatePolicy
	// Normalize applies Unicode NFC to base names before comparing them.
	Normalize bool
}

// Files maps a variant identifier to its selected files (paths or URLs) in
// listing order.
type Files map[string][]string

// Key returns the matching key for name under opts.
func (o Options) Key(name string) string {
	base := media.BaseName(name)
	if o.Normalize {
		return norm.NFC.String(base)
	}
	return base
}

// Match computes the maximal set of cases where every variant has a file with
// the same key. Variants without files yield no cases.
func Match(variants []session.Variant, files Files, opts Options) []session.TestCase {
	if len(variants) == 0 {
		return nil
	}
	index := make([]map[string][]string, len(variants))
	for i, v := range variants {
		index[i] = groupByKey(files[v.ID], opts)
	}

	var keys []string
	seen := make(map[string]struct{})
	for _, name := range files[variants[0].ID] {
		key := opts.Key(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if qualifies(key, index, opts) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	cases := make([]session.TestCase, 0, len(keys))
	for _, key := range keys {
		tc := session.TestCase{ID: key, Name: key, Sources: make([]media.Source, 0, len(variants))}
		for i, v := range variants {
			tc.Sources = append(tc.Sources, sourceFor(v.ID, index[i][key][0]))
		}
		cases = append(cases, tc)
	}
	return cases
}

// Ready reports whether cases can be reviewed: at least one case exists and
// every variant has at least one file.
func Ready(variants []session.Variant, files Files, cases []session.TestCase) bool {
	if len(cases) == 0 || len(variants) == 0 {
		return false
	}
	for _, v := range variants {
		if len(files[v.ID]) == 0 {
			return false
		}
	}
	return true
}

func qualifies(key string, index []map[string][]string, opts Options) bool {
	for _, byKey := range index {
		matches := byKey[key]
		if len(matches) == 0 {
			return false
		}
		if opts.Duplicates == PolicyReject && len(matches) > 1 {
			return false
		}
	}
	return true
}

func groupByKey(names []string, opts Options) map[string][]string {
	out := make(map[string][]string, len(names))
	for _, name := range names {
		key := opts.Key(name)
		out[key] = append(out[key], name)
	}
	return out
}

func sourceFor(variantID, location string) media.Source {
	if media.IsURL(location) {
		return media.RemoteSource(variantID, location)
	}
	return media.LocalSource(variantID, location)
}

// Matcher memoizes Match over a mutable set of per-variant selections. The
// case list is recomputed only after a selection changes.
type Matcher struct {
	variants []session.Variant
	opts     Options

	mu    sync.Mutex
	files Files
	cases []session.TestCase
	dirty bool
}

// New constructs a Matcher for the session's variants.
func New(variants []session.Variant, opts Options) *Matcher {
	return &Matcher{
		variants: append([]session.Variant(nil), variants...),
		opts:     opts,
		files:    make(Files, len(variants)),
	}
}

// Set replaces the selection for one variant.
func (m *Matcher) Set(variantID string, names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[variantID] = append([]string(nil), names...)
	m.dirty = true
	m.cases = nil
}

// Files returns a copy of the current selections.
func (m *Matcher) Files() Files {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Files, len(m.files))
	for id, names := range m.files {
		out[id] = append([]string(nil), names...)
	}
	return out
}

// Cases returns a copy of the matched cases, computing them on first use
// after a change.
func (m *Matcher) Cases() []session.TestCase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCases(m.casesLocked())
}

// Ready reports whether the current selections can be reviewed.
func (m *Matcher) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Ready(m.variants, m.files, m.casesLocked())
}

func (m *Matcher) casesLocked() []session.TestCase {
	if m.cases == nil || m.dirty {
		m.cases = Match(m.variants, m.files, m.opts)
		m.dirty = false
	}
	return m.cases
}

func cloneCases(cases []session.TestCase) []session.TestCase {
	out := make([]session.TestCase, len(cases))
	for i, tc := range cases {
		tc.Sources = slices.Clone(tc.Sources)
		out[i] = tc
	}
	return out
}
