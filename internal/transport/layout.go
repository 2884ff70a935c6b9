package transport

import (
	"math/rand"

	"arena/internal/session"
)

// Palette colors positions in blind sessions. Indexed by position, never by
// variant.
var Palette = []string{
	"#4e79a7",
	"#f28e2b",
	"#59a14f",
	"#e15759",
	"#76b7b2",
	"#edc948",
	"#b07aa1",
	"#ff9da7",
}

// Position is one presentation slot.
type Position struct {
	Index     int
	VariantID string
	Label     string
	Color     string
}

// Layout maps presentation positions to variants.
type Layout struct {
	Blind     bool
	Positions []Position
}

// NewLayout builds the layout for one case. Non-blind layouts keep session
// order with configured names and colors. Blind layouts shuffle with rng and
// label positions "Model A", "Model B", and so on.
func NewLayout(variants []session.Variant, blind bool, rng *rand.Rand) Layout {
	order := make([]int, len(variants))
	for i := range order {
		order[i] = i
	}
	if blind && rng != nil {
		order = rng.Perm(len(variants))
	}
	positions := make([]Position, len(variants))
	for pos, idx := range order {
		v := variants[idx]
		p := Position{Index: pos, VariantID: v.ID, Label: v.Name, Color: v.Color}
		if blind {
			p.Label = BlindLabel(pos)
			p.Color = Palette[pos%len(Palette)]
		}
		positions[pos] = p
	}
	return Layout{Blind: blind, Positions: positions}
}

// BlindLabel names a position without revealing the variant.
func BlindLabel(pos int) string {
	if pos < 26 {
		return "Model " + string(rune('A'+pos))
	}
	return "Model " + string(rune('A'+pos/26-1)) + string(rune('A'+pos%26))
}

// Order returns variant identifiers in presentation order.
func (l Layout) Order() []string {
	out := make([]string, len(l.Positions))
	for i, p := range l.Positions {
		out[i] = p.VariantID
	}
	return out
}

// PositionOf returns the presentation slot of variantID.
func (l Layout) PositionOf(variantID string) (Position, bool) {
	for _, p := range l.Positions {
		if p.VariantID == variantID {
			return p, true
		}
	}
	return Position{}, false
}
