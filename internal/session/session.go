package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"arena/internal/config"
	"arena/internal/media"
)

// Variant is one model/version being compared.
type Variant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Session is the configuration a review runs under. It does not change after
// New returns.
type Session struct {
	ID       string
	Kind     media.Kind
	Blind    bool
	Variants []Variant
}

// New builds a session from validated configuration.
func New(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session requires config")
	}
	kind, err := media.ParseKind(cfg.Session.MediaKind)
	if err != nil {
		return nil, fmt.Errorf("session.media_kind: %w", err)
	}
	variants := make([]Variant, 0, len(cfg.Session.Variants))
	for _, v := range cfg.Session.Variants {
		if strings.EqualFold(v.ID, Tie) {
			return nil, fmt.Errorf("variant id %q is reserved for tied votes", v.ID)
		}
		variants = append(variants, Variant{ID: v.ID, Name: v.Name, Color: v.Color})
	}
	return &Session{
		ID:       uuid.NewString(),
		Kind:     kind,
		Blind:    cfg.Session.Blind,
		Variants: variants,
	}, nil
}

// Variant looks up a variant by identifier.
func (s *Session) Variant(id string) (Variant, bool) {
	for _, v := range s.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// TestCase is one aligned comparison unit holding exactly one source per
// variant, in session variant order.
type TestCase struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Sources []media.Source `json:"sources"`
}

// SourceFor returns the source supplied by variantID.
func (c TestCase) SourceFor(variantID string) (media.Source, bool) {
	for _, src := range c.Sources {
		if src.VariantID == variantID {
			return src, true
		}
	}
	return media.Source{}, false
}
