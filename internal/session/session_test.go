package session

import (
	"testing"

	"arena/internal/config"
	"arena/internal/media"
)

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Session.MediaKind = "image"
	cfg.Session.Blind = true
	cfg.Session.Variants = []config.Variant{{ID: "a", Name: "A", Color: "#111111"}, {ID: "b", Name: "B", Color: "#222222"}}

	s, err := New(&cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.ID == "" || s.Kind != media.KindImage || !s.Blind || len(s.Variants) != 2 {
		t.Fatalf("unexpected session %+v", s)
	}
	if v, ok := s.Variant("b"); !ok || v.Name != "B" {
		t.Fatalf("Variant(b) = %+v, %v", v, ok)
	}
	if _, ok := s.Variant("c"); ok {
		t.Fatal("unexpected variant c")
	}
}

func TestNewRejectsTieVariantID(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Variants = []config.Variant{{ID: "Tie", Name: "T", Color: "#111111"}, {ID: "b", Name: "B", Color: "#222222"}}
	if _, err := New(&cfg); err == nil {
		t.Fatal("expected variant id colliding with the tie winner to be rejected")
	}
}

func TestVoteValidateRejectsTieVariantID(t *testing.T) {
	vote := VoteResult{CaseID: "x", Winner: Tie}
	if err := vote.Validate([]Variant{{ID: "TIE"}, {ID: "b"}}); err == nil {
		t.Fatal("expected vote against a TIE variant to be rejected")
	}
}

func TestVoteValidate(t *testing.T) {
	variants := []Variant{{ID: "a"}, {ID: "b"}}
	tests := []struct {
		name string
		vote VoteResult
		ok   bool
	}{
		{"winner", VoteResult{CaseID: "x", Winner: "a", Ratings: map[string]Rating{"a": {Score: 1}, "b": {Score: 0.5}}}, true},
		{"tie", VoteResult{CaseID: "x", Winner: Tie}, true},
		{"missing case", VoteResult{Winner: "a"}, false},
		{"missing winner", VoteResult{CaseID: "x"}, false},
		{"unknown winner", VoteResult{CaseID: "x", Winner: "z"}, false},
		{"unknown rating", VoteResult{CaseID: "x", Winner: "a", Ratings: map[string]Rating{"z": {}}}, false},
		{"bad score", VoteResult{CaseID: "x", Winner: "a", Ratings: map[string]Rating{"a": {Score: 0.7}}}, false},
		{"negative duration", VoteResult{CaseID: "x", Winner: "a", Duration: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vote.Validate(variants)
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
