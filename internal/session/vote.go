package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"arena/internal/config"
)

// Tie is the winner value recorded when no variant wins.
const Tie = config.TieWinner

// Rating is a reviewer's annotation of one variant on one case.
type Rating struct {
	Score   float64 `json:"score"`
	Amazing bool    `json:"is_amazing"`
	Note    string  `json:"note,omitempty"`
}

// Validate ensures the score is one of 0, 0.5, or 1.
func (r Rating) Validate() error {
	switch r.Score {
	case 0, 0.5, 1:
		return nil
	default:
		return fmt.Errorf("score must be 0, 0.5, or 1, got %v", r.Score)
	}
}

// VoteResult is the reviewer's decision for one case.
type VoteResult struct {
	CaseID         string            `json:"case_id"`
	CaseName       string            `json:"case_name"`
	Timestamp      time.Time         `json:"timestamp"`
	Winner         string            `json:"winner"`
	Ratings        map[string]Rating `json:"ratings"`
	Duration       float64           `json:"duration,omitempty"`
	Representative bool              `json:"is_representative"`
}

// IsTie reports whether the vote ended in a tie.
func (v VoteResult) IsTie() bool {
	return v.Winner == Tie
}

// Validate checks the vote against the session's variants.
func (v VoteResult) Validate(variants []Variant) error {
	if v.CaseID == "" {
		return errors.New("vote: case id is required")
	}
	known := make(map[string]struct{}, len(variants))
	for _, variant := range variants {
		if strings.EqualFold(variant.ID, Tie) {
			return fmt.Errorf("vote %s: variant id %q is reserved for tied votes", v.CaseID, variant.ID)
		}
		known[variant.ID] = struct{}{}
	}
	if v.Winner == "" {
		return fmt.Errorf("vote %s: winner is required", v.CaseID)
	}
	if _, ok := known[v.Winner]; !ok && !v.IsTie() {
		return fmt.Errorf("vote %s: unknown winner %q", v.CaseID, v.Winner)
	}
	for id, rating := range v.Ratings {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("vote %s: rating for unknown variant %q", v.CaseID, id)
		}
		if err := rating.Validate(); err != nil {
			return fmt.Errorf("vote %s: variant %s: %w", v.CaseID, id, err)
		}
	}
	if v.Duration < 0 {
		return fmt.Errorf("vote %s: duration must be >= 0", v.CaseID)
	}
	return nil
}
