package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"arena/internal/fileutil"
	"arena/internal/services"
	"arena/internal/session"
)

// votesFileVersion is bumped when the layout of the votes file changes.
const votesFileVersion = 1

// votesFile is the reviewer-chosen record written by `arena review
// --save-votes` and read back by `arena export --votes`.
type votesFile struct {
	Version   int                  `json:"version"`
	SessionID string               `json:"session_id"`
	MediaKind string               `json:"media_kind"`
	Variants  []string             `json:"variants"`
	SavedAt   time.Time            `json:"saved_at"`
	Results   []session.VoteResult `json:"results"`
}

func writeVotesFile(path string, sess *session.Session, results []session.VoteResult) error {
	ids := make([]string, 0, len(sess.Variants))
	for _, v := range sess.Variants {
		ids = append(ids, v.ID)
	}
	payload := votesFile{
		Version:   votesFileVersion,
		SessionID: sess.ID,
		MediaKind: string(sess.Kind),
		Variants:  ids,
		SavedAt:   time.Now().UTC(),
		Results:   results,
	}
	if payload.Results == nil {
		payload.Results = []session.VoteResult{}
	}

	out, err := fileutil.CreateAtomic(path)
	if err != nil {
		return err
	}
	defer out.Abort()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode votes: %w", err)
	}
	return out.Commit()
}

// readVotesFile loads a votes file and checks it against the current
// session's variants and case names.
func readVotesFile(path string, sess *session.Session) ([]session.VoteResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "export", "read votes", path, err)
		}
		return nil, fmt.Errorf("read votes: %w", err)
	}
	var payload votesFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "export", "parse votes", path, err)
	}
	if payload.Version != votesFileVersion {
		return nil, services.Wrap(services.ErrValidation, "export", "parse votes", fmt.Sprintf("unsupported votes file version %d", payload.Version), nil)
	}
	ids := make([]string, 0, len(sess.Variants))
	for _, v := range sess.Variants {
		ids = append(ids, v.ID)
	}
	if !slices.Equal(payload.Variants, ids) {
		return nil, services.Wrap(services.ErrValidation, "export", "parse votes",
			fmt.Sprintf("votes were recorded for variants %v, configuration has %v", payload.Variants, ids), nil)
	}
	seen := make(map[string]struct{}, len(payload.Results))
	for _, r := range payload.Results {
		if err := r.Validate(sess.Variants); err != nil {
			return nil, services.Wrap(services.ErrValidation, "export", "parse votes", path, err)
		}
		if _, dup := seen[r.CaseID]; dup {
			return nil, services.Wrap(services.ErrValidation, "export", "parse votes", fmt.Sprintf("case %s voted twice", r.CaseID), nil)
		}
		seen[r.CaseID] = struct{}{}
	}
	return payload.Results, nil
}
