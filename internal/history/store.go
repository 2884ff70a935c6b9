package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"arena/internal/session"
)

//go:embed schema.sql
var schemaSQL string

// ErrDuplicateVote is returned when a case already has a vote.
var ErrDuplicateVote = errors.New("case already voted")

// Store is the session's append-only vote record.
type Store struct {
	db        *sql.DB
	sessionID string
	variants  []session.Variant
}

// Open creates an empty in-memory record for sess.
func Open(ctx context.Context, sess *session.Session) (*Store, error) {
	if sess == nil {
		return nil, errors.New("history requires a session")
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, sessionID: sess.ID, variants: sess.Variants}, nil
}

// Close discards the record.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append validates v and records it after every earlier vote.
func (s *Store) Append(ctx context.Context, v session.VoteResult) error {
	if err := v.Validate(s.variants); err != nil {
		return err
	}
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}
	ratings, err := json.Marshal(v.Ratings)
	if err != nil {
		return fmt.Errorf("marshal ratings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM votes WHERE case_id = ?", v.CaseID).Scan(&existing); err != nil {
		return fmt.Errorf("check existing vote: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateVote, v.CaseID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO votes (
            session_id, case_id, case_name, recorded_at, winner,
            ratings_json, duration_seconds, representative
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.sessionID,
		v.CaseID,
		v.CaseName,
		v.Timestamp.UTC().Format(time.RFC3339Nano),
		v.Winner,
		string(ratings),
		nullableDuration(v.Duration),
		boolToInt(v.Representative),
	)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return tx.Commit()
}

// List returns every vote in completion order.
func (s *Store) List(ctx context.Context) ([]session.VoteResult, error) {
	return s.query(ctx, "SELECT case_id, case_name, recorded_at, winner, ratings_json, duration_seconds, representative FROM votes ORDER BY seq")
}

// Representative returns the votes marked representative, in completion
// order.
func (s *Store) Representative(ctx context.Context) ([]session.VoteResult, error) {
	return s.query(ctx, "SELECT case_id, case_name, recorded_at, winner, ratings_json, duration_seconds, representative FROM votes WHERE representative = 1 ORDER BY seq")
}

// Voted reports whether caseID already has a vote.
func (s *Store) Voted(ctx context.Context, caseID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM votes WHERE case_id = ?", caseID).Scan(&n); err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of recorded votes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM votes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, query string) ([]session.VoteResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	var out []session.VoteResult
	for rows.Next() {
		var (
			v              session.VoteResult
			recordedAt     string
			ratingsJSON    string
			duration       sql.NullFloat64
			representative int
		)
		if err := rows.Scan(&v.CaseID, &v.CaseName, &recordedAt, &v.Winner, &ratingsJSON, &duration, &representative); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		if v.Timestamp, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parse vote time: %w", err)
		}
		if err := json.Unmarshal([]byte(ratingsJSON), &v.Ratings); err != nil {
			return nil, fmt.Errorf("decode ratings: %w", err)
		}
		if duration.Valid {
			v.Duration = duration.Float64
		}
		v.Representative = representative != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullableDuration(seconds float64) any {
	if seconds <= 0 {
		return nil
	}
	return seconds
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
