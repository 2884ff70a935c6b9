package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"arena/internal/history"
	"arena/internal/session"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	sess := &session.Session{
		ID:       "sess-1",
		Variants: []session.Variant{{ID: "a"}, {ID: "b"}},
	}
	store, err := history.Open(context.Background(), sess)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func vote(caseID, winner string, representative bool) session.VoteResult {
	return session.VoteResult{
		CaseID:    caseID,
		CaseName:  caseID,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Winner:    winner,
		Ratings: map[string]session.Rating{
			"a": {Score: 1, Amazing: true, Note: "crisp"},
			"b": {Score: 0.5},
		},
		Duration:       12.5,
		Representative: representative,
	}
}

func TestAppendPreservesCompletionOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, v := range []session.VoteResult{
		vote("zeta", "a", true),
		vote("alpha", session.Tie, false),
		vote("mid", "b", true),
	} {
		if err := store.Append(ctx, v); err != nil {
			t.Fatalf("Append %s: %v", v.CaseID, err)
		}
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].CaseID != "zeta" || all[1].CaseID != "alpha" || all[2].CaseID != "mid" {
		t.Fatalf("unexpected order: %+v", all)
	}
	first := all[0]
	if !first.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) || first.Duration != 12.5 {
		t.Fatalf("round trip lost fields: %+v", first)
	}
	if r := first.Ratings["a"]; r.Score != 1 || !r.Amazing || r.Note != "crisp" {
		t.Fatalf("rating = %+v", r)
	}

	reps, err := store.Representative(ctx)
	if err != nil {
		t.Fatalf("Representative: %v", err)
	}
	if len(reps) != 2 || reps[0].CaseID != "zeta" || reps[1].CaseID != "mid" {
		t.Fatalf("representative = %+v", reps)
	}
}

func TestAppendRejectsSecondVoteAndInvalidVotes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.Append(ctx, vote("x", "a", false)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, vote("x", "b", true)); !errors.Is(err, history.ErrDuplicateVote) {
		t.Fatalf("second vote err = %v", err)
	}
	bad := vote("y", "a", false)
	bad.Ratings["a"] = session.Rating{Score: 0.7}
	if err := store.Append(ctx, bad); err == nil {
		t.Fatal("expected invalid score to be rejected")
	}
	if err := store.Append(ctx, vote("z", "c", false)); err == nil {
		t.Fatal("expected unknown winner to be rejected")
	}
	n, err := store.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	voted, err := store.Voted(ctx, "x")
	if err != nil || !voted {
		t.Fatalf("Voted(x) = %v, %v", voted, err)
	}
}

func TestStoresAreIsolated(t *testing.T) {
	first := openStore(t)
	second := openStore(t)
	ctx := context.Background()
	if err := first.Append(ctx, vote("x", "a", false)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n, _ := second.Count(ctx); n != 0 {
		t.Fatalf("second store sees %d votes", n)
	}
}
