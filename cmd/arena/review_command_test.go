package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arena/internal/session"
	"arena/internal/testsupport"
)

func TestReviewCommandRecordsVotesAndSavesFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "shot1.png")
	env.writeVariantImages(t, "shot2.png")
	votesPath := filepath.Join(env.baseDir, "votes.json")

	script := strings.Join([]string{
		"help",
		"score 1 1",
		"amazing 1",
		"note 2 soft edges",
		"score 2 0.5",
		"rep",
		"vote 1",
		"vote tie",
	}, "\n") + "\n"
	out, _, err := runCLI(t, []string{"review", "--save-votes", votesPath}, env.configPath, script)
	if err != nil {
		t.Fatalf("review: %v\n%s", err, out)
	}
	requireContains(t, out, "Case 1/2: shot1")
	requireContains(t, out, "Case 2/2: shot2")
	requireContains(t, out, "Every case has a vote")
	requireContains(t, out, "Voted on 2 of 2 cases")

	data, err := os.ReadFile(votesPath)
	if err != nil {
		t.Fatalf("read votes: %v", err)
	}
	var saved votesFile
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode votes: %v", err)
	}
	if len(saved.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(saved.Results))
	}
	first, second := saved.Results[0], saved.Results[1]
	if first.CaseID != "shot1" || first.Winner != "a" || !first.Representative {
		t.Fatalf("unexpected first vote: %+v", first)
	}
	if got := first.Ratings["a"]; got.Score != 1 || !got.Amazing {
		t.Fatalf("unexpected rating for a: %+v", got)
	}
	if got := first.Ratings["b"]; got.Score != 0.5 || got.Note != "soft edges" {
		t.Fatalf("unexpected rating for b: %+v", got)
	}
	if second.CaseID != "shot2" || second.Winner != session.Tie || second.Representative {
		t.Fatalf("unexpected second vote: %+v", second)
	}
	if len(second.Ratings) != 0 {
		t.Fatalf("ratings leaked into the next case: %+v", second.Ratings)
	}
}

func TestReviewCommandRejectsBadInputAndContinues(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "only.png")

	script := strings.Join([]string{
		"dance",
		"score 3 1",
		"score 1 0.7",
		"seek 5",
		"vote 1",
	}, "\n") + "\n"
	out, _, err := runCLI(t, []string{"review"}, env.configPath, script)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	requireContains(t, out, `unknown command "dance"`)
	requireContains(t, out, "slot 3 does not exist")
	requireContains(t, out, "score must be 0, 0.5, or 1")
	requireContains(t, out, "Image cases have no playback controls")
	requireContains(t, out, "Voted on 1 of 1 cases")
}

func TestReviewCommandQuitEarlyKeepsPartialVotes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "one.png")
	env.writeVariantImages(t, "two.png")

	out, _, err := runCLI(t, []string{"review"}, env.configPath, "vote 2\nprev\nvote 1\nquit\n")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	requireContains(t, out, "one already has a vote")
	requireContains(t, out, "Voted on 1 of 2 cases")
}

func TestReviewCommandBlindHidesNamesUntilVote(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithBlind())
	env.writeVariantImages(t, "clip.png")

	out, _, err := runCLI(t, []string{"review"}, env.configPath, "vote 1\n")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	requireContains(t, out, "[1] Model A")
	requireContains(t, out, "[2] Model B")
	if strings.Contains(out, "clip.png") {
		t.Fatalf("blind review leaked file names:\n%s", out)
	}
	if !strings.Contains(out, "Model A was Alpha") && !strings.Contains(out, "Model A was Beta") {
		t.Fatalf("expected the vote to reveal the winner:\n%s", out)
	}
}

func TestReviewCommandRequiresMatchedCases(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"review"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected error without matched cases")
	}
	requireContains(t, err.Error(), "no reviewable cases")
}

func TestReviewCommandReportsMissingProbe(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMediaKind("video"))
	for _, v := range env.cfg.Session.Variants {
		testsupport.WriteFile(t, filepath.Join(v.Dir, "clip.mp4"), 64)
	}
	t.Setenv("PATH", t.TempDir())

	_, _, err := runCLI(t, []string{"review"}, env.configPath, "vote 1\n")
	if err == nil {
		t.Fatal("expected review to stop when ffprobe is missing")
	}
	requireContains(t, err.Error(), "ffprobe")
}
