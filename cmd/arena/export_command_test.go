package main

import (
	"archive/zip"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"arena/internal/session"
)

func TestExportCommandFromVotesFile(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "alpha.png")
	env.writeVariantImages(t, "beta.png")
	env.writeVariantImages(t, "gamma.png")

	sess, err := session.New(env.cfg)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	votesPath := filepath.Join(env.baseDir, "votes.json")
	results := []session.VoteResult{
		{CaseID: "gamma", CaseName: "gamma", Timestamp: now, Winner: "a", Representative: true},
		{CaseID: "beta", CaseName: "beta", Timestamp: now.Add(time.Minute), Winner: session.Tie},
		{CaseID: "alpha", CaseName: "alpha", Timestamp: now.Add(2 * time.Minute), Winner: "b", Representative: true},
	}
	if err := writeVotesFile(votesPath, sess, results); err != nil {
		t.Fatalf("writeVotesFile: %v", err)
	}

	archive := filepath.Join(env.baseDir, "out", "batch.zip")
	out, stderr, err := runCLI(t, []string{"export", "--votes", votesPath, "--output", archive}, env.configPath, "")
	if err != nil {
		t.Fatalf("export: %v\n%s", err, stderr)
	}
	requireContains(t, out, "Exported 2 cases to "+archive)
	requireContains(t, stderr, "Case 1/2")
	requireContains(t, stderr, "Case 2/2")

	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"alpha_comparison.png", "gamma_comparison.png", "results.xlsx"}
	if !slices.Equal(names, want) {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}
}

func TestExportCommandRejectsMismatchedVotes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "alpha.png")

	other := &session.Session{ID: "x", Kind: "image", Variants: []session.Variant{{ID: "a"}, {ID: "z"}}}
	votesPath := filepath.Join(env.baseDir, "votes.json")
	if err := writeVotesFile(votesPath, other, nil); err != nil {
		t.Fatalf("writeVotesFile: %v", err)
	}

	_, _, err := runCLI(t, []string{"export", "--votes", votesPath}, env.configPath, "")
	if err == nil {
		t.Fatal("expected variant mismatch error")
	}
	requireContains(t, err.Error(), "configuration has [a b]")

	if _, _, err := runCLI(t, []string{"export"}, env.configPath, ""); err == nil {
		t.Fatal("expected --votes to be required")
	}
}

func TestReadVotesFileRejectsDuplicateCases(t *testing.T) {
	env := setupCLITestEnv(t)
	sess, err := session.New(env.cfg)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	path := filepath.Join(env.baseDir, "dup.json")
	dup := []session.VoteResult{
		{CaseID: "x", CaseName: "x", Winner: "a"},
		{CaseID: "x", CaseName: "x", Winner: "b"},
	}
	if err := writeVotesFile(path, sess, dup); err != nil {
		t.Fatalf("writeVotesFile: %v", err)
	}
	if _, err := readVotesFile(path, sess); err == nil {
		t.Fatal("expected duplicate case error")
	}
}
