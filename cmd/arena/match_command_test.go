package main

import (
	"encoding/json"
	"image/color"
	"path/filepath"
	"testing"

	"arena/internal/testsupport"
)

func TestMatchCommandListsCasesAndUnmatched(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "shot1.png")
	testsupport.WritePNG(t, filepath.Join(env.variantDir("a"), "sunset_beach.png"), 10, 10, color.Gray{Y: 128})
	testsupport.WritePNG(t, filepath.Join(env.variantDir("b"), "sunset_beech.png"), 10, 10, color.Gray{Y: 128})

	out, _, err := runCLI(t, []string{"match"}, env.configPath, "")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	requireContains(t, out, "Ready:      yes")
	requireContains(t, out, "shot1")
	requireContains(t, out, "Unmatched files (2)")
	requireContains(t, out, "no_match")
	requireContains(t, out, "sunset_beech")
}

func TestMatchCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeVariantImages(t, "b.png")
	env.writeVariantImages(t, "a.png")

	out, _, err := runCLI(t, []string{"match", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("match --json: %v", err)
	}
	var report matchReportJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if !report.Ready {
		t.Fatal("expected ready report")
	}
	if len(report.Cases) != 2 || report.Cases[0].Name != "a" || report.Cases[1].Name != "b" {
		t.Fatalf("unexpected cases: %+v", report.Cases)
	}
	if got := report.Cases[0].Files["b"]; filepath.Base(got) != "a.png" {
		t.Fatalf("case a file for variant b = %q", got)
	}
}

func TestMatchCommandNotReadyWithoutFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePNG(t, filepath.Join(env.variantDir("a"), "only.png"), 10, 10, color.Gray{Y: 128})

	out, _, err := runCLI(t, []string{"match"}, env.configPath, "")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	requireContains(t, out, "Ready:      no")
	requireContains(t, out, "No cases matched")
}

func TestMatchCommandIncludesConfiguredFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePNG(t, filepath.Join(env.variantDir("a"), "extra.png"), 10, 10, color.Gray{Y: 64})
	outside := filepath.Join(env.baseDir, "elsewhere", "extra.png")
	testsupport.WritePNG(t, outside, 10, 10, color.Gray{Y: 192})
	env.cfg.Session.Variants[1].Files = []string{outside, filepath.Join(env.baseDir, "elsewhere", "notes.txt")}
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"match", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("match --json: %v", err)
	}
	var report matchReportJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Cases) != 1 || report.Cases[0].Name != "extra" {
		t.Fatalf("unexpected cases: %+v", report.Cases)
	}
	if got := report.Cases[0].Files["b"]; got != outside {
		t.Fatalf("case extra file for variant b = %q, want %q", got, outside)
	}
	if got := report.Files["b"]; len(got) != 1 {
		t.Fatalf("non-image entries should be filtered, got %v", got)
	}
}
