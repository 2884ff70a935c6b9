package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLineAlignsBadges(t *testing.T) {
	short := renderStatusLine("FFmpeg", statusOK, "ffmpeg version 7", false)
	long := renderStatusLine("Variant candidate", statusWarn, "", false)
	if !strings.HasPrefix(short, "  FFmpeg:") {
		t.Fatalf("unexpected prefix %q", short)
	}
	if strings.Index(short, "[OK]") != strings.Index(long, "[WARN]") {
		t.Fatalf("badges should line up:\n%s\n%s", short, long)
	}
	if !strings.HasSuffix(long, "[WARN]") {
		t.Fatalf("empty message should leave the bare badge, got %q", long)
	}
	if colored := renderStatusLine("Export", statusError, "boom", true); !strings.Contains(colored, "[ERROR] boom") {
		t.Fatalf("colored line lost its text: %q", colored)
	}
}

func TestRenderSectionHeaderRuleMatchesTitle(t *testing.T) {
	lines := renderSectionHeader(" Dependencies ", false)
	if len(lines) != 2 || lines[0] != "== Dependencies ==" || len(lines[1]) != len(lines[0]) {
		t.Fatalf("unexpected header %q", lines)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Variant", "Wins"}, [][]string{{"alpha", "3"}, {"beta"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Variant", "Wins", "alpha", "beta"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, [][]string{{"x"}}, nil) != "" {
		t.Fatal("a table without headers should render nothing")
	}
}
