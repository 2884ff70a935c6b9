package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"arena/internal/matcher"
	"arena/internal/session"
)

type matchCaseJSON struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Files map[string]string `json:"files"`
}

type matchReportJSON struct {
	MediaKind string              `json:"media_kind"`
	Ready     bool                `json:"ready"`
	Variants  []session.Variant   `json:"variants"`
	Cases     []matchCaseJSON     `json:"cases"`
	Unmatched []matcher.Entry     `json:"unmatched,omitempty"`
	Files     map[string][]string `json:"files"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showUnmatched bool

	cmd := &cobra.Command{
		Use:   "match",
		Short: "List cases matched across every variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			var unmatched []matcher.Entry
			if showUnmatched {
				unmatched = matcher.Unmatched(ws.session.Variants, ws.files(), ws.cases(), ws.opts, ws.cfg.Matching.SuggestThreshold)
			}
			if jsonOutput {
				return writeJSON(cmd, buildMatchReport(ws, unmatched))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Media kind: %s\n", ws.session.Kind)
			fmt.Fprintf(out, "Variants:   %s\n", variantSummary(ws.session.Variants, ws.files()))
			fmt.Fprintf(out, "Ready:      %s\n", yesNo(ws.ready()))
			if len(ws.cases()) == 0 {
				fmt.Fprintln(out, "No cases matched across all variants")
			} else {
				fmt.Fprintln(out, renderTable(caseTableHeaders(ws.session.Variants), caseTableRows(ws.session.Variants, ws.cases()), nil))
			}
			if showUnmatched && len(unmatched) > 0 {
				fmt.Fprintf(out, "Unmatched files (%d):\n", len(unmatched))
				fmt.Fprintln(out, renderTable(
					[]string{"Variant", "File", "Reason", "Closest"},
					unmatchedRows(unmatched),
					nil,
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the match report as JSON")
	cmd.Flags().BoolVar(&showUnmatched, "unmatched", true, "Report files that did not join a case")
	return cmd
}

func buildMatchReport(ws *workspace, unmatched []matcher.Entry) matchReportJSON {
	report := matchReportJSON{
		MediaKind: string(ws.session.Kind),
		Ready:     ws.ready(),
		Variants:  ws.session.Variants,
		Cases:     make([]matchCaseJSON, 0, len(ws.cases())),
		Unmatched: unmatched,
		Files:     ws.files(),
	}
	for _, tc := range ws.cases() {
		entry := matchCaseJSON{ID: tc.ID, Name: tc.Name, Files: make(map[string]string, len(tc.Sources))}
		for _, src := range tc.Sources {
			entry.Files[src.VariantID] = src.Location()
		}
		report.Cases = append(report.Cases, entry)
	}
	return report
}

func variantSummary(variants []session.Variant, files matcher.Files) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, fmt.Sprintf("%s (%d files)", v.Name, len(files[v.ID])))
	}
	return strings.Join(parts, ", ")
}

func caseTableHeaders(variants []session.Variant) []string {
	headers := []string{"#", "Case"}
	for _, v := range variants {
		headers = append(headers, v.Name)
	}
	return headers
}

func caseTableRows(variants []session.Variant, cases []session.TestCase) [][]string {
	rows := make([][]string, 0, len(cases))
	for i, tc := range cases {
		row := []string{fmt.Sprintf("%d", i+1), tc.Name}
		for _, v := range variants {
			src, ok := tc.SourceFor(v.ID)
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, displayName(src.Location()))
		}
		rows = append(rows, row)
	}
	return rows
}

func unmatchedRows(entries []matcher.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		closest := "-"
		if len(e.Suggestions) > 0 {
			parts := make([]string, 0, len(e.Suggestions))
			for _, s := range e.Suggestions {
				parts = append(parts, fmt.Sprintf("%s:%s (%.2f)", s.VariantID, s.Key, s.Score))
			}
			closest = strings.Join(parts, ", ")
		}
		rows = append(rows, []string{e.VariantID, displayName(e.Name), string(e.Reason), closest})
	}
	return rows
}

func displayName(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	return filepath.Base(location)
}
