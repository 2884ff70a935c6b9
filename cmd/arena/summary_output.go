package main

import (
	"fmt"

	"arena/internal/report"
	"arena/internal/session"
)

func renderSummary(variants []session.Variant, results []session.VoteResult) string {
	summary := report.Summarize(variants, results)
	rows := make([][]string, 0, len(summary.Variants))
	for _, v := range summary.Variants {
		average := "-"
		if v.Rated > 0 {
			average = fmt.Sprintf("%.2f", v.AverageScore)
		}
		rows = append(rows, []string{
			v.Name,
			fmt.Sprintf("%d", v.Wins),
			formatPercent(v.WinRate),
			average,
			fmt.Sprintf("%d", v.AmazingCount),
		})
	}
	table := renderTable(
		[]string{"Variant", "Wins", "Win Rate", "Avg Score", "Amazing"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
	return fmt.Sprintf("%s\nCases: %d  Ties: %d (%s)", table, summary.Total, summary.Ties, formatPercent(summary.TieRate))
}

func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}
