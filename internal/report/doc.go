// Package report aggregates session votes and writes them as a workbook.
package report
