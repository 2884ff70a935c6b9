package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"arena/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch files left by interrupted composites and exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dirs := []string{cfg.Paths.WorkDir, cfg.Paths.OutputDir}

			if dryRun {
				entries, err := staging.List(dirs...)
				if err != nil {
					return fmt.Errorf("list scratch files: %w", err)
				}
				cutoff := time.Now().Add(-olderThan)
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					if !entry.ModTime.Before(cutoff) {
						continue
					}
					rows = append(rows, []string{entry.Path, humanize.IBytes(uint64(max(entry.Size, 0))), humanize.Time(entry.ModTime)})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No stale scratch files")
					return nil
				}
				fmt.Fprintln(out, renderTable([]string{"Path", "Size", "Modified"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
				return nil
			}

			result := staging.CleanStale(cmd.Context(), olderThan, logger, dirs...)
			fmt.Fprintf(out, "Removed %d %s (%s)\n", len(result.Removed), pluralize(len(result.Removed), "entry", "entries"), humanize.IBytes(uint64(max(result.Freed, 0))))
			if len(result.Errors) > 0 {
				for _, failure := range result.Errors {
					fmt.Fprintf(out, "  %s: %v\n", failure.Path, failure.Error)
				}
				return fmt.Errorf("%d scratch %s could not be removed", len(result.Errors), pluralize(len(result.Errors), "entry", "entries"))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "Only touch scratch files older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed")
	return cmd
}
