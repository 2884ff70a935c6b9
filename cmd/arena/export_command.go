package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"arena/internal/config"
	"arena/internal/export"
	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/notifications"
	"arena/internal/session"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var votesPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Composite every representative case into one archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(votesPath) == "" {
				return errors.New("--votes is required")
			}
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(votesPath)
			if err != nil {
				return fmt.Errorf("resolve votes path: %w", err)
			}
			results, err := readVotesFile(path, ws.session)
			if err != nil {
				return err
			}
			dest, err := exportDestination(ws.cfg, outPath, time.Now())
			if err != nil {
				return err
			}
			_, err = runExport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), ws, results, dest)
			return err
		},
	}

	cmd.Flags().StringVar(&votesPath, "votes", "", "Votes file written by `arena review --save-votes`")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Archive path (defaults to the output directory)")
	return cmd
}

func exportDestination(cfg *config.Config, outPath string, now time.Time) (string, error) {
	if target := strings.TrimSpace(outPath); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve archive path: %w", err)
		}
		return expanded, nil
	}
	return filepath.Join(cfg.Paths.OutputDir, "arena-"+now.Format("20060102-150405")+".zip"), nil
}

// runExport builds the archive for results and reports progress on errOut.
// Unmatched or unknown case ids in results are simply not composited.
func runExport(ctx context.Context, out, errOut io.Writer, ws *workspace, results []session.VoteResult, dest string) (export.Result, error) {
	if err := runPreflight(ctx, ws); err != nil {
		return export.Result{}, describeError(err)
	}

	colorize := shouldColorize(errOut)
	progress := newRenderProgress(errOut, colorize)
	renderer := newRenderer(ws, media.NewRegistry(nil), progress.report)
	exporter := export.New(ws.session, renderer, export.Options{
		Suffix:     ws.cfg.Export.ArtifactSuffix,
		ReportName: ws.cfg.Export.ReportName,
		Logger:     ws.logger,
		OnProgress: func(p export.Progress) {
			label := fmt.Sprintf("Case %d/%d", p.Index, p.Total)
			progress.start(label)
			fmt.Fprintln(errOut, renderStatusLine(label, statusInfo, p.CaseName, colorize))
		},
	})

	notifier := notifications.NewService(ws.cfg)
	result, err := exporter.Export(ctx, ws.cases(), results, dest)
	if err != nil {
		var caseName string
		if caseErr, ok := export.IsCaseError(err); ok {
			caseName = caseErr.CaseName
		}
		if notifyErr := notifier.NotifyExportFailed(ctx, caseName, err); notifyErr != nil {
			logging.WarnWithContext(ws.logger, "export failure notification failed", "notification_failed",
				logging.String(logging.FieldImpact, "reviewer was not notified"),
				logging.Error(notifyErr),
			)
		}
		return export.Result{}, describeError(err)
	}
	if notifyErr := notifier.NotifyExportCompleted(ctx, result.Cases, result.Path, result.Size, result.Elapsed); notifyErr != nil {
		logging.WarnWithContext(ws.logger, "export notification failed", "notification_failed",
			logging.String(logging.FieldImpact, "reviewer was not notified"),
			logging.Error(notifyErr),
		)
	}

	fmt.Fprintf(out, "Exported %d %s to %s (%s) in %s\n",
		result.Cases, pluralize(result.Cases, "case", "cases"), result.Path,
		humanize.IBytes(uint64(max(result.Size, 0))), result.Elapsed.Round(time.Millisecond))
	for _, entry := range result.Entries {
		fmt.Fprintf(out, "  %s\n", entry)
	}
	return result, nil
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
