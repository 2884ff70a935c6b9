package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"arena/internal/config"
	"arena/internal/history"
	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/notifications"
	"arena/internal/session"
	"arena/internal/transport"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var saveVotes string
	var exportArchive bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review matched cases and vote on each",
		Long: "Review reads commands from stdin, one per line. Type help inside the\n" +
			"loop for the command list. Votes live only for the length of the session;\n" +
			"pass --save-votes to keep them for a later export.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			if !ws.ready() {
				return fmt.Errorf("no reviewable cases: every variant needs files with matching names (run `arena match`)")
			}
			if err := runPreflight(cmd.Context(), ws); err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), ws.session)
			if err != nil {
				return err
			}
			defer store.Close()

			ctrl := transport.NewController(ws.session, transport.Options{
				Registry:   media.NewRegistry(nil),
				NewElement: elementFactory(ws.cfg, ws.session.Kind),
				Logger:     ws.logger,
			})
			defer ctrl.Close()

			r := newReviewer(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), ws, ctrl, store)
			if err := r.run(); err != nil {
				return err
			}
			if err := ctrl.Close(); err != nil {
				logging.WarnWithContext(ws.logger, "release review media failed", "transport_close_failed", logging.Error(err))
			}

			results, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Voted on %d of %d cases\n", len(results), len(ws.cases()))
			if len(results) > 0 {
				fmt.Fprintln(out, renderSummary(ws.session.Variants, results))
				if notifyErr := notifications.NewService(ws.cfg).NotifyReviewCompleted(cmd.Context(), len(results), len(ws.cases())); notifyErr != nil {
					logging.WarnWithContext(ws.logger, "review notification failed", "notification_failed",
						logging.String(logging.FieldImpact, "reviewer was not notified"),
						logging.Error(notifyErr),
					)
				}
			}

			if path := strings.TrimSpace(saveVotes); path != "" {
				expanded, err := config.ExpandPath(path)
				if err != nil {
					return fmt.Errorf("resolve votes path: %w", err)
				}
				if err := writeVotesFile(expanded, ws.session, results); err != nil {
					return fmt.Errorf("save votes: %w", err)
				}
				fmt.Fprintf(out, "Saved votes to %s\n", expanded)
			}

			if !exportArchive {
				return nil
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "Nothing to export")
				return nil
			}
			dest, err := exportDestination(ws.cfg, outPath, time.Now())
			if err != nil {
				return err
			}
			_, err = runExport(cmd.Context(), out, cmd.ErrOrStderr(), ws, results, dest)
			return err
		},
	}

	cmd.Flags().StringVar(&saveVotes, "save-votes", "", "Write the session's votes to this JSON file")
	cmd.Flags().BoolVar(&exportArchive, "export", false, "Export representative cases and the report when the review ends")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Archive path for --export (defaults to the output directory)")
	return cmd
}

// elementFactory builds the headless playback elements. Video elements read
// their duration with ffprobe; image elements have none.
func elementFactory(cfg *config.Config, kind media.Kind) transport.ElementFactory {
	var probe transport.DurationProbe
	if kind.HasTransport() {
		probe = transport.FFprobeDuration(cfg.FFprobeBinary())
	}
	return func(session.Variant) transport.Element {
		return transport.NewClockElement(probe, nil)
	}
}
