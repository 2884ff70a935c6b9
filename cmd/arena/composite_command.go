package main

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"arena/internal/composite"
	"arena/internal/config"
	"arena/internal/export"
	"arena/internal/media"
	"arena/internal/transport"
)

func newCompositeCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var blind bool

	cmd := &cobra.Command{
		Use:   "composite <case>",
		Short: "Render one case side by side and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace()
			if err != nil {
				return err
			}
			tc, err := ws.findCase(args[0])
			if err != nil {
				return err
			}
			if err := runPreflight(cmd.Context(), ws); err != nil {
				return describeError(err)
			}

			tiles := export.Tiles(tc, ws.session.Variants)
			if blind || ws.session.Blind {
				rng := rand.New(rand.NewSource(time.Now().UnixNano()))
				tiles = layoutTiles(tc, transport.NewLayout(ws.session.Variants, true, rng))
			}

			progress := newRenderProgress(cmd.ErrOrStderr(), shouldColorize(cmd.ErrOrStderr()))
			progress.start(tc.Name)
			renderer := newRenderer(ws, media.NewRegistry(nil), progress.report)
			artifact, err := renderer.Render(cmd.Context(), ws.session.Kind, tiles)
			if err != nil {
				return describeError(err)
			}

			dest, err := compositeDestination(ws.cfg, outPath, tc.Name, artifact)
			if err != nil {
				_ = artifact.Discard()
				return err
			}
			if err := artifact.MoveTo(dest); err != nil {
				_ = artifact.Discard()
				return fmt.Errorf("save composite: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s (%s, %dx%d", dest, humanize.IBytes(uint64(max(artifact.Size, 0))), artifact.Width, artifact.Height)
			if artifact.Duration > 0 {
				fmt.Fprintf(out, ", %s", artifact.Duration.Round(time.Millisecond))
			}
			fmt.Fprintln(out, ")")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Destination file (defaults to the output directory)")
	cmd.Flags().BoolVar(&blind, "blind", false, "Shuffle tile order and hide variant names")
	return cmd
}

func compositeDestination(cfg *config.Config, outPath, caseName string, artifact composite.Artifact) (string, error) {
	if target := strings.TrimSpace(outPath); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		return expanded, nil
	}
	return filepath.Join(cfg.Paths.OutputDir, export.ArtifactName(caseName, cfg.Export.ArtifactSuffix, artifact.Ext)), nil
}
