package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arena/internal/deps"
	"arena/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			lines := renderSectionHeader("Dependencies", colorize)
			for _, status := range statuses {
				lines = append(lines, dependencyLine(status, colorize))
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			checks := preflight.RunAll(cmd.Context(), cfg)
			for _, check := range checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			missing := deps.MissingRequired(statuses)
			failed := preflight.Failed(checks)
			if len(missing) > 0 || len(failed) > 0 {
				return fmt.Errorf("%d required %s missing, %d %s failed",
					len(missing), pluralize(len(missing), "dependency", "dependencies"),
					len(failed), pluralize(len(failed), "check", "checks"))
			}
			return nil
		},
	}
}

func dependencyLine(status deps.Status, colorize bool) string {
	switch {
	case status.Available:
		message := status.Command
		if status.Version != "" {
			message = status.Version
		}
		return renderStatusLine(status.Name, statusOK, message, colorize)
	case status.Optional:
		return renderStatusLine(status.Name, statusWarn, "optional: "+status.Detail, colorize)
	default:
		return renderStatusLine(status.Name, statusError, status.Detail, colorize)
	}
}
