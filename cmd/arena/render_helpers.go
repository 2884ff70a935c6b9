package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"arena/internal/composite"
	"arena/internal/deps"
	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/preflight"
	"arena/internal/services"
	"arena/internal/session"
	"arena/internal/transport"
)

// reviewerError presents err through services.Describe while keeping its
// chain intact for errors.Is.
type reviewerError struct {
	err error
}

func (e reviewerError) Error() string { return services.Describe(e.err) }

func (e reviewerError) Unwrap() error { return e.err }

func describeError(err error) error {
	if err == nil {
		return nil
	}
	return reviewerError{err: err}
}

// runPreflight fails when a directory arena writes to is unusable or when a
// binary the session needs is missing.
func runPreflight(ctx context.Context, ws *workspace) error {
	if failed := preflight.Failed(preflight.RunAll(ctx, ws.cfg)); len(failed) > 0 {
		first := failed[0]
		return services.Wrap(services.ErrConfiguration, "preflight", first.Name, first.Detail, nil)
	}
	missing := deps.MissingRequired(preflight.CheckSystemDeps(ctx, ws.cfg))
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, m := range missing {
		names = append(names, m.Command)
	}
	return services.Wrap(services.ErrExternalTool, "preflight", "dependencies", "missing "+strings.Join(names, ", "), nil)
}

func newRenderer(ws *workspace, registry *media.Registry, onProgress func(composite.Progress)) *composite.Renderer {
	opts := composite.OptionsFromConfig(ws.cfg)
	opts.Registry = registry
	opts.Logger = ws.logger
	opts.OnProgress = onProgress
	return composite.NewRenderer(opts)
}

// layoutTiles orders a case's sources by presentation position and labels
// them the way the reviewer sees them.
func layoutTiles(tc session.TestCase, layout transport.Layout) []composite.Tile {
	tiles := make([]composite.Tile, 0, len(layout.Positions))
	for _, pos := range layout.Positions {
		src, ok := tc.SourceFor(pos.VariantID)
		if !ok {
			continue
		}
		tiles = append(tiles, composite.Tile{Label: pos.Label, Source: src})
	}
	return tiles
}

// renderProgress prints sampled encoder progress for one composite at a time.
type renderProgress struct {
	mu       sync.Mutex
	out      io.Writer
	sampler  *logging.ProgressSampler
	label    string
	colorize bool
}

func newRenderProgress(out io.Writer, colorize bool) *renderProgress {
	return &renderProgress{
		out:      out,
		sampler:  logging.NewProgressSampler(25),
		colorize: colorize,
	}
}

func (p *renderProgress) start(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
	p.sampler.Reset()
}

func (p *renderProgress) report(progress composite.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.sampler.ShouldLog(progress.Percent, progress.Stage) {
		return
	}
	message := progress.Stage
	if progress.Percent >= 0 {
		message = fmt.Sprintf("%s %3.0f%%", progress.Stage, progress.Percent)
	}
	fmt.Fprintln(p.out, renderStatusLine(p.label, statusInfo, message, p.colorize))
}
