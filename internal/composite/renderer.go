package composite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"arena/internal/config"
	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/services"
)

const (
	surfaceLockName  = "surface.lock"
	surfaceLockRetry = 200 * time.Millisecond
)

// Progress reports video encode progress. Percent is negative when the
// total duration is unknown.
type Progress struct {
	Stage   string
	Percent float64
	OutTime time.Duration
}

// Options configures a Renderer.
type Options struct {
	WorkDir      string
	FFmpeg       string
	FFprobe      string
	FPS          int
	VideoFormats []string
	ImageFormat  string
	LabelScale   int
	Timeout      time.Duration
	Registry     *media.Registry
	Logger       *slog.Logger
	OnProgress   func(Progress)
}

// OptionsFromConfig maps configuration onto renderer options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkDir:      cfg.Paths.WorkDir,
		FFmpeg:       cfg.FFmpegBinary(),
		FFprobe:      cfg.FFprobeBinary(),
		FPS:          cfg.Composite.FPS,
		VideoFormats: append([]string(nil), cfg.Composite.VideoFormats...),
		ImageFormat:  cfg.Composite.ImageFormat,
		LabelScale:   cfg.Composite.LabelScale,
		Timeout:      cfg.CompositeTimeout(),
	}
}

// Renderer produces composites. It owns a single rendering surface.
type Renderer struct {
	opts     Options
	registry *media.Registry
	logger   *slog.Logger

	mu       sync.Mutex
	encoders *encoderSet
}

// NewRenderer constructs a renderer.
func NewRenderer(opts Options) *Renderer {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if strings.TrimSpace(opts.FFmpeg) == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(opts.FFprobe) == "" {
		opts.FFprobe = "ffprobe"
	}
	if opts.ImageFormat == "" {
		opts.ImageFormat = "png"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	registry := opts.Registry
	if registry == nil {
		registry = media.NewRegistry(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		opts:     opts,
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "composite"),
	}
}

// Render composites tiles left to right. kind selects the still or video
// path. The returned artifact lives in the work directory until the caller
// moves or discards it.
func (r *Renderer) Render(ctx context.Context, kind media.Kind, tiles []Tile) (Artifact, error) {
	if len(tiles) == 0 {
		return Artifact{}, ErrNoSources
	}
	release, err := r.acquireSurface(ctx)
	if err != nil {
		return Artifact{}, err
	}
	defer release()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	sources := make([]media.Source, len(tiles))
	for i, tile := range tiles {
		sources[i] = tile.Source
	}
	handles, failed, err := r.registry.AcquireAll(sources)
	if err != nil {
		return Artifact{}, sourceError(tiles[failed], services.ErrDecode, "load", err)
	}
	defer media.ReleaseAll(handles)

	start := time.Now()
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("composite started",
		logging.String("kind", string(kind)),
		logging.Int("tiles", len(tiles)),
	)

	var artifact Artifact
	switch kind {
	case media.KindImage:
		artifact, err = r.renderImage(ctx, tiles, handles)
	case media.KindVideo:
		artifact, err = r.renderVideo(ctx, logger, tiles, handles)
	default:
		err = services.Wrap(services.ErrValidation, "composite", "render", fmt.Sprintf("unknown media kind %q", kind), nil)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = services.Wrap(services.ErrTimeout, "composite", "render",
				fmt.Sprintf("exceeded %s", r.opts.Timeout), err)
		}
		return Artifact{}, err
	}

	logger.Info("composite rendered",
		logging.String(logging.FieldEventType, "composite_complete"),
		logging.String("kind", string(kind)),
		logging.Int("width", artifact.Width),
		logging.Int("height", artifact.Height),
		logging.Int64("size_bytes", artifact.Size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return artifact, nil
}

// acquireSurface takes exclusive ownership of the rendering surface for the
// duration of one composite.
func (r *Renderer) acquireSurface(ctx context.Context) (func(), error) {
	r.mu.Lock()
	if err := os.MkdirAll(r.opts.WorkDir, 0o755); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: work dir: %w", ErrSurface, err)
	}
	lock := flock.New(filepath.Join(r.opts.WorkDir, surfaceLockName))
	locked, err := lock.TryLockContext(ctx, surfaceLockRetry)
	if err != nil || !locked {
		r.mu.Unlock()
		if err == nil {
			err = errors.New("lock not acquired")
		}
		return nil, fmt.Errorf("%w: %w", ErrSurface, err)
	}
	return func() {
		_ = lock.Unlock()
		r.mu.Unlock()
	}, nil
}

func (r *Renderer) outputPath(ext string) (string, error) {
	f, err := os.CreateTemp(r.opts.WorkDir, "composite-*."+ext)
	if err != nil {
		return "", fmt.Errorf("%w: create output: %w", ErrSurface, err)
	}
	name := f.Name()
	_ = f.Close()
	return name, nil
}

func sourceError(tile Tile, marker error, operation string, err error) error {
	return &SourceError{
		VariantID: tile.Source.VariantID,
		Name:      tile.Source.Name(),
		Err:       services.Wrap(marker, "composite", operation, tile.Source.Name(), err),
	}
}
