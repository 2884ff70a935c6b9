package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"arena/internal/composite"
	"arena/internal/fileutil"
	"arena/internal/logging"
	"arena/internal/media"
	"arena/internal/report"
	"arena/internal/services"
	"arena/internal/session"
	"arena/internal/textutil"
)

// Renderer produces one composite per call.
type Renderer interface {
	Render(ctx context.Context, kind media.Kind, tiles []composite.Tile) (composite.Artifact, error)
}

// Progress is emitted before each case is rendered.
type Progress struct {
	Index    int
	Total    int
	CaseName string
}

// CaseError reports the case that aborted a batch.
type CaseError struct {
	Index    int
	Total    int
	CaseName string
	Err      error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("case %d/%d %q: %v", e.Index, e.Total, e.CaseName, e.Err)
}

func (e *CaseError) Unwrap() error {
	return e.Err
}

// Options configures an Exporter.
type Options struct {
	Suffix     string
	ReportName string
	Logger     *slog.Logger
	OnProgress func(Progress)
}

// Result describes a finished archive.
type Result struct {
	Path      string
	Entries   []string
	Size      int64
	Cases     int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Exporter builds archives for one session.
type Exporter struct {
	session  *session.Session
	renderer Renderer
	opts     Options
	logger   *slog.Logger
}

// New constructs an Exporter.
func New(sess *session.Session, renderer Renderer, opts Options) *Exporter {
	if opts.ReportName == "" {
		opts.ReportName = "results.xlsx"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		session:  sess,
		renderer: renderer,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "export"),
	}
}

// ArtifactName is the deterministic file name of a case's composite.
func ArtifactName(caseName, suffix, ext string) string {
	base := textutil.SanitizeFileName(caseName)
	if base == "" {
		base = "case"
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return base + suffix
	}
	return base + suffix + "." + ext
}

// Tiles lists a case's sources in session variant order labelled with the
// variants' display names.
func Tiles(tc session.TestCase, variants []session.Variant) []composite.Tile {
	tiles := make([]composite.Tile, 0, len(variants))
	for _, v := range variants {
		src, ok := tc.SourceFor(v.ID)
		if !ok {
			continue
		}
		tiles = append(tiles, composite.Tile{Label: v.Name, Source: src})
	}
	return tiles
}

// Marked returns the cases of queue whose vote is representative, in queue
// order.
func Marked(queue []session.TestCase, results []session.VoteResult) []session.TestCase {
	marked := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.Representative {
			marked[r.CaseID] = struct{}{}
		}
	}
	var out []session.TestCase
	for _, tc := range queue {
		if _, ok := marked[tc.ID]; ok {
			out = append(out, tc)
		}
	}
	return out
}

// Export renders every representative case and writes the archive to dest.
func (e *Exporter) Export(ctx context.Context, queue []session.TestCase, results []session.VoteResult, dest string) (Result, error) {
	start := time.Now()
	cases := Marked(queue, results)
	total := len(cases)
	logger := e.logger.With(logging.String(logging.FieldSessionID, e.session.ID))
	logger.Info("export started",
		logging.String(logging.FieldEventType, "export_start"),
		logging.Int("cases", total),
		logging.String("dest", dest),
	)

	out, err := fileutil.CreateAtomic(dest)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "export", "create archive", dest, err)
	}
	defer out.Abort()
	zw := zip.NewWriter(out)

	used := make(map[string]int, total)
	entries := make([]string, 0, total+1)
	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		progress := Progress{Index: i + 1, Total: total, CaseName: tc.Name}
		if e.opts.OnProgress != nil {
			e.opts.OnProgress(progress)
		}
		caseCtx := services.WithCaseID(ctx, tc.ID)
		name, err := e.exportCase(caseCtx, zw, tc, used)
		if err != nil {
			logging.ErrorWithContext(logger, "export aborted", "export_failed",
				logging.String(logging.FieldCaseID, tc.ID),
				logging.Int("index", progress.Index),
				logging.Int("total", total),
				logging.String(logging.FieldErrorHint, "no archive was written"),
				logging.Error(err),
			)
			return Result{}, &CaseError{Index: progress.Index, Total: total, CaseName: tc.Name, Err: err}
		}
		entries = append(entries, name)
	}

	w, err := zw.Create(e.opts.ReportName)
	if err != nil {
		return Result{}, fmt.Errorf("add report: %w", err)
	}
	if err := report.WriteWorkbook(w, e.session.Variants, results); err != nil {
		return Result{}, err
	}
	entries = append(entries, e.opts.ReportName)

	if err := zw.Close(); err != nil {
		return Result{}, fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Commit(); err != nil {
		return Result{}, err
	}
	info, err := os.Stat(dest)
	if err != nil {
		return Result{}, fmt.Errorf("stat archive: %w", err)
	}
	result := Result{
		Path:      dest,
		Entries:   entries,
		Size:      info.Size(),
		Cases:     total,
		Elapsed:   time.Since(start),
		CreatedAt: time.Now(),
	}
	logger.Info("export complete",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.Int("cases", total),
		logging.Int64("size_bytes", result.Size),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (e *Exporter) exportCase(ctx context.Context, zw *zip.Writer, tc session.TestCase, used map[string]int) (string, error) {
	tiles := Tiles(tc, e.session.Variants)
	artifact, err := e.renderer.Render(ctx, e.session.Kind, tiles)
	if err != nil {
		return "", err
	}
	defer func() { _ = artifact.Discard() }()

	name := ArtifactName(tc.Name, e.opts.Suffix, artifact.Ext)
	if n := used[name]; n > 0 {
		name = ArtifactName(fmt.Sprintf("%s-%d", tc.Name, n+1), e.opts.Suffix, artifact.Ext)
	}
	used[name]++

	src, err := os.Open(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()
	// Encoded media does not compress further.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: time.Now()})
	if err != nil {
		return "", fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// IsCaseError reports whether err aborted a batch on a specific case.
func IsCaseError(err error) (*CaseError, bool) {
	var ce *CaseError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
