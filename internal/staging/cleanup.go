package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"arena/internal/logging"
)

// Prefixes of the scratch entries the composite renderer creates in work_dir.
const (
	compositePrefix = "composite-"
	labelsPrefix    = "labels-"
)

// CleanStaleResult contains the outcome of a stale scratch cleanup.
type CleanStaleResult struct {
	Removed []string
	Freed   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Entry describes one leftover scratch file or directory.
type Entry struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Dir     bool
}

// IsScratch reports whether name is something arena writes while working:
// composite outputs and label directories in work_dir, and the hidden
// temporary siblings of archives and vote files being written atomically.
func IsScratch(name string) bool {
	switch {
	case strings.HasPrefix(name, compositePrefix):
		return true
	case strings.HasPrefix(name, labelsPrefix):
		return true
	case strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp"):
		return true
	}
	return false
}

// List returns the scratch entries of every dir, oldest first. Missing
// directories are skipped.
func List(dirs ...string) ([]Entry, error) {
	var out []Entry
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if !IsScratch(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			size := info.Size()
			if entry.IsDir() {
				size, _ = dirSize(path)
			}
			out = append(out, Entry{
				Name:    entry.Name(),
				Path:    path,
				ModTime: info.ModTime(),
				Size:    size,
				Dir:     entry.IsDir(),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ModTime.Before(out[j].ModTime) })
	return out, nil
}

// CleanStale removes scratch entries older than maxAge from dirs. Entries
// younger than maxAge may belong to a composite that is still running and
// are left alone.
func CleanStale(ctx context.Context, maxAge time.Duration, logger *slog.Logger, dirs ...string) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := List(dirs...)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: strings.Join(dirs, ","), Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(entry.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entry.Path, Error: err})
			logger.Warn("failed to remove stale scratch entry",
				logging.String("path", entry.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, entry.Path)
		result.Freed += entry.Size
		logger.Info("removed stale scratch entry",
			logging.String("path", entry.Path),
			logging.Duration("age", time.Since(entry.ModTime)),
			logging.String(logging.FieldEventType, "scratch_cleanup"),
		)
	}
	return result
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
