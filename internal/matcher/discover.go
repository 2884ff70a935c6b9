package matcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arena/internal/media"
)

// Discover lists the files in dir that classify as kind. The listing is not
// recursive; hidden entries and directories are skipped. Names are returned
// as full paths sorted lexicographically, which fixes the "first file" used by
// PolicyFirst.
func Discover(dir string, kind media.Kind) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read variant dir %q: %w", dir, err)
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		got, ok := media.DetectFile(path)
		if !ok || got != kind {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// Filter keeps the entries of names (paths or URLs) that classify as kind.
// Local paths without a recognised extension are sniffed.
func Filter(names []string, kind media.Kind) []string {
	var out []string
	for _, name := range names {
		got, ok := media.KindOf(name)
		if !ok && !media.IsURL(name) {
			got, ok = media.DetectFile(name)
		}
		if ok && got == kind {
			out = append(out, name)
		}
	}
	return out
}
