package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Source is one variant's media for one test case. Exactly one of Path or URL
// is set.
type Source struct {
	VariantID    string `json:"variant_id"`
	Path         string `json:"path,omitempty"`
	URL          string `json:"url,omitempty"`
	OriginalName string `json:"original_name"`
}

// LocalSource builds a Source for a file on disk.
func LocalSource(variantID, path string) Source {
	return Source{VariantID: variantID, Path: path, OriginalName: filepath.Base(path)}
}

// RemoteSource builds a Source that is passed through by URL.
func RemoteSource(variantID, url string) Source {
	return Source{VariantID: variantID, URL: url, OriginalName: BaseName(url) + remoteExt(url)}
}

// IsURL reports whether value looks like a remote reference.
func IsURL(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// Validate ensures exactly one location is present.
func (s Source) Validate() error {
	hasPath := strings.TrimSpace(s.Path) != ""
	hasURL := strings.TrimSpace(s.URL) != ""
	switch {
	case hasPath && hasURL:
		return fmt.Errorf("source %q: both path and url set", s.OriginalName)
	case !hasPath && !hasURL:
		return errors.New("source has neither path nor url")
	case hasURL && !IsURL(s.URL):
		return fmt.Errorf("source %q: unsupported url scheme", s.URL)
	}
	return nil
}

// IsRemote reports whether the source is a remote reference.
func (s Source) IsRemote() bool {
	return strings.TrimSpace(s.URL) != ""
}

// Location returns the path or URL, whichever is set.
func (s Source) Location() string {
	if s.IsRemote() {
		return s.URL
	}
	return s.Path
}

// Name returns a display name for the source.
func (s Source) Name() string {
	if s.OriginalName != "" {
		return s.OriginalName
	}
	return filepath.Base(s.Location())
}

func remoteExt(url string) string {
	if idx := strings.IndexAny(url, "?#"); idx >= 0 {
		url = url[:idx]
	}
	return filepath.Ext(url)
}
