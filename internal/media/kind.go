package media

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the media kind configured for a session.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// ParseKind converts a configuration value into a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVideo:
		return KindVideo, nil
	case KindImage:
		return KindImage, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", value)
	}
}

// HasTransport reports whether the kind supports play/pause/seek.
func (k Kind) HasTransport() bool {
	return k == KindVideo
}

var extensionKinds = map[string]Kind{
	".mp4":  KindVideo,
	".m4v":  KindVideo,
	".mov":  KindVideo,
	".mkv":  KindVideo,
	".webm": KindVideo,
	".avi":  KindVideo,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".bmp":  KindImage,
}

// KindOf classifies a file name by extension, falling back to the MIME type
// registered for the extension. It returns false when neither is conclusive.
func KindOf(name string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(stripQuery(name)))
	if ext == "" {
		return "", false
	}
	if kind, ok := extensionKinds[ext]; ok {
		return kind, true
	}
	return kindFromMIME(mime.TypeByExtension(ext))
}

// DetectFile classifies a local file, sniffing its leading bytes when the
// name alone is not conclusive.
func DetectFile(path string) (Kind, bool) {
	if kind, ok := KindOf(path); ok {
		return kind, true
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && n == 0 {
		return "", false
	}
	return kindFromMIME(http.DetectContentType(head[:n]))
}

func kindFromMIME(contentType string) (Kind, bool) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo, true
	case strings.HasPrefix(contentType, "image/"):
		return KindImage, true
	default:
		return "", false
	}
}

// BaseName strips the directory and the trailing extension from name. Query
// strings and fragments are ignored for URLs.
func BaseName(name string) string {
	base := filepath.Base(stripQuery(name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func stripQuery(name string) string {
	if !strings.Contains(name, "://") {
		return name
	}
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		return name[:idx]
	}
	return name
}
