package composite

import (
	"fmt"
	"os"
	"time"

	"arena/internal/fileutil"
	"arena/internal/media"
)

// Tile is one horizontal slot of a composite, in draw order.
type Tile struct {
	Label  string
	Source media.Source
}

// Artifact is a finished composite written to the work directory. It is
// transient: the caller moves it to its destination or calls Discard.
type Artifact struct {
	Path     string
	Ext      string
	Width    int
	Height   int
	Size     int64
	Duration time.Duration
}

// Discard removes the artifact file.
func (a Artifact) Discard() error {
	if a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("discard artifact: %w", err)
	}
	return nil
}

// MoveTo moves the artifact file to dest.
func (a Artifact) MoveTo(dest string) error {
	if err := fileutil.MoveFile(a.Path, dest); err != nil {
		return fmt.Errorf("move artifact to %s: %w", dest, err)
	}
	return nil
}
