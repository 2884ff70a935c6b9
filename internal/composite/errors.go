package composite

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSources is returned when Render is called without tiles.
	ErrNoSources = errors.New("composite requires at least one source")
	// ErrSurface is returned when the rendering surface cannot be acquired.
	ErrSurface = errors.New("rendering surface unavailable")
	// ErrUnsupportedFormat is returned when no configured output format can
	// be encoded.
	ErrUnsupportedFormat = errors.New("no supported output format")
)

// SourceError identifies the tile whose media failed to load or decode.
type SourceError struct {
	VariantID string
	Name      string
	Err       error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q (variant %s): %v", e.Name, e.VariantID, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
