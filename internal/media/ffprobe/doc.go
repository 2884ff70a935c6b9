// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe against a local path or a remote URL; the Result
// helpers expose the native video dimensions and duration used to lay out
// side-by-side composites and to size the headless playback clock.
package ffprobe
