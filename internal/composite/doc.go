// Package composite tiles one rendering per variant side by side into a
// single labelled artifact.
//
// Stills are decoded in Go and drawn onto an image.RGBA canvas whose width is
// the sum of the tile widths and whose height is the tallest tile. Videos are
// composited by ffmpeg: every input is retimed to a fixed frame rate, padded
// to the common height, overlaid with its label, and held on its last frame
// until the longest input ends.
//
// A Renderer owns one rendering surface. Render calls are serialized within
// the process by a mutex and across processes by a lock file in the work
// directory. Every media handle acquired for a render is released before
// Render returns, on success and on failure.
package composite
