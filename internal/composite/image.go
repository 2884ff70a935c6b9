package composite

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"arena/internal/media"
	"arena/internal/services"
)

const jpegQuality = 92

// decodeImage is swapped in tests.
var decodeImage = func(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

func (r *Renderer) renderImage(ctx context.Context, tiles []Tile, handles []*media.Handle) (Artifact, error) {
	images := make([]image.Image, len(tiles))
	group, gctx := errgroup.WithContext(ctx)
	for i := range tiles {
		group.Go(func() error {
			img, err := decodeHandle(gctx, handles[i])
			if err != nil {
				return sourceError(tiles[i], services.ErrDecode, "decode", err)
			}
			images[i] = img
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Artifact{}, err
	}

	canvas := Compose(images, labels(tiles), r.opts.LabelScale)
	ext := r.opts.ImageFormat
	if ext == "jpeg" {
		ext = "jpg"
	}
	path, err := r.outputPath(ext)
	if err != nil {
		return Artifact{}, err
	}
	size, err := encodeImage(path, canvas, r.opts.ImageFormat)
	if err != nil {
		_ = os.Remove(path)
		return Artifact{}, services.Wrap(services.ErrEncode, "composite", "encode image", r.opts.ImageFormat, err)
	}
	bounds := canvas.Bounds()
	return Artifact{Path: path, Ext: ext, Width: bounds.Dx(), Height: bounds.Dy(), Size: size}, nil
}

func decodeHandle(ctx context.Context, h *media.Handle) (image.Image, error) {
	rc, err := h.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return decodeImage(bufio.NewReader(rc))
}

// Compose lays images left to right on a canvas as wide as their summed
// widths and as tall as the tallest, then labels each tile in its top-left
// corner. Shorter tiles leave transparent space below them.
func Compose(images []image.Image, names []string, labelScale int) *image.RGBA {
	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	scale := labelScale
	if scale <= 0 {
		scale = AutoLabelScale(height)
	}
	x := 0
	for i, img := range images {
		b := img.Bounds()
		tile := image.Rect(x, 0, x+b.Dx(), b.Dy())
		draw.Draw(canvas, tile, img, b.Min, draw.Src)
		if i < len(names) {
			DrawLabel(canvas, tile.Min, names[i], scale)
		}
		x += b.Dx()
	}
	return canvas
}

func encodeImage(path string, img image.Image, format string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	switch format {
	case "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(w, img)
	default:
		return 0, fmt.Errorf("%w: image format %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), f.Close()
}

func labels(tiles []Tile) []string {
	out := make([]string, len(tiles))
	for i, tile := range tiles {
		out[i] = tile.Label
	}
	return out
}
