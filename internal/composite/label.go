package composite

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	labelPadding   = 4
	labelReference = 360
	labelBandAlpha = 0xb0
	labelMaxScale  = 8
)

var (
	labelBand = color.NRGBA{A: labelBandAlpha}
	labelText = color.White
)

// AutoLabelScale picks an integer label scale so labels stay legible on tall
// tiles: 1 up to 360 pixels, growing by one per 360 pixels after that.
func AutoLabelScale(height int) int {
	scale := height / labelReference
	if scale < 1 {
		return 1
	}
	if scale > labelMaxScale {
		return labelMaxScale
	}
	return scale
}

// LabelImage renders text on a semi-opaque band at the given scale.
func LabelImage(text string, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Face: face}
	textWidth := drawer.MeasureString(text).Ceil()
	metrics := face.Metrics()
	w := textWidth + 2*labelPadding
	h := (metrics.Ascent + metrics.Descent).Ceil() + 2*labelPadding

	band := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(band, band.Bounds(), image.NewUniform(labelBand), image.Point{}, draw.Src)
	drawer.Dst = band
	drawer.Src = image.NewUniform(labelText)
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(labelPadding),
		Y: fixed.I(labelPadding) + metrics.Ascent,
	}
	drawer.DrawString(text)
	if scale == 1 {
		return band
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), band, band.Bounds(), xdraw.Src, nil)
	return scaled
}

// DrawLabel composites a label onto dst with its top-left corner at at.
func DrawLabel(dst draw.Image, at image.Point, text string, scale int) {
	if text == "" {
		return
	}
	label := LabelImage(text, scale)
	rect := label.Bounds().Add(at).Intersect(dst.Bounds())
	draw.Draw(dst, rect, label, image.Point{}, draw.Over)
}
