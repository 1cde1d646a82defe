// Package share composes and caches the 1200x630 social share cards.
package share

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Share cards target the Open Graph recommended canvas.
const (
	CanvasWidth  = 1200
	CanvasHeight = 630
	JPEGQuality  = 85

	// MaxSources caps how many project images one card composites.
	MaxSources = 6
)

// gridFor returns the column/row layout for n source images.
func gridFor(n int) (cols, rows int) {
	switch {
	case n <= 1:
		return 1, 1
	case n == 2:
		return 2, 1
	case n <= 4:
		return 2, 2
	default:
		return 3, 2
	}
}

// Compose lays the source images out on the share canvas. Each image is
// cover-fit into its cell: scaled to fill and center-cropped. At most
// MaxSources images are used; cells beyond the source count stay
// background-colored.
func Compose(sources []image.Image) image.Image {
	if len(sources) > MaxSources {
		sources = sources[:MaxSources]
	}
	canvas := imaging.New(CanvasWidth, CanvasHeight, color.NRGBA{R: 20, G: 20, B: 20, A: 255})

	cols, rows := gridFor(len(sources))
	cellW := CanvasWidth / cols
	cellH := CanvasHeight / rows
	for i, src := range sources {
		cell := imaging.Fill(src, cellW, cellH, imaging.Center, imaging.Lanczos)
		x := (i % cols) * cellW
		y := (i / cols) * cellH
		canvas = imaging.Paste(canvas, cell, image.Pt(x, y))
	}
	return canvas
}

// EncodeJPEG renders a composed card to JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode share card: %w", err)
	}
	return buf.Bytes(), nil
}
