package share

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.NRGBA, w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestGridFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n, cols, rows int
	}{
		{1, 1, 1}, {2, 2, 1}, {3, 2, 2}, {4, 2, 2}, {5, 3, 2}, {6, 3, 2},
	}
	for _, tc := range cases {
		cols, rows := gridFor(tc.n)
		assert.Equal(t, tc.cols, cols, "n=%d", tc.n)
		assert.Equal(t, tc.rows, rows, "n=%d", tc.n)
	}
}

func TestComposeCanvasSize(t *testing.T) {
	t.Parallel()

	red := solid(color.NRGBA{R: 255, A: 255}, 300, 900)
	out := Compose([]image.Image{red})
	assert.Equal(t, CanvasWidth, out.Bounds().Dx())
	assert.Equal(t, CanvasHeight, out.Bounds().Dy())
}

func TestComposeCoverFitsEachCell(t *testing.T) {
	t.Parallel()

	red := solid(color.NRGBA{R: 255, A: 255}, 100, 400)
	blue := solid(color.NRGBA{B: 255, A: 255}, 400, 100)
	out := Compose([]image.Image{red, blue})

	// Two sources: side-by-side 600x630 cells, fully covered despite the
	// extreme source aspect ratios.
	r, _, _, _ := out.At(300, 315).RGBA()
	assert.NotZero(t, r, "left cell should be red")
	_, _, b, _ := out.At(900, 315).RGBA()
	assert.NotZero(t, b, "right cell should be blue")
}

func TestComposeCapsSources(t *testing.T) {
	t.Parallel()

	var many []image.Image
	for range 9 {
		many = append(many, solid(color.NRGBA{G: 255, A: 255}, 50, 50))
	}
	out := Compose(many)
	assert.Equal(t, CanvasWidth, out.Bounds().Dx())
}

func TestEncodeJPEG(t *testing.T) {
	t.Parallel()

	data, err := EncodeJPEG(Compose([]image.Image{solid(color.NRGBA{R: 10, A: 255}, 64, 64)}))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, CanvasWidth, cfg.Width)
	assert.Equal(t, CanvasHeight, cfg.Height)
}
