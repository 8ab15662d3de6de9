package svgkit

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	// redSquareSVG is fully opaque and covers its whole canvas.
	redSquareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32" viewBox="0 0 32 32">
  <rect x="0" y="0" width="32" height="32" fill="#ff0000"/>
</svg>`

	// insetSVG leaves a transparent margin around a red square.
	insetSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10" viewBox="0 0 10 10">
  <rect x="3" y="3" width="4" height="4" fill="#ff0000"/>
</svg>`
)

// rectSource draws an opaque rectangle, given in fractions of the
// surface size, on a transparent surface.
type rectSource struct {
	c                      color.NRGBA
	x0, y0, x1, y1         float64
	intrinsicW, intrinsicH float64
}

func newRectSource(c color.NRGBA, x0, y0, x1, y1 float64) *rectSource {
	return &rectSource{c: c, x0: x0, y0: y0, x1: x1, y1: y1, intrinsicW: 100, intrinsicH: 50}
}

func (s *rectSource) Size() (float64, float64) {
	return s.intrinsicW, s.intrinsicH
}

func (s *rectSource) Rasterize(width, height int) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	r := image.Rect(
		int(s.x0*float64(width)), int(s.y0*float64(height)),
		int(s.x1*float64(width)), int(s.y1*float64(height)),
	)
	draw.Draw(img, r, &image.Uniform{C: s.c}, image.Point{}, draw.Src)
	return img, nil
}

// failingSource simulates an image which could not be decoded.
type failingSource struct{}

func (failingSource) Size() (float64, float64) { return 1, 1 }

func (failingSource) Rasterize(int, int) (*image.NRGBA, error) {
	return nil, errors.New("broken image")
}

// noisyImage returns a deterministic image with enough detail for the
// lossy codecs to produce quality dependent output sizes.
func noisyImage(width, height int) *image.NRGBA {
	rnd := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8(rnd.Intn(256)),
				A: 0xff,
			})
		}
	}
	return img
}

func mustSVGSource(t *testing.T, markup string) *SVGSource {
	t.Helper()
	src, err := NewSVGSource([]byte(markup))
	require.NoError(t, err)
	return src
}
