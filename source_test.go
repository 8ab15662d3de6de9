package svgkit

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/esimov/svgkit/svg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_SVG(t *testing.T) {
	assert := assert.New(t)

	src, err := DecodeSource(strings.NewReader(redSquareSVG))
	require.NoError(t, err)
	assert.IsType(&SVGSource{}, src)

	w, h := src.Size()
	assert.Equal(32.0, w)
	assert.Equal(32.0, h)

	img, err := src.Rasterize(8, 4)
	require.NoError(t, err)
	assert.Equal(image.Rect(0, 0, 8, 4), img.Bounds())
	assert.Equal(color.NRGBA{R: 255, A: 255}, img.NRGBAAt(4, 2))
}

func TestSource_SVGWithoutViewBox(t *testing.T) {
	markup := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="5" height="10" fill="blue"/></svg>`
	src, err := DecodeSourceBytes([]byte(markup))
	require.NoError(t, err)

	// The document is scaled from its width and height attributes.
	img, err := src.Rasterize(20, 20)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(5, 10))
	assert.Equal(t, uint8(0), img.NRGBAAt(15, 10).A)
}

func TestSource_DataURI(t *testing.T) {
	src, err := DecodeSourceBytes([]byte(svg.DataURI([]byte(insetSVG))))
	require.NoError(t, err)

	w, h := src.Size()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 10.0, h)

	_, err = DecodeSourceBytes([]byte("data:text/html,<p>hi</p>"))
	var derr *DecodeError
	assert.True(t, errors.As(err, &derr))
}

func TestSource_Raster(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noisyImage(40, 20)))

	src, err := DecodeSource(&buf)
	require.NoError(t, err)
	assert.IsType(&ImageSource{}, src)

	w, h := src.Size()
	assert.Equal(40.0, w)
	assert.Equal(20.0, h)

	img, err := src.Rasterize(10, 10)
	require.NoError(t, err)
	assert.Equal(image.Rect(0, 0, 10, 10), img.Bounds())

	_, err = src.Rasterize(0, 10)
	assert.ErrorIs(err, ErrInvalidDimensions)
}

func TestSource_Icon(t *testing.T) {
	icon, err := BuildIco(context.Background(), pngFactory, []int{16, 48})
	require.NoError(t, err)

	src, err := DecodeSourceBytes(icon.Bytes())
	require.NoError(t, err)

	w, h := src.Size()
	assert.Equal(t, w, h)
}

func TestSource_Invalid(t *testing.T) {
	for _, in := range []string{"", "hello world", "<html><body/></html>"} {
		_, err := DecodeSourceBytes([]byte(in))
		var derr *DecodeError
		assert.True(t, errors.As(err, &derr), "input %q", in)
	}
}
