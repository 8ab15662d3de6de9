package svg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSvg_Dimensions(t *testing.T) {
	testCases := []struct {
		name   string
		markup string
		want   Size
	}{
		{"attributes", `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="32"></svg>`, Size{64, 32}},
		{"units", `<svg width="24px" height="12.5px" viewBox="0 0 100 100"></svg>`, Size{24, 12.5}},
		{"viewBox", `<svg viewBox="0 0 120 80"></svg>`, Size{120, 80}},
		{"viewBox with commas", `<svg viewBox="0,0,48,48"></svg>`, Size{48, 48}},
		{"only width", `<svg width="50" viewBox="0 0 10 20"></svg>`, Size{10, 20}},
		{"defaults", `<svg></svg>`, Size{DefaultWidth, DefaultHeight}},
		{"xml declaration", `<?xml version="1.0" encoding="UTF-8"?><!-- icon --><svg width="16" height="16"/>`, Size{16, 16}},
		{"not svg", `<html></html>`, Size{DefaultWidth, DefaultHeight}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Dimensions([]byte(tc.markup)))
		})
	}
}

func TestSvg_ParseViewBox(t *testing.T) {
	assert := assert.New(t)

	vb, ok := ParseViewBox("-5 10 200.5 100")
	assert.True(ok)
	assert.Equal(ViewBox{MinX: -5, MinY: 10, Width: 200.5, Height: 100}, vb)

	_, ok = ParseViewBox("0 0 100")
	assert.False(ok)

	_, ok = ParseViewBox("0 0 a 100")
	assert.False(ok)
}

func TestSvg_IsSVG(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsSVG([]byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`)))
	assert.True(IsSVG([]byte(`<?xml version="1.0"?><!DOCTYPE svg><svg></svg>`)))
	assert.False(IsSVG([]byte(`<div><svg></svg></div>`)))
	assert.False(IsSVG([]byte{0x89, 'P', 'N', 'G'}))
}

func TestSvg_ExtractColors(t *testing.T) {
	markup := `<svg>
		<rect fill="#FFF" stroke="#123456"/>
		<circle fill="rgb(10, 20, 30)" stroke="red"/>
		<path fill="hsl(120, 50%, 50%)" stroke="none" color="notacolor"/>
		<g fill="#fff" style="fill: #abc; stroke: currentColor"/>
		<line stroke="transparent" style="color:purple"/>
	</svg>`

	want := []string{
		"#ffffff",
		"#123456",
		"#aabbcc",
		"rgb(10, 20, 30)",
		"hsl(120, 50%, 50%)",
		"red",
		"purple",
	}
	assert.Equal(t, want, ExtractColors(markup))
}

func TestSvg_DataURI(t *testing.T) {
	assert := assert.New(t)
	markup := []byte(`<svg width="1" height="1"/>`)

	uri := DataURI(markup)
	assert.Contains(uri, "data:image/svg+xml;base64,")

	mime, data, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(MIMEType, mime)
	assert.Equal(markup, data)

	mime, data, err = DecodeDataURI(`data:image/svg+xml,%3Csvg%20width%3D%221%22%2F%3E`)
	require.NoError(t, err)
	assert.Equal(MIMEType, mime)
	assert.Equal(`<svg width="1"/>`, string(data))

	_, _, err = DecodeDataURI("image/svg+xml,<svg/>")
	assert.ErrorIs(err, ErrDataURI)
}
