package svgkit

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColor_Parse(t *testing.T) {
	testCases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#fff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#3366CC", color.NRGBA{R: 0x33, G: 0x66, B: 0xcc, A: 255}},
		{"#ff000080", color.NRGBA{R: 255, A: 0x80}},
		{"#f008", color.NRGBA{R: 255, A: 0x88}},
		{"rgb(10, 20, 30)", color.NRGBA{R: 10, G: 20, B: 30, A: 255}},
		{"rgba(10, 20, 30, 0.5)", color.NRGBA{R: 10, G: 20, B: 30, A: 128}},
		{"rgb(100%, 0%, 0%)", color.NRGBA{R: 255, A: 255}},
		{"hsl(120, 100%, 50%)", color.NRGBA{G: 255, A: 255}},
		{"hsla(0, 100%, 50%, 0.5)", color.NRGBA{R: 255, A: 128}},
		{"Red", color.NRGBA{R: 255, A: 255}},
		{"transparent", color.NRGBA{}},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			c, err := ParseColor(tc.in)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, c)
		})
	}
}

func TestColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#gggggg", "rgb(1,2)", "hsl(1, 2, 3)", "notacolor"} {
		_, err := ParseColor(in)
		assert.ErrorIs(t, err, ErrInvalidColor, in)
	}
}

func TestColor_IsTransparent(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsTransparent(""))
	assert.True(IsTransparent(" Transparent "))
	assert.False(IsTransparent("#ffffff"))
}
