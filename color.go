package svgkit

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Transparent is the background value which leaves the surface untouched.
const Transparent = "transparent"

var (
	rgbFuncRe = regexp.MustCompile(`^rgba?\(\s*([\d.]+%?)\s*[,\s]\s*([\d.]+%?)\s*[,\s]\s*([\d.]+%?)\s*(?:[,/]\s*([\d.]+%?)\s*)?\)$`)
	hslFuncRe = regexp.MustCompile(`^hsla?\(\s*([\d.]+)(?:deg)?\s*[,\s]\s*([\d.]+)%\s*[,\s]\s*([\d.]+)%\s*(?:[,/]\s*([\d.]+%?)\s*)?\)$`)
)

// IsTransparent reports whether the background value means "no fill".
func IsTransparent(bg string) bool {
	bg = strings.TrimSpace(bg)
	return bg == "" || strings.EqualFold(bg, Transparent)
}

// ParseColor converts a CSS color value into a non-premultiplied color.
// It understands hex notations (#rgb, #rrggbb, #rrggbbaa), the rgb()/rgba()
// and hsl()/hsla() functions, CSS named colors and "transparent".
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return color.NRGBA{}, fmt.Errorf("%w: empty value", ErrInvalidColor)
	}
	if v == Transparent {
		return color.NRGBA{}, nil
	}

	switch {
	case strings.HasPrefix(v, "#"):
		return parseHex(v)
	case strings.HasPrefix(v, "rgb"):
		m := rgbFuncRe.FindStringSubmatch(v)
		if m == nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		c := color.NRGBA{
			R: channel(m[1]),
			G: channel(m[2]),
			B: channel(m[3]),
			A: 0xff,
		}
		if m[4] != "" {
			c.A = alpha(m[4])
		}
		return c, nil
	case strings.HasPrefix(v, "hsl"):
		m := hslFuncRe.FindStringSubmatch(v)
		if m == nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		h, _ := strconv.ParseFloat(m[1], 64)
		sat, _ := strconv.ParseFloat(m[2], 64)
		lum, _ := strconv.ParseFloat(m[3], 64)
		r, g, b := colorful.Hsl(math.Mod(h, 360), clamp(sat/100, 0, 1), clamp(lum/100, 0, 1)).Clamped().RGB255()
		c := color.NRGBA{R: r, G: g, B: b, A: 0xff}
		if m[4] != "" {
			c.A = alpha(m[4])
		}
		return c, nil
	}

	if named, ok := colornames.Map[v]; ok {
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: named.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// parseHex handles the hex notations. The 3 and 6 digit forms are delegated to go-colorful.
func parseHex(v string) (color.NRGBA, error) {
	switch len(v) {
	case 4, 7:
		c, err := colorful.Hex(v)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %v", ErrInvalidColor, err)
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
	case 5, 9:
		// #rgba and #rrggbbaa
		digits := v[1:]
		if len(digits) == 4 {
			var sb strings.Builder
			for _, d := range digits {
				sb.WriteRune(d)
				sb.WriteRune(d)
			}
			digits = sb.String()
		}
		n, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
		}
		return color.NRGBA{
			R: uint8(n >> 24),
			G: uint8(n >> 16),
			B: uint8(n >> 8),
			A: uint8(n),
		}, nil
	}
	return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, v)
}

func channel(s string) uint8 {
	if strings.HasSuffix(s, "%") {
		f, _ := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		return uint8(math.Round(clamp(f, 0, 100) * 255 / 100))
	}
	f, _ := strconv.ParseFloat(s, 64)
	return uint8(math.Round(clamp(f, 0, 255)))
}

func alpha(s string) uint8 {
	if strings.HasSuffix(s, "%") {
		f, _ := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		return uint8(math.Round(clamp(f, 0, 100) * 255 / 100))
	}
	f, _ := strconv.ParseFloat(s, 64)
	return uint8(math.Round(clamp(f, 0, 1) * 255))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
