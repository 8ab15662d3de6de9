package svgkit

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// FilterKind identifies one of the supported CSS filter functions.
type FilterKind string

const (
	Brightness FilterKind = "brightness"
	Contrast   FilterKind = "contrast"
	Saturate   FilterKind = "saturate"
	HueRotate  FilterKind = "hue-rotate"
	Grayscale  FilterKind = "grayscale"
	Sepia      FilterKind = "sepia"
	Blur       FilterKind = "blur"
	Invert     FilterKind = "invert"
)

// NoFilter is the serialized form of a chain without any effective filter.
const NoFilter = "none"

// filterDef describes how a filter kind is validated and serialized.
type filterDef struct {
	identity float64
	min, max float64
	unit     string
}

var filterDefs = map[FilterKind]filterDef{
	Brightness: {identity: 100, min: 0, max: 200, unit: "%"},
	Contrast:   {identity: 100, min: 0, max: 200, unit: "%"},
	Saturate:   {identity: 100, min: 0, max: 200, unit: "%"},
	HueRotate:  {identity: 0, min: 0, max: 360, unit: "deg"},
	Grayscale:  {identity: 0, min: 0, max: 100, unit: "%"},
	Sepia:      {identity: 0, min: 0, max: 100, unit: "%"},
	Blur:       {identity: 0, min: 0, max: 20, unit: "px"},
	Invert:     {identity: 0, min: 0, max: 100, unit: "%"},
}

// Filter is a single (kind, value) entry of a filter chain.
type Filter struct {
	Kind  FilterKind
	Value float64
}

// IsIdentity reports whether the filter leaves the pixels unchanged.
func (f Filter) IsIdentity() bool {
	def, ok := filterDefs[f.Kind]
	return ok && f.Value == def.identity
}

// String returns the CSS function form of the filter, e.g. "brightness(120%)".
func (f Filter) String() string {
	def := filterDefs[f.Kind]
	return fmt.Sprintf("%s(%s%s)", f.Kind, strconv.FormatFloat(f.Value, 'f', -1, 64), def.unit)
}

// FilterChain is an ordered sequence of filters applied while drawing the source image.
type FilterChain []Filter

// String serializes the chain into the CSS filter grammar.
// Identity entries are omitted and an effectively empty chain yields "none".
func (c FilterChain) String() string {
	parts := make([]string, 0, len(c))
	for _, f := range c {
		if f.IsIdentity() {
			continue
		}
		parts = append(parts, f.String())
	}
	if len(parts) == 0 {
		return NoFilter
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether the chain serializes to "none".
func (c FilterChain) IsEmpty() bool {
	for _, f := range c {
		if !f.IsIdentity() {
			return false
		}
	}
	return true
}

// Validate checks every entry against the kind's accepted range.
func (c FilterChain) Validate() error {
	for _, f := range c {
		def, ok := filterDefs[f.Kind]
		if !ok {
			return fmt.Errorf("%w: unknown filter %q", ErrInvalidFilter, f.Kind)
		}
		if math.IsNaN(f.Value) || f.Value < def.min || f.Value > def.max {
			return fmt.Errorf("%w: %s value %v out of range [%v, %v]",
				ErrInvalidFilter, f.Kind, f.Value, def.min, def.max)
		}
	}
	return nil
}

var filterTokenRe = regexp.MustCompile(`([a-z-]+)\(\s*([-+]?(?:\d+\.?\d*|\.\d+))\s*(%|deg|px)?\s*\)`)

// ParseFilter parses a CSS filter string like "brightness(120%) blur(2px)".
// Unit-less values of percentage filters are taken as fractions, as CSS does.
func ParseFilter(s string) (FilterChain, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NoFilter {
		return FilterChain{}, nil
	}

	var chain FilterChain
	rest := s
	for _, m := range filterTokenRe.FindAllStringSubmatchIndex(s, -1) {
		name := FilterKind(s[m[2]:m[3]])
		def, ok := filterDefs[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidFilter, name)
		}
		val, err := strconv.ParseFloat(s[m[4]:m[5]], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		unit := ""
		if m[6] >= 0 {
			unit = s[m[6]:m[7]]
		}
		switch {
		case unit == "" && def.unit == "%":
			val *= 100
		case unit == "" && val != 0:
			return nil, fmt.Errorf("%w: %s requires a %s unit", ErrInvalidFilter, name, def.unit)
		case unit != "" && unit != def.unit:
			return nil, fmt.Errorf("%w: %s does not accept %q", ErrInvalidFilter, name, unit)
		}
		chain = append(chain, Filter{Kind: name, Value: val})
		rest = strings.Replace(rest, s[m[0]:m[1]], "", 1)
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidFilter, strings.TrimSpace(rest))
	}
	return chain, nil
}

// FilterSettings holds the value of every adjustable filter.
type FilterSettings struct {
	Brightness float64 `yaml:"brightness" json:"brightness"`
	Contrast   float64 `yaml:"contrast" json:"contrast"`
	Saturate   float64 `yaml:"saturate" json:"saturate"`
	HueRotate  float64 `yaml:"hue_rotate" json:"hueRotate"`
	Grayscale  float64 `yaml:"grayscale" json:"grayscale"`
	Sepia      float64 `yaml:"sepia" json:"sepia"`
	Blur       float64 `yaml:"blur" json:"blur"`
	Invert     float64 `yaml:"invert" json:"invert"`
}

// DefaultFilters is the neutral setting: every filter at its identity value.
var DefaultFilters = FilterSettings{
	Brightness: 100,
	Contrast:   100,
	Saturate:   100,
}

// Chain converts the settings into a filter chain in canonical order.
func (s FilterSettings) Chain() FilterChain {
	return FilterChain{
		{Brightness, s.Brightness},
		{Contrast, s.Contrast},
		{Saturate, s.Saturate},
		{HueRotate, s.HueRotate},
		{Grayscale, s.Grayscale},
		{Sepia, s.Sepia},
		{Blur, s.Blur},
		{Invert, s.Invert},
	}
}

// String returns the CSS filter string of the settings.
func (s FilterSettings) String() string {
	return s.Chain().String()
}

// filterPresets only lists the values which differ from DefaultFilters.
var filterPresets = map[string]func(*FilterSettings){
	"none":         func(*FilterSettings) {},
	"grayscale":    func(s *FilterSettings) { s.Grayscale = 100 },
	"sepia":        func(s *FilterSettings) { s.Sepia = 100 },
	"highContrast": func(s *FilterSettings) { s.Contrast = 150; s.Brightness = 110 },
	"inverted":     func(s *FilterSettings) { s.Invert = 100 },
	"vintage": func(s *FilterSettings) {
		s.Sepia = 40
		s.Contrast = 90
		s.Brightness = 110
		s.Saturate = 80
	},
}

// FilterPreset returns the named preset applied on top of the default settings.
func FilterPreset(name string) (FilterSettings, bool) {
	apply, ok := filterPresets[name]
	if !ok {
		return DefaultFilters, false
	}
	s := DefaultFilters
	apply(&s)
	return s, true
}

// FilterPresetNames returns the names of the available presets in a stable order.
func FilterPresetNames() []string {
	return []string{"none", "grayscale", "sepia", "highContrast", "inverted", "vintage"}
}

// ResolveFilter accepts either the name of a preset or a CSS filter string.
func ResolveFilter(s string) (FilterChain, error) {
	if preset, ok := FilterPreset(strings.TrimSpace(s)); ok {
		return preset.Chain(), nil
	}
	return ParseFilter(s)
}

// Apply renders the filter chain onto a copy of the image and returns it.
// The color functions follow the CSS Filter Effects definitions. Consecutive
// color functions are evaluated per pixel with clamping after each step, and
// blur is a gaussian blur whose standard deviation equals the pixel radius.
// Beyond the image edges blur samples transparent pixels.
func (c FilterChain) Apply(src *image.NRGBA) *image.NRGBA {
	dst := imaging.Clone(src)

	var run []Filter
	flush := func() {
		if len(run) > 0 {
			applyColorFilters(dst, run)
			run = run[:0]
		}
	}
	for _, f := range c {
		if f.IsIdentity() {
			continue
		}
		if f.Kind == Blur {
			flush()
			dst = blur(dst, f.Value)
			continue
		}
		run = append(run, f)
	}
	flush()

	return dst
}

// blur pads the image with transparent pixels up to the kernel radius, so
// the edges fade out instead of repeating the border pixels.
func blur(img *image.NRGBA, sigma float64) *image.NRGBA {
	pad := int(math.Ceil(sigma * 3))
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	padded := imaging.New(w+2*pad, h+2*pad, color.NRGBA{})
	padded = imaging.Paste(padded, img, image.Pt(pad, pad))
	padded = imaging.Blur(padded, sigma)

	return imaging.Crop(padded, image.Rect(pad, pad, pad+w, pad+h))
}

// colorMatrix is a 3x3 matrix applied on the RGB channels.
type colorMatrix [9]float64

func (m colorMatrix) apply(r, g, b float64) (float64, float64, float64) {
	return clamp(m[0]*r+m[1]*g+m[2]*b, 0, 1),
		clamp(m[3]*r+m[4]*g+m[5]*b, 0, 1),
		clamp(m[6]*r+m[7]*g+m[8]*b, 0, 1)
}

func saturateMatrix(s float64) colorMatrix {
	return colorMatrix{
		0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
		0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
	}
}

func hueRotateMatrix(deg float64) colorMatrix {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return colorMatrix{
		0.213 + cos*0.787 - sin*0.213, 0.715 - cos*0.715 - sin*0.715, 0.072 - cos*0.072 + sin*0.928,
		0.213 - cos*0.213 + sin*0.143, 0.715 + cos*0.285 + sin*0.140, 0.072 - cos*0.072 - sin*0.283,
		0.213 - cos*0.213 - sin*0.787, 0.715 - cos*0.715 + sin*0.715, 0.072 + cos*0.928 + sin*0.072,
	}
}

func grayscaleMatrix(amount float64) colorMatrix {
	s := 1 - clamp(amount, 0, 1)
	return colorMatrix{
		0.2126 + 0.7874*s, 0.7152 - 0.7152*s, 0.0722 - 0.0722*s,
		0.2126 - 0.2126*s, 0.7152 + 0.2848*s, 0.0722 - 0.0722*s,
		0.2126 - 0.2126*s, 0.7152 - 0.7152*s, 0.0722 + 0.9278*s,
	}
}

func sepiaMatrix(amount float64) colorMatrix {
	s := 1 - clamp(amount, 0, 1)
	return colorMatrix{
		0.393 + 0.607*s, 0.769 - 0.769*s, 0.189 - 0.189*s,
		0.349 - 0.349*s, 0.686 + 0.314*s, 0.168 - 0.168*s,
		0.272 - 0.272*s, 0.534 - 0.534*s, 0.131 + 0.869*s,
	}
}

// pixelOp transforms a normalized RGB triplet.
type pixelOp func(r, g, b float64) (float64, float64, float64)

func colorOp(f Filter) pixelOp {
	amount := f.Value / 100
	switch f.Kind {
	case Brightness:
		return func(r, g, b float64) (float64, float64, float64) {
			return clamp(r*amount, 0, 1), clamp(g*amount, 0, 1), clamp(b*amount, 0, 1)
		}
	case Contrast:
		icpt := 0.5 - 0.5*amount
		return func(r, g, b float64) (float64, float64, float64) {
			return clamp(r*amount+icpt, 0, 1), clamp(g*amount+icpt, 0, 1), clamp(b*amount+icpt, 0, 1)
		}
	case Invert:
		a := clamp(amount, 0, 1)
		return func(r, g, b float64) (float64, float64, float64) {
			return a + r*(1-2*a), a + g*(1-2*a), a + b*(1-2*a)
		}
	case Saturate:
		return saturateMatrix(amount).apply
	case HueRotate:
		return hueRotateMatrix(f.Value).apply
	case Grayscale:
		return grayscaleMatrix(amount).apply
	case Sepia:
		return sepiaMatrix(amount).apply
	}
	return func(r, g, b float64) (float64, float64, float64) { return r, g, b }
}

// applyColorFilters runs the color functions over the non-premultiplied pixels in place.
func applyColorFilters(img *image.NRGBA, filters []Filter) {
	ops := make([]pixelOp, len(filters))
	for i, f := range filters {
		ops[i] = colorOp(f)
	}

	dx, dy := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < dy; y++ {
		i := y * img.Stride
		for x := 0; x < dx; x++ {
			px := img.Pix[i : i+4 : i+4]
			if px[3] != 0 {
				r := float64(px[0]) / 255
				g := float64(px[1]) / 255
				b := float64(px[2]) / 255
				for _, op := range ops {
					r, g, b = op(r, g, b)
				}
				px[0] = uint8(math.Round(r * 255))
				px[1] = uint8(math.Round(g * 255))
				px[2] = uint8(math.Round(b * 255))
			}
			i += 4
		}
	}
}
