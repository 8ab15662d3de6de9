package svgkit

import (
	"math"
	"strings"
)

// DimensionPreset is a named output size. A zero size keeps the original dimensions.
type DimensionPreset struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var dimensionPresets = [...]DimensionPreset{
	{"Original", 0, 0},
	{"Favicon 32x32", 32, 32},
	{"Favicon 64x64", 64, 64},
	{"Icon 128x128", 128, 128},
	{"Icon 256x256", 256, 256},
	{"Icon 512x512", 512, 512},
	{"Open Graph 1200x630", 1200, 630},
	{"Instagram 1200x1200", 1200, 1200},
}

var scaleFactors = [...]float64{1, 2, 3, 4}

// DimensionPresets returns the list of predefined output sizes.
func DimensionPresets() []DimensionPreset {
	presets := dimensionPresets
	return presets[:]
}

// LookupDimensionPreset finds a preset by its case insensitive name.
func LookupDimensionPreset(name string) (DimensionPreset, bool) {
	for _, p := range dimensionPresets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return DimensionPreset{}, false
}

// ScaleFactors returns the supported export scale factors.
func ScaleFactors() []float64 {
	factors := scaleFactors
	return factors[:]
}

// LockAspect completes a partially given size using the aspect ratio of the
// original dimensions. When only the width is set the height follows it and
// vice versa. A fully given or fully empty size is returned unchanged.
func LockAspect(origWidth, origHeight float64, width, height int) (int, int) {
	if origWidth <= 0 || origHeight <= 0 {
		return width, height
	}
	ratio := origWidth / origHeight
	switch {
	case width > 0 && height <= 0:
		height = int(math.Round(float64(width) / ratio))
	case height > 0 && width <= 0:
		width = int(math.Round(float64(height) * ratio))
	}
	return width, height
}

// ExportDimensions returns the final pixel size of an export: the custom
// size, or the original one when not set, multiplied by the scale factor.
func ExportDimensions(origWidth, origHeight float64, width, height int, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	w, h := float64(width), float64(height)
	if width <= 0 {
		w = origWidth
	}
	if height <= 0 {
		h = origHeight
	}
	return int(math.Round(w * scale)), int(math.Round(h * scale))
}

// OutputSize resolves the pixel size of an export of src: a partially given
// size is completed with the aspect ratio of the source, then the scale
// factor is applied.
func OutputSize(src Source, width, height int, scale float64) (int, int) {
	ow, oh := src.Size()
	w, h := LockAspect(ow, oh, width, height)
	return ExportDimensions(ow, oh, w, h, scale)
}
