// Package imop implements the Porter-Duff composition operations
// used for mixing a graphic layer with its backdrop.
// Porter and Duff presented in their paper 12 different composition operations,
// but the image/draw core package implements only the source-over-destination and source.
// This package covers the whole set on non-premultiplied NRGBA surfaces.
//
// The rasterization pipeline uses it to lay the (optionally filtered) source
// layer over the background fill, source-over unless the caller picks
// another operation.
package imop

import (
	"errors"
	"image"
	"math"

	"github.com/esimov/svgkit/utils"
)

// The supported composite operations.
const (
	Clear   = "clear"
	Copy    = "copy"
	Dst     = "dst"
	SrcOver = "src_over"
	DstOver = "dst_over"
	SrcIn   = "src_in"
	DstIn   = "dst_in"
	SrcOut  = "src_out"
	DstOut  = "dst_out"
	SrcAtop = "src_atop"
	DstAtop = "dst_atop"
	Xor     = "xor"
)

// ErrUnsupportedOp is returned when setting an unknown composite operation.
var ErrUnsupportedOp = errors.New("unsupported composite operation")

// Bitmap holds the result of a composition.
type Bitmap struct {
	Img *image.NRGBA
}

// Composite holds the currently active composite operation.
type Composite struct {
	current string
	ops     []string
}

var ops = []string{
	Clear,
	Copy,
	Dst,
	SrcOver,
	DstOver,
	SrcIn,
	DstIn,
	SrcOut,
	DstOut,
	SrcAtop,
	DstAtop,
	Xor,
}

// Ops lists the names of the supported composite operations.
func Ops() []string {
	return append([]string(nil), ops...)
}

// InitOp returns a new Composite with source-over as the active operation.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops:     ops,
	}
}

// Set activates one of the supported composite operations.
func (op *Composite) Set(cop string) error {
	if !utils.Contains(op.ops, cop) {
		return ErrUnsupportedOp
	}
	op.current = cop
	return nil
}

// factors returns the Porter-Duff coefficients Fa (source) and Fb (backdrop).
func (op *Composite) factors(as, ab float64) (float64, float64) {
	switch op.current {
	case Clear:
		return 0, 0
	case Copy:
		return 1, 0
	case Dst:
		return 0, 1
	case DstOver:
		return 1 - ab, 1
	case SrcIn:
		return ab, 0
	case DstIn:
		return 0, as
	case SrcOut:
		return 1 - ab, 0
	case DstOut:
		return 0, 1 - as
	case SrcAtop:
		return ab, 1 - as
	case DstAtop:
		return 1 - ab, as
	case Xor:
		return 1 - ab, 1 - as
	}
	// SrcOver
	return 1, 1 - as
}

// Draw composites src over backdrop with the active operation and writes the
// result into bitmap. The bitmap may be the backdrop itself. All three
// surfaces are expected to share the same bounds.
func (op *Composite) Draw(bitmap *Bitmap, src, backdrop *image.NRGBA) {
	if bitmap.Img == nil {
		bitmap.Img = image.NewNRGBA(src.Bounds())
	}
	dx, dy := src.Bounds().Dx(), src.Bounds().Dy()

	for y := 0; y < dy; y++ {
		si := y * src.Stride
		bi := y * backdrop.Stride
		di := y * bitmap.Img.Stride
		for x := 0; x < dx; x++ {
			s := src.Pix[si : si+4 : si+4]
			b := backdrop.Pix[bi : bi+4 : bi+4]
			d := bitmap.Img.Pix[di : di+4 : di+4]

			switch {
			// Fast paths keeping the exact channel values for the common source-over cases.
			case op.current == SrcOver && s[3] == 0xff:
				copy(d, s)
			case op.current == SrcOver && s[3] == 0:
				copy(d, b)
			default:
				op.blendPixel(d, s, b)
			}

			si += 4
			bi += 4
			di += 4
		}
	}
}

// blendPixel applies the alpha composition formula on a single pixel:
// co = as*Cs*Fa + ab*Cb*Fb and ao = as*Fa + ab*Fb.
func (op *Composite) blendPixel(d, s, b []uint8) {
	as := float64(s[3]) / 255
	ab := float64(b[3]) / 255
	fa, fb := op.factors(as, ab)

	ao := as*fa + ab*fb
	if ao <= 0 {
		d[0], d[1], d[2], d[3] = 0, 0, 0, 0
		return
	}

	for c := 0; c < 3; c++ {
		cs := float64(s[c]) / 255
		cb := float64(b[c]) / 255
		co := (as*cs*fa + ab*cb*fb) / ao
		d[c] = uint8(math.Round(utils.Min(co, 1) * 255))
	}
	d[3] = uint8(math.Round(utils.Min(ao, 1) * 255))
}
