package svgkit

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/esimov/svgkit/imop"
)

// RasterRequest describes a single rasterization of a source image.
type RasterRequest struct {
	Source     Source
	Width      int
	Height     int
	Background string
	Filters    FilterChain
	// Composite names the operation laying the source over the background.
	// It defaults to source-over.
	Composite string
}

// Validate checks the request before any surface is allocated.
func (r RasterRequest) Validate() error {
	if r.Source == nil {
		return ErrNoSurface
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, r.Width, r.Height)
	}
	if _, err := compositeOp(r.Composite); err != nil {
		return err
	}
	return r.Filters.Validate()
}

func compositeOp(name string) (*imop.Composite, error) {
	op := imop.InitOp()
	if name == "" {
		return op, nil
	}
	if err := op.Set(name); err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	return op, nil
}

// Rasterize produces a Width x Height surface: the background fill (if any)
// with the filtered source composited onto it. Without a background the pixels
// not covered by the source stay fully transparent.
func Rasterize(ctx context.Context, req RasterRequest) (*image.NRGBA, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	surface := newSurface(req.Width, req.Height)
	if !IsTransparent(req.Background) {
		bg, err := ParseColor(req.Background)
		if err != nil {
			return nil, err
		}
		fill(surface, bg)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layer, err := req.Source.Rasterize(req.Width, req.Height)
	if err != nil {
		var derr *DecodeError
		if errors.As(err, &derr) {
			return nil, err
		}
		return nil, &DecodeError{Err: err}
	}
	if layer.Bounds().Dx() != req.Width || layer.Bounds().Dy() != req.Height {
		return nil, &DecodeError{Err: fmt.Errorf("source rendered at %dx%d instead of %dx%d",
			layer.Bounds().Dx(), layer.Bounds().Dy(), req.Width, req.Height)}
	}

	// The filters only affect the source layer, never the background.
	if !req.Filters.IsEmpty() {
		layer = req.Filters.Apply(layer)
	}

	op, err := compositeOp(req.Composite)
	if err != nil {
		return nil, err
	}
	op.Draw(&imop.Bitmap{Img: surface}, layer, surface)

	return surface, nil
}
