package svgkit

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSurface is returned when there is nothing to draw onto or from,
	// e.g. a raster request without a source image.
	ErrNoSurface = errors.New("no drawing surface available")

	// ErrInvalidColor is returned for a background color that cannot be parsed.
	ErrInvalidColor = errors.New("invalid color value")

	// ErrInvalidDimensions is returned when the requested width or height is not positive.
	ErrInvalidDimensions = errors.New("width and height should be positive integers")

	// ErrInvalidFilter is returned when a filter string cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrIcoSize is returned for an icon size outside of the 1..256 range.
	ErrIcoSize = errors.New("ico image size should be between 1 and 256")

	// ErrTooManyImages is returned when an icon would hold more images than the header can count.
	ErrTooManyImages = errors.New("too many images for an ico container")
)

// DecodeError is returned when the source image could not be decoded or rasterized.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to load the source image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned when the requested export format is not recognized.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Format)
}
