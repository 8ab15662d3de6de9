package svgkit

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/esimov/svgkit/svg"
	ico "github.com/sergeymakinen/go-ico"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// Source is a decoded image handle which can be drawn at any size.
type Source interface {
	// Rasterize renders the source stretched to exactly width x height pixels.
	Rasterize(width, height int) (*image.NRGBA, error)
	// Size returns the intrinsic dimensions of the source.
	Size() (float64, float64)
}

// SVGSource renders vector markup through the oksvg rasterizer.
type SVGSource struct {
	data          []byte
	width, height float64
}

// NewSVGSource validates the markup and returns a source for it.
func NewSVGSource(data []byte) (*SVGSource, error) {
	if !svg.IsSVG(data) {
		return nil, &DecodeError{Err: svg.ErrNoSVG}
	}
	if _, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode); err != nil {
		return nil, &DecodeError{Err: err}
	}
	size := svg.Dimensions(data)

	return &SVGSource{
		data:   data,
		width:  size.Width,
		height: size.Height,
	}, nil
}

// Size returns the intrinsic dimensions of the document.
func (s *SVGSource) Size() (float64, float64) {
	return s.width, s.height
}

// Rasterize renders the document. The icon is parsed on every call,
// this way concurrent renderings do not share any state.
func (s *SVGSource) Rasterize(width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(s.data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if icon.ViewBox.W == 0 || icon.ViewBox.H == 0 {
		icon.ViewBox.X, icon.ViewBox.Y = 0, 0
		icon.ViewBox.W, icon.ViewBox.H = s.width, s.height
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	return imgToNRGBA(rgba), nil
}

// ImageSource wraps an already decoded raster image.
type ImageSource struct {
	img image.Image
}

// NewImageSource returns a source for a decoded raster image.
func NewImageSource(img image.Image) *ImageSource {
	return &ImageSource{img: img}
}

// Size returns the pixel dimensions of the image.
func (s *ImageSource) Size() (float64, float64) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// Rasterize resamples the image to the requested size.
func (s *ImageSource) Rasterize(width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	b := s.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imgToNRGBA(s.img), nil
	}
	dst := newSurface(width, height)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), s.img, b, xdraw.Src, nil)

	return dst, nil
}

// DecodeSource reads an SVG document, an SVG data URI or a raster image
// (PNG, JPEG, GIF, BMP, WebP, ICO) and returns a drawable source.
func DecodeSource(r io.Reader) (Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return DecodeSourceBytes(data)
}

// DecodeSourceBytes is like DecodeSource for an in-memory payload.
func DecodeSourceBytes(data []byte) (Source, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("data:")) {
		mime, payload, err := svg.DecodeDataURI(string(trimmed))
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		if !strings.HasPrefix(mime, "image/") {
			return nil, &DecodeError{Err: fmt.Errorf("unsupported media type %q", mime)}
		}
		data = payload
	}

	if svg.IsSVG(data) {
		return NewSVGSource(data)
	}

	var (
		img image.Image
		err error
	)
	if DetectFormat(data) == ICO {
		// The largest image of the icon is used.
		img, err = ico.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return NewImageSource(img), nil
}
