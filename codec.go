package svgkit

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/esimov/svgkit/imop"
	"github.com/esimov/svgkit/utils"
	"golang.org/x/image/bmp"
)

// Format is the identifier of an output image format.
type Format string

// The supported output formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
	GIF  Format = "gif"
	AVIF Format = "avif"
	ICO  Format = "ico"
	BMP  Format = "bmp"
)

var formatInfo = map[Format]struct {
	mime, ext string
}{
	PNG:  {"image/png", "png"},
	JPEG: {"image/jpeg", "jpg"},
	WebP: {"image/webp", "webp"},
	GIF:  {"image/gif", "gif"},
	AVIF: {"image/avif", "avif"},
	ICO:  {"image/x-icon", "ico"},
	BMP:  {"image/bmp", "bmp"},
}

// ParseFormat returns the format for a name or file extension, e.g. "jpg" or ".png".
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch name {
	case "jpg":
		return JPEG, nil
	case "icon":
		return ICO, nil
	}
	f := Format(name)
	if _, ok := formatInfo[f]; !ok {
		return "", &UnsupportedFormatError{Format: s}
	}
	return f, nil
}

// Formats returns the known formats in alphabetical order.
func Formats() []Format {
	formats := make([]Format, 0, len(formatInfo))
	for f := range formatInfo {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

func (f Format) String() string {
	return string(f)
}

// MIME returns the media type of the format.
func (f Format) MIME() string {
	if info, ok := formatInfo[f]; ok {
		return info.mime
	}
	return "application/octet-stream"
}

// Extension returns the file extension of the format without the leading dot.
func (f Format) Extension() string {
	if info, ok := formatInfo[f]; ok {
		return info.ext
	}
	return string(f)
}

// Quality is an encoding quality expressed as an integer percent.
type Quality int

// DefaultQuality is used when no quality is given.
const DefaultQuality Quality = 92

// Clamp limits the quality to the 1..100 range. Zero means DefaultQuality.
func (q Quality) Clamp() Quality {
	if q == 0 {
		return DefaultQuality
	}
	return utils.Clamp(q, 1, 100)
}

// Scale maps the percent value linearly onto the 0..1 scale the codecs use.
func (q Quality) Scale() float64 {
	return float64(q.Clamp()) / 100
}

// Codec serializes a surface into one image format.
// The quality is on the 0..1 scale and is ignored by lossless codecs.
type Codec interface {
	Encode(w io.Writer, img image.Image, quality float64) error
}

// CodecFunc adapts an ordinary function to the Codec interface.
type CodecFunc func(w io.Writer, img image.Image, quality float64) error

// Encode calls f(w, img, quality).
func (f CodecFunc) Encode(w io.Writer, img image.Image, quality float64) error {
	return f(w, img, quality)
}

// Registry holds the codecs available at runtime.
type Registry struct {
	mu     sync.RWMutex
	codecs map[Format]Codec
}

// optionalCodecs are codecs enabled through build tags.
var optionalCodecs = map[Format]Codec{}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[Format]Codec)}
}

// DefaultRegistry returns a registry with every codec compiled into the binary.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PNG, CodecFunc(encodePNG))
	r.Register(JPEG, CodecFunc(encodeJPEG))
	r.Register(WebP, CodecFunc(encodeWebP))
	r.Register(GIF, CodecFunc(encodeGIF))
	r.Register(BMP, CodecFunc(encodeBMP))
	for f, c := range optionalCodecs {
		r.Register(f, c)
	}
	return r
}

// Register adds or replaces the codec of a format.
func (r *Registry) Register(f Format, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[f] = c
}

// Unregister removes the codec of a format.
func (r *Registry) Unregister(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codecs, f)
}

// Supports reports whether a codec is registered for the format.
func (r *Registry) Supports(f Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codecs[f]
	return ok
}

// Lookup returns the codec of a format.
func (r *Registry) Lookup(f Format) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[f]
	return c, ok
}

// DetectFormat identifies an encoded payload by its magic bytes.
// It returns an empty format if the payload is not recognized.
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return JPEG
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return WebP
	case len(data) >= 12 && string(data[4:8]) == "ftyp" &&
		(string(data[8:12]) == "avif" || string(data[8:12]) == "avis"):
		return AVIF
	case bytes.HasPrefix(data, []byte{0x00, 0x00, 0x01, 0x00}):
		return ICO
	case bytes.HasPrefix(data, []byte("BM")):
		return BMP
	}
	return ""
}

func encodePNG(w io.Writer, img image.Image, _ float64) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

func encodeJPEG(w io.Writer, img image.Image, quality float64) error {
	q := int(math.Round(quality * 100))
	return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: utils.Clamp(q, 1, 100)})
}

func encodeWebP(w io.Writer, img image.Image, quality float64) error {
	return webp.Encode(w, img, &webp.Options{Quality: float32(quality * 100)})
}

func encodeBMP(w io.Writer, img image.Image, _ float64) error {
	return bmp.Encode(w, img)
}

// gifPalette is the web safe palette with a leading fully transparent entry.
var gifPalette = append(color.Palette{color.NRGBA{}}, palette.WebSafe...)

// encodeGIF quantizes the surface with Floyd-Steinberg dithering. Pixels with
// less than half opacity are mapped onto the transparent palette entry.
func encodeGIF(w io.Writer, img image.Image, _ float64) error {
	src := imgToNRGBA(img)
	b := src.Bounds()

	opaque := image.NewNRGBA(b)
	copy(opaque.Pix, src.Pix)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}

	dst := image.NewPaletted(b, gifPalette)
	draw.FloydSteinberg.Draw(dst, b, opaque, b.Min)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if src.Pix[src.PixOffset(x, y)+3] < 0x80 {
				dst.SetColorIndex(x, y, 0)
			}
		}
	}
	return gif.Encode(w, dst, &gif.Options{NumColors: len(gifPalette)})
}

// flatten composites translucent pixels over white, since JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	src := imgToNRGBA(img)
	if isOpaque(src) {
		return src
	}
	dst := newSurface(src.Bounds().Dx(), src.Bounds().Dy())
	fill(dst, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	imop.InitOp().Draw(&imop.Bitmap{Img: dst}, src, dst)
	return dst
}
