package svgkit

import (
	"bytes"
	"fmt"
	"image"

	"go.uber.org/zap"
)

// fallbacks maps a format onto the next best one, used when the runtime
// cannot produce the requested format.
var fallbacks = map[Format]Format{
	GIF:  PNG,
	AVIF: WebP,
}

// EncodedImage is a finished, immutable export payload.
type EncodedImage struct {
	Data []byte
	// Format is the format the payload is actually encoded in.
	Format Format
	// Requested is the format asked for, which differs from Format after a fallback.
	Requested Format
	Width     int
	Height    int
}

// MIME returns the media type of the actual format.
func (e *EncodedImage) MIME() string {
	return e.Format.MIME()
}

// Filename appends the extension of the actual format to base.
func (e *EncodedImage) Filename(base string) string {
	return base + "." + e.Format.Extension()
}

// FellBack reports whether the payload was encoded in a substitute format.
func (e *EncodedImage) FellBack() bool {
	return e.Format != e.Requested
}

// Encoder serializes surfaces using the codecs of a registry.
type Encoder struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *Metrics
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithRegistry sets the codec registry. The default is DefaultRegistry().
func WithRegistry(r *Registry) EncoderOption {
	return func(e *Encoder) { e.registry = r }
}

// WithLogger sets the logger of the encoder.
func WithLogger(l *zap.Logger) EncoderOption {
	return func(e *Encoder) { e.logger = l }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) EncoderOption {
	return func(e *Encoder) { e.metrics = m }
}

// NewEncoder returns an encoder with the default registry and a no-op logger.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Registry returns the codec registry of the encoder.
func (e *Encoder) Registry() *Registry {
	return e.registry
}

// Encode serializes the surface into the requested format. When the format
// cannot be produced, either because no codec is registered or because the
// codec silently emitted another format, the GIF and AVIF requests fall
// back to PNG and WebP respectively. The returned image always reports the
// format the payload is really encoded in.
func (e *Encoder) Encode(img image.Image, format Format, quality Quality) (*EncodedImage, error) {
	if _, ok := formatInfo[format]; !ok {
		return nil, &UnsupportedFormatError{Format: string(format)}
	}
	b := img.Bounds()
	if format == ICO {
		return e.encodeIcon(img)
	}

	q := quality.Clamp()
	target := format
	for attempt := 0; attempt <= len(fallbacks); attempt++ {
		codec, ok := e.registry.Lookup(target)
		if !ok {
			next, ok := fallbacks[target]
			if !ok {
				return nil, &UnsupportedFormatError{Format: string(target)}
			}
			e.fallback(target, next, "codec not available")
			target = next
			continue
		}

		var buf bytes.Buffer
		if err := codec.Encode(&buf, img, q.Scale()); err != nil {
			return nil, fmt.Errorf("failed to encode %s image: %w", target, err)
		}

		actual := DetectFormat(buf.Bytes())
		if actual != target {
			if next, ok := fallbacks[target]; ok {
				e.fallback(target, next, fmt.Sprintf("codec produced %q payload", actual))
				target = next
				continue
			}
			if actual == "" {
				return nil, fmt.Errorf("the %s codec produced an unrecognized payload", target)
			}
			// Trust what the payload declares over what was asked for.
			e.logger.Warn("codec produced a different format",
				zap.Stringer("requested", target),
				zap.Stringer("actual", actual),
			)
			target = actual
		}

		return &EncodedImage{
			Data:      buf.Bytes(),
			Format:    target,
			Requested: format,
			Width:     b.Dx(),
			Height:    b.Dy(),
		}, nil
	}
	return nil, &UnsupportedFormatError{Format: string(format)}
}

func (e *Encoder) fallback(from, to Format, reason string) {
	e.logger.Info("falling back to another format",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("reason", reason),
	)
	e.metrics.fellBack(from, to)
}

// encodeIcon wraps a single PNG encoded surface into an icon container.
func (e *Encoder) encodeIcon(img image.Image) (*EncodedImage, error) {
	b := img.Bounds()
	if b.Dx() > MaxIcoSize || b.Dy() > MaxIcoSize || b.Dx() < 1 || b.Dy() < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrIcoSize, b.Dx(), b.Dy())
	}
	var buf bytes.Buffer
	if err := encodePNG(&buf, img, 1); err != nil {
		return nil, fmt.Errorf("failed to encode ico image: %w", err)
	}
	ico, err := NewIcoFile([]IcoImage{{Width: b.Dx(), Height: b.Dy(), PNG: buf.Bytes()}})
	if err != nil {
		return nil, err
	}
	return &EncodedImage{
		Data:      ico.Bytes(),
		Format:    ICO,
		Requested: ICO,
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}
