package svgkit

import (
	"bytes"
	"context"
	"image"
	"time"

	"github.com/esimov/svgkit/utils"
	"go.uber.org/zap"
)

// The names the exported files are offered under.
const (
	ExportBaseName  = "converted-svg"
	FaviconFilename = "favicon.ico"
)

// jpegBackground replaces a transparent background for JPEG exports.
const jpegBackground = "#ffffff"

// ExportOptions describes one export of a source image.
type ExportOptions struct {
	Source Source
	Format Format
	// Width and Height are the output size. When one of them is zero it
	// follows the aspect ratio of the source, when both are zero the
	// intrinsic size of the source is used.
	Width      int
	Height     int
	Background string
	Quality    Quality
	Filters    FilterChain
	// IcoSizes lists the icon sizes of an ICO export. It defaults to DefaultIcoSizes.
	IcoSizes  []int
	Composite string
}

// Exporter runs the whole export pipeline: rasterization, encoding and, for
// icons, the container assembly.
type Exporter struct {
	encoder *Encoder
	logger  *zap.Logger
	metrics *Metrics
}

// NewExporter creates an exporter. The options are shared with its encoder.
func NewExporter(opts ...EncoderOption) *Exporter {
	enc := NewEncoder(opts...)
	return &Exporter{
		encoder: enc,
		logger:  enc.logger,
		metrics: enc.metrics,
	}
}

// Encoder returns the encoder used by the exporter.
func (x *Exporter) Encoder() *Encoder {
	return x.encoder
}

// Export rasterizes the source and encodes it into the requested format.
func (x *Exporter) Export(ctx context.Context, opts ExportOptions) (*EncodedImage, error) {
	start := time.Now()
	if _, ok := formatInfo[opts.Format]; !ok {
		return nil, &UnsupportedFormatError{Format: string(opts.Format)}
	}
	if opts.Source == nil {
		return nil, ErrNoSurface
	}

	bg := opts.Background
	if opts.Format == JPEG && IsTransparent(bg) {
		bg = jpegBackground
	}

	var (
		res *EncodedImage
		err error
	)
	if opts.Format == ICO {
		res, err = x.exportIcon(ctx, opts, bg)
	} else {
		width, height := opts.size()
		var surface *image.NRGBA
		surface, err = Rasterize(ctx, RasterRequest{
			Source:     opts.Source,
			Width:      width,
			Height:     height,
			Background: bg,
			Filters:    opts.Filters,
			Composite:  opts.Composite,
		})
		if err != nil {
			return nil, err
		}
		res, err = x.encoder.Encode(surface, opts.Format, opts.Quality)
	}
	if err != nil {
		return nil, err
	}

	x.metrics.exported(res.Format, start)
	x.logger.Debug("export finished",
		zap.Stringer("requested", res.Requested),
		zap.Stringer("format", res.Format),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int("bytes", len(res.Data)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// ExportAndDeliver exports the source and hands the payload over to d
// under the name returned by Filename.
func (x *Exporter) ExportAndDeliver(ctx context.Context, opts ExportOptions, d Deliverer) (*EncodedImage, error) {
	res, err := x.Export(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := d.Deliver(ctx, res.Data, Filename(res), res.MIME()); err != nil {
		return nil, err
	}
	return res, nil
}

// Filename returns the name an export is offered under: favicon.ico for
// icons and converted-svg with the extension of the actual format otherwise.
func Filename(res *EncodedImage) string {
	if res.Format == ICO {
		return FaviconFilename
	}
	return res.Filename(ExportBaseName)
}

func (x *Exporter) exportIcon(ctx context.Context, opts ExportOptions, bg string) (*EncodedImage, error) {
	sizes := opts.IcoSizes
	if len(sizes) == 0 {
		sizes = DefaultIcoSizes()
	}
	ico, err := BuildIco(ctx, func(ctx context.Context, size int) ([]byte, error) {
		return renderPNG(ctx, RasterRequest{
			Source:     opts.Source,
			Width:      size,
			Height:     size,
			Background: bg,
			Filters:    opts.Filters,
			Composite:  opts.Composite,
		})
	}, sizes)
	if err != nil {
		return nil, err
	}

	largest := 0
	for _, s := range sizes {
		largest = utils.Max(largest, s)
	}
	return &EncodedImage{
		Data:      ico.Bytes(),
		Format:    ICO,
		Requested: ICO,
		Width:     largest,
		Height:    largest,
	}, nil
}

// renderPNG rasterizes the request and encodes it as PNG.
func renderPNG(ctx context.Context, req RasterRequest) ([]byte, error) {
	surface, err := Rasterize(ctx, req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodePNG(&buf, surface, 1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// size resolves the output dimensions against the intrinsic source size.
func (opts ExportOptions) size() (int, int) {
	return OutputSize(opts.Source, opts.Width, opts.Height, 1)
}
