package svgkit

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/esimov/svgkit/svg"
)

// Mode selects what the processor produces from a source.
type Mode int

// The processing modes.
const (
	// ExportMode encodes the source into an image format.
	ExportMode Mode = iota
	// FaviconMode produces a zipped favicon package.
	FaviconMode
	// ComponentMode generates a React or Vue component from SVG markup.
	ComponentMode
	// ColorsMode lists the colors used by SVG markup, one per line.
	ColorsMode
)

// Output is the payload produced for a single source.
type Output struct {
	Data []byte
	MIME string
	// Ext is the file extension of the payload without the leading dot.
	Ext string
	// Name is the file name the payload is offered under by default.
	Name string
	// Image is set for image exports only.
	Image *EncodedImage
}

// Processor holds the settings applied on every source of a run,
// as they are set from the command line or the configuration file.
type Processor struct {
	Mode       Mode
	Format     Format
	Width      int
	Height     int
	Scale      float64
	Background string
	Quality    Quality
	Filters    FilterChain
	IcoSizes   []int
	Composite  string
	Component  svg.ComponentOptions

	// Exporter runs the exports. A default exporter is used when nil.
	Exporter *Exporter
}

func (p *Processor) exporter() *Exporter {
	if p.Exporter == nil {
		p.Exporter = NewExporter()
	}
	return p.Exporter
}

// Process reads a source from r and converts it according to the processor mode.
func (p *Processor) Process(ctx context.Context, r io.Reader) (*Output, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read the source: %w", err)
	}

	switch p.Mode {
	case ComponentMode:
		if !svg.IsSVG(data) {
			return nil, &DecodeError{Err: svg.ErrNoSVG}
		}
		code, err := svg.GenerateComponent(string(data), p.Component)
		if err != nil {
			return nil, err
		}
		return &Output{
			Data: []byte(code),
			MIME: "text/plain; charset=utf-8",
			Ext:  componentExt(p.Component),
			Name: componentName(p.Component) + "." + componentExt(p.Component),
		}, nil
	case ColorsMode:
		if !svg.IsSVG(data) {
			return nil, &DecodeError{Err: svg.ErrNoSVG}
		}
		var sb strings.Builder
		for _, c := range svg.ExtractColors(string(data)) {
			sb.WriteString(c)
			sb.WriteByte('\n')
		}
		return &Output{
			Data: []byte(sb.String()),
			MIME: "text/plain; charset=utf-8",
			Ext:  "txt",
			Name: "colors.txt",
		}, nil
	}

	src, err := DecodeSourceBytes(data)
	if err != nil {
		return nil, err
	}

	if p.Mode == FaviconMode {
		pkg, err := p.exporter().FaviconPackage(ctx, FaviconOptions{
			Source:     src,
			Background: p.Background,
			Filters:    p.Filters,
			Composite:  p.Composite,
		})
		if err != nil {
			return nil, err
		}
		zip, err := pkg.Zip()
		if err != nil {
			return nil, err
		}
		return &Output{
			Data: zip,
			MIME: "application/zip",
			Ext:  "zip",
			Name: FaviconPackageFilename,
		}, nil
	}

	width, height := OutputSize(src, p.Width, p.Height, p.Scale)
	res, err := p.exporter().Export(ctx, ExportOptions{
		Source:     src,
		Format:     p.Format,
		Width:      width,
		Height:     height,
		Background: p.Background,
		Quality:    p.Quality,
		Filters:    p.Filters,
		IcoSizes:   p.IcoSizes,
		Composite:  p.Composite,
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		Data:  res.Data,
		MIME:  res.MIME(),
		Ext:   res.Format.Extension(),
		Name:  Filename(res),
		Image: res,
	}, nil
}

func componentExt(opts svg.ComponentOptions) string {
	switch {
	case opts.Framework == svg.Vue:
		return "vue"
	case opts.TypeScript:
		return "tsx"
	}
	return "jsx"
}

func componentName(opts svg.ComponentOptions) string {
	if opts.ComponentName == "" {
		return svg.DefaultComponentName
	}
	return opts.ComponentName
}
