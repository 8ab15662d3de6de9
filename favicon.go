package svgkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"
)

// FaviconPackageFilename is the name the favicon archive is offered under.
const FaviconPackageFilename = "favicon-package.zip"

// The metadata files of a favicon package.
const (
	WebManifestFilename = "site.webmanifest"
	HeadSnippetFilename = "head.html"
)

var faviconImages = [...]struct {
	name string
	size int
}{
	{"favicon-16x16.png", 16},
	{"favicon-32x32.png", 32},
	{"apple-touch-icon.png", 180},
	{"android-chrome-192x192.png", 192},
	{"android-chrome-512x512.png", 512},
}

const headSnippet = `<link rel="icon" type="image/x-icon" href="/favicon.ico">
<link rel="icon" type="image/png" sizes="32x32" href="/favicon-32x32.png">
<link rel="icon" type="image/png" sizes="16x16" href="/favicon-16x16.png">
<link rel="apple-touch-icon" sizes="180x180" href="/apple-touch-icon.png">
<link rel="manifest" href="/site.webmanifest">
`

// FaviconOptions configures a favicon package.
type FaviconOptions struct {
	Source     Source
	Background string
	Filters    FilterChain
	Composite  string
	// Name and ShortName end up in the web manifest.
	Name       string
	ShortName  string
	ThemeColor string
}

// PackageFile is a single file of a favicon package.
type PackageFile struct {
	Name string
	Data []byte
}

// FaviconPackage is the set of icons and metadata files a web site needs.
type FaviconPackage struct {
	Files []PackageFile
}

type webManifest struct {
	Name            string            `json:"name"`
	ShortName       string            `json:"short_name"`
	Icons           []webManifestIcon `json:"icons"`
	ThemeColor      string            `json:"theme_color"`
	BackgroundColor string            `json:"background_color"`
	Display         string            `json:"display"`
}

type webManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// FaviconPackage renders favicon.ico (16, 32 and 48 pixels), the PNG icons
// for browsers, Apple and Android devices, the web manifest and the HTML
// snippet which references them.
func (x *Exporter) FaviconPackage(ctx context.Context, opts FaviconOptions) (*FaviconPackage, error) {
	if opts.Source == nil {
		return nil, ErrNoSurface
	}
	start := time.Now()

	pngs := make([][]byte, len(faviconImages))
	var ico *IcoFile

	g, ctx := errgroup.WithContext(ctx)
	for i, img := range faviconImages {
		g.Go(func() error {
			data, err := renderPNG(ctx, RasterRequest{
				Source:     opts.Source,
				Width:      img.size,
				Height:     img.size,
				Background: opts.Background,
				Filters:    opts.Filters,
				Composite:  opts.Composite,
			})
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", img.name, err)
			}
			pngs[i] = data
			return nil
		})
	}
	g.Go(func() error {
		var err error
		ico, err = BuildIco(ctx, func(ctx context.Context, size int) ([]byte, error) {
			return renderPNG(ctx, RasterRequest{
				Source:     opts.Source,
				Width:      size,
				Height:     size,
				Background: opts.Background,
				Filters:    opts.Filters,
				Composite:  opts.Composite,
			})
		}, DefaultIcoSizes())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	manifest, err := opts.manifest()
	if err != nil {
		return nil, err
	}

	pkg := &FaviconPackage{}
	pkg.Files = append(pkg.Files, PackageFile{Name: FaviconFilename, Data: ico.Bytes()})
	for i, img := range faviconImages {
		pkg.Files = append(pkg.Files, PackageFile{Name: img.name, Data: pngs[i]})
	}
	pkg.Files = append(pkg.Files,
		PackageFile{Name: WebManifestFilename, Data: manifest},
		PackageFile{Name: HeadSnippetFilename, Data: []byte(headSnippet)},
	)

	x.metrics.exported(ICO, start)
	return pkg, nil
}

// ExportFaviconPackage builds the favicon package and delivers it as a zip archive.
func (x *Exporter) ExportFaviconPackage(ctx context.Context, opts FaviconOptions, d Deliverer) error {
	pkg, err := x.FaviconPackage(ctx, opts)
	if err != nil {
		return err
	}
	data, err := pkg.Zip()
	if err != nil {
		return err
	}
	return d.Deliver(ctx, data, FaviconPackageFilename, "application/zip")
}

// WriteZip writes the package as a zip archive. PNG and ICO files are
// stored as they are, the text files are deflated.
func (p *FaviconPackage) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range p.Files {
		method := zip.Deflate
		if DetectFormat(f.Data) != "" {
			method = zip.Store
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   method,
			Modified: time.Now(),
		})
		if err != nil {
			return err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// Zip returns the package as a zip archive.
func (p *FaviconPackage) Zip() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (opts FaviconOptions) manifest() ([]byte, error) {
	theme := opts.ThemeColor
	if theme == "" {
		theme = "#ffffff"
	}
	bg := opts.Background
	if IsTransparent(bg) {
		bg = "#ffffff"
	}
	m := webManifest{
		Name:            opts.Name,
		ShortName:       opts.ShortName,
		ThemeColor:      theme,
		BackgroundColor: bg,
		Display:         "standalone",
	}
	for _, img := range faviconImages {
		if img.size < 192 {
			continue
		}
		m.Icons = append(m.Icons, webManifestIcon{
			Src:   "/" + img.name,
			Sizes: fmt.Sprintf("%dx%d", img.size, img.size),
			Type:  PNG.MIME(),
		})
	}
	return json.MarshalIndent(m, "", "  ")
}
