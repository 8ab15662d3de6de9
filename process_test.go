package svgkit

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/esimov/svgkit/svg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_Export(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{Format: PNG, Width: 64, Scale: 2}
	out, err := p.Process(context.Background(), strings.NewReader(redSquareSVG))
	require.NoError(t, err)

	assert.Equal("png", out.Ext)
	assert.Equal("image/png", out.MIME)
	assert.Equal("converted-svg.png", out.Name)
	require.NotNil(t, out.Image)

	img, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	// The height follows the aspect ratio before the scale factor is applied.
	assert.Equal(128, img.Bounds().Dx())
	assert.Equal(128, img.Bounds().Dy())
}

func TestProcess_ExportFallback(t *testing.T) {
	reg := DefaultRegistry()
	reg.Unregister(GIF)

	p := &Processor{Format: GIF, Exporter: NewExporter(WithRegistry(reg))}
	out, err := p.Process(context.Background(), strings.NewReader(redSquareSVG))
	require.NoError(t, err)

	assert.Equal(t, "png", out.Ext)
	assert.Equal(t, "converted-svg.png", out.Name)
	assert.True(t, out.Image.FellBack())
}

func TestProcess_Icon(t *testing.T) {
	p := &Processor{Format: ICO, IcoSizes: []int{16, 32}}
	out, err := p.Process(context.Background(), strings.NewReader(redSquareSVG))
	require.NoError(t, err)

	assert.Equal(t, "favicon.ico", out.Name)
	ico, err := ParseIco(out.Data)
	require.NoError(t, err)
	assert.Len(t, ico.Entries, 2)
}

func TestProcess_Favicon(t *testing.T) {
	p := &Processor{Mode: FaviconMode}
	out, err := p.Process(context.Background(), strings.NewReader(redSquareSVG))
	require.NoError(t, err)

	assert.Equal(t, "application/zip", out.MIME)
	assert.Equal(t, FaviconPackageFilename, out.Name)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("PK")))
}

func TestProcess_Component(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{Mode: ComponentMode, Component: svg.ComponentOptions{
		Framework:     svg.React,
		TypeScript:    true,
		ComponentName: "RedSquare",
	}}
	out, err := p.Process(context.Background(), strings.NewReader(redSquareSVG))
	require.NoError(t, err)
	assert.Equal("tsx", out.Ext)
	assert.Equal("RedSquare.tsx", out.Name)
	assert.Contains(string(out.Data), "RedSquare")

	p.Component = svg.ComponentOptions{Framework: svg.Vue}
	out, err = p.Process(context.Background(), strings.NewReader(redSquareSVG))
	require.NoError(t, err)
	assert.Equal("SvgIcon.vue", out.Name)

	_, err = p.Process(context.Background(), strings.NewReader("plain text"))
	var decodeErr *DecodeError
	assert.ErrorAs(err, &decodeErr)
}

func TestProcess_Colors(t *testing.T) {
	p := &Processor{Mode: ColorsMode}
	out, err := p.Process(context.Background(), strings.NewReader(insetSVG))
	require.NoError(t, err)
	assert.Equal(t, "#ff0000\n", string(out.Data))
}

func TestProcess_Errors(t *testing.T) {
	p := &Processor{Format: PNG}

	_, err := p.Process(context.Background(), strings.NewReader("not an image"))
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	p.Format = Format("tiff")
	_, err = p.Process(context.Background(), strings.NewReader(redSquareSVG))
	var formatErr *UnsupportedFormatError
	assert.ErrorAs(t, err, &formatErr)
}
