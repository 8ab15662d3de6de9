package svgkit

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_PNG(t *testing.T) {
	assert := assert.New(t)

	metrics := NewMetrics(prometheus.NewRegistry())
	x := NewExporter(WithMetrics(metrics))
	res, err := x.Export(context.Background(), ExportOptions{
		Source: mustSVGSource(t, insetSVG),
		Format: PNG,
		Width:  40,
	})
	require.NoError(t, err)
	assert.Equal(PNG, res.Format)
	assert.Equal("converted-svg.png", Filename(res))
	assert.Equal(1.0, testutil.ToFloat64(metrics.exports.WithLabelValues("png")))

	img, err := png.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	// The height follows the aspect ratio of the source.
	assert.Equal(40, img.Bounds().Dx())
	assert.Equal(40, img.Bounds().Dy())

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Equal(uint32(0), a)
}

func TestExport_IntrinsicSize(t *testing.T) {
	res, err := NewExporter().Export(context.Background(), ExportOptions{
		Source: newRectSource(color.NRGBA{A: 255}, 0, 0, 1, 1),
		Format: WebP,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Width)
	assert.Equal(t, 50, res.Height)
	assert.Equal(t, "converted-svg.webp", Filename(res))
}

func TestExport_JPEGGetsWhiteBackground(t *testing.T) {
	res, err := NewExporter().Export(context.Background(), ExportOptions{
		Source:     mustSVGSource(t, insetSVG),
		Format:     JPEG,
		Width:      20,
		Height:     20,
		Background: Transparent,
		Quality:    100,
	})
	require.NoError(t, err)
	assert.Equal(t, "converted-svg.jpg", Filename(res))
	assert.Equal(t, "image/jpeg", res.MIME())

	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.InDelta(t, 0xffff, r, 0x200)
	assert.InDelta(t, 0xffff, g, 0x200)
	assert.InDelta(t, 0xffff, b, 0x200)
}

func TestExport_Icon(t *testing.T) {
	assert := assert.New(t)

	res, err := NewExporter().Export(context.Background(), ExportOptions{
		Source: mustSVGSource(t, redSquareSVG),
		Format: ICO,
	})
	require.NoError(t, err)
	assert.Equal(ICO, res.Format)
	assert.Equal(FaviconFilename, Filename(res))
	assert.Equal(48, res.Width)

	icon, err := ParseIco(res.Data)
	require.NoError(t, err)
	assert.Equal(uint16(3), icon.Header.Count)

	for i, size := range DefaultIcoSizes() {
		img, err := png.Decode(bytes.NewReader(icon.Payloads[i]))
		require.NoError(t, err)
		assert.Equal(size, img.Bounds().Dx())
	}

	res, err = NewExporter().Export(context.Background(), ExportOptions{
		Source:   mustSVGSource(t, redSquareSVG),
		Format:   ICO,
		IcoSizes: []int{64},
	})
	require.NoError(t, err)
	assert.Equal(64, res.Width)
}

func TestExport_Errors(t *testing.T) {
	assert := assert.New(t)
	x := NewExporter()
	ctx := context.Background()

	_, err := x.Export(ctx, ExportOptions{Source: mustSVGSource(t, insetSVG), Format: "tiff"})
	var ferr *UnsupportedFormatError
	assert.True(errors.As(err, &ferr))

	_, err = x.Export(ctx, ExportOptions{Format: PNG})
	assert.ErrorIs(err, ErrNoSurface)

	_, err = x.Export(ctx, ExportOptions{Source: failingSource{}, Format: ICO})
	var derr *DecodeError
	assert.True(errors.As(err, &derr))
}

func TestExport_Deliver(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	var (
		gotName, gotMime string
		gotData          []byte
	)
	recorder := DelivererFunc(func(_ context.Context, payload []byte, filename, mime string) error {
		gotData, gotName, gotMime = payload, filename, mime
		return nil
	})

	reg := DefaultRegistry()
	reg.Unregister(GIF)
	x := NewExporter(WithRegistry(reg))
	opts := ExportOptions{Source: mustSVGSource(t, insetSVG), Format: GIF}

	res, err := x.ExportAndDeliver(context.Background(), opts, recorder)
	require.NoError(t, err)
	assert.Equal("converted-svg.png", gotName)
	assert.Equal("image/png", gotMime)
	assert.Equal(res.Data, gotData)

	_, err = x.ExportAndDeliver(context.Background(), opts, FileDeliverer{Dir: dir})
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "converted-svg.png"))
	require.NoError(t, err)
	assert.Equal(PNG, DetectFormat(data))

	var buf bytes.Buffer
	_, err = x.ExportAndDeliver(context.Background(), opts, WriterDeliverer{W: &buf})
	require.NoError(t, err)
	assert.Equal(PNG, DetectFormat(buf.Bytes()))

	failing := DelivererFunc(func(context.Context, []byte, string, string) error {
		return errors.New("disk full")
	})
	_, err = x.ExportAndDeliver(context.Background(), opts, failing)
	assert.ErrorContains(err, "disk full")
}
