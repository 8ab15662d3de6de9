package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/esimov/svgkit"
	"github.com/esimov/svgkit/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32" viewBox="0 0 32 32">
  <rect width="32" height="32" fill="#3366ff"/>
  <circle cx="16" cy="16" r="8" fill="white" stroke="rgb(10, 20, 30)"/>
</svg>`

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(config.Default(), nil)
}

func do(s *Server, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_ExportPNG(t *testing.T) {
	assert := assert.New(t)

	rec := do(newTestServer(t), http.MethodPost, "/api/export?format=png&width=64", "image/svg+xml", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal("image/png", rec.Header().Get("Content-Type"))
	assert.Equal("attachment; filename=converted-svg.png", rec.Header().Get("Content-Disposition"))
	assert.Equal("png", rec.Header().Get(HeaderFormat))
	assert.Empty(rec.Header().Get(HeaderFallback))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(64, img.Bounds().Dx())
	assert.Equal(64, img.Bounds().Dy())
}

func TestServer_ExportScaleAndPreset(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/export?scale=2", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	preset, ok := svgkit.LookupDimensionPreset("open graph 1200x630")
	require.True(t, ok)
	rec = do(s, http.MethodPost, "/api/export?preset="+url.QueryEscape(preset.Name), "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, preset.Width, img.Bounds().Dx())
	assert.Equal(t, preset.Height, img.Bounds().Dy())
}

func TestServer_ExportFallback(t *testing.T) {
	s := newTestServer(t)
	if s.exporter.Encoder().Registry().Supports(svgkit.AVIF) {
		t.Skip("built with the AVIF encoder")
	}

	rec := do(s, http.MethodPost, "/api/export?format=avif", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/webp", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=converted-svg.webp", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "avif->webp", rec.Header().Get(HeaderFallback))
}

func TestServer_ExportIcon(t *testing.T) {
	rec := do(newTestServer(t), http.MethodPost, "/api/export?format=ico&ico_sizes=16,32", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "image/x-icon", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=favicon.ico", rec.Header().Get("Content-Disposition"))

	ico, err := svgkit.ParseIco(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, ico.Entries, 2)
}

func TestServer_ExportLargeIcon(t *testing.T) {
	const large = `<svg xmlns="http://www.w3.org/2000/svg" width="10000" height="10000" viewBox="0 0 10 10">
  <rect width="10" height="10" fill="#3366ff"/>
</svg>`

	s := newTestServer(t)
	rec := do(s, http.MethodPost, "/api/export?format=ico", "", []byte(large))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/x-icon", rec.Header().Get("Content-Type"))

	ico, err := svgkit.ParseIco(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, ico.Entries, len(svgkit.DefaultIcoSizes()))

	// The same source is still bounded when exported as a bitmap.
	rec = do(s, http.MethodPost, "/api/export?format=png", "", []byte(large))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ExportComposite(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/export?bg=%23ff0000&composite=dst_over", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)

	// The opaque background stays on top of the source.
	r, g, b, a := img.At(16, 16).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})
}

func TestServer_ExportMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "icon.svg")
	require.NoError(t, err)
	_, err = fw.Write([]byte(iconSVG))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(newTestServer(t), http.MethodPost, "/api/export?format=jpeg", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=converted-svg.jpg", rec.Header().Get("Content-Disposition"))
}

func TestServer_ExportErrors(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"unknown format", "/api/export?format=tiff", iconSVG, http.StatusBadRequest},
		{"invalid color", "/api/export?bg=notacolor", iconSVG, http.StatusBadRequest},
		{"invalid width", "/api/export?width=wide", iconSVG, http.StatusBadRequest},
		{"invalid filter", "/api/export?filter=glow(2)", iconSVG, http.StatusBadRequest},
		{"unknown preset", "/api/export?preset=poster", iconSVG, http.StatusBadRequest},
		{"invalid icon size", "/api/export?format=ico&ico_sizes=512", iconSVG, http.StatusBadRequest},
		{"too large", "/api/export?width=100000", iconSVG, http.StatusBadRequest},
		{"unknown composite", "/api/export?composite=multiply", iconSVG, http.StatusBadRequest},
		{"empty body", "/api/export", "", http.StatusBadRequest},
		{"not an image", "/api/export", "hello", http.StatusUnsupportedMediaType},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, tc.target, "", []byte(tc.body))
			assert.Equal(t, tc.status, rec.Code)

			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestServer_UploadLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadSize = 16
	s := New(cfg, nil)

	rec := do(s, http.MethodPost, "/api/export", "", []byte(iconSVG))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_Favicon(t *testing.T) {
	rec := do(newTestServer(t), http.MethodPost, "/api/favicon?name=Demo&theme_color=%23336699", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=favicon-package.zip", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestServer_Colors(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/colors", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"colors":["#3366ff","rgb(10, 20, 30)","white"]}`, rec.Body.String())

	rec = do(s, http.MethodPost, "/api/colors", "", []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"colors":[]}`, rec.Body.String())

	rec = do(s, http.MethodPost, "/api/colors", "", []byte("<html/>"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestServer_Component(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/component?framework=react&ts=true&name=BlueIcon", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BlueIcon")
	assert.Contains(t, rec.Body.String(), "React.SVGProps<SVGSVGElement>")

	rec = do(s, http.MethodPost, "/api/component?framework=vue", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "defineOptions")

	rec = do(s, http.MethodPost, "/api/component?name=lower", "", []byte(iconSVG))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_FormatsAndPresets(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/formats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var formats struct {
		Formats []struct {
			Format    string `json:"format"`
			Supported bool   `json:"supported"`
		} `json:"formats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &formats))
	assert.Len(t, formats.Formats, len(svgkit.Formats()))

	rec = do(s, http.MethodGet, "/api/presets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "highContrast")
	assert.Contains(t, rec.Body.String(), "dst_atop")
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)

	rec := do(s, http.MethodPost, "/api/export?format=webp", "", []byte(iconSVG))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `svgkit_exports_total{format="webp"} 1`)
}
