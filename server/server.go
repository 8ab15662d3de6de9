// Package server exposes the converter over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/esimov/svgkit"
	"github.com/esimov/svgkit/config"
	"github.com/esimov/svgkit/imop"
	"github.com/esimov/svgkit/svg"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// The response headers describing an exported image.
const (
	HeaderFormat   = "X-Svgkit-Format"
	HeaderFallback = "X-Svgkit-Fallback"
)

var errBadParam = errors.New("invalid parameter")

// Server serves the export endpoints.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	exporter *svgkit.Exporter
	registry *prometheus.Registry
	router   *gin.Engine
}

// New creates a server with its own metrics registry.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		exporter: svgkit.NewExporter(
			svgkit.WithLogger(logger),
			svgkit.WithMetrics(svgkit.NewMetrics(reg)),
		),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/formats", s.formats)
		api.GET("/presets", s.presets)
		api.POST("/export", s.export)
		api.POST("/favicon", s.favicon)
		api.POST("/colors", s.colors)
		api.POST("/component", s.component)
	}
	return router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-groupCtx.Done()
		s.logger.Info("shutting down the http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.logger.Info("http server started", zap.String("addr", s.cfg.Server.Addr))
		// ErrServerClosed means a regular shutdown.
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) formats(c *gin.Context) {
	reg := s.exporter.Encoder().Registry()
	out := make([]gin.H, 0)
	for _, f := range svgkit.Formats() {
		out = append(out, gin.H{
			"format":    f.String(),
			"mime":      f.MIME(),
			"extension": f.Extension(),
			"supported": f == svgkit.ICO || reg.Supports(f),
		})
	}
	c.JSON(http.StatusOK, gin.H{"formats": out})
}

func (s *Server) presets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"dimensions": svgkit.DimensionPresets(),
		"scales":     svgkit.ScaleFactors(),
		"filters":    svgkit.FilterPresetNames(),
		"composites": imop.Ops(),
	})
}

func (s *Server) export(c *gin.Context) {
	src, err := s.readSource(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := s.exportOptions(c, src)
	if err != nil {
		s.fail(c, err)
		return
	}

	_, err = s.exporter.ExportAndDeliver(c.Request.Context(), opts, attachment(c, opts.Format))
	if err != nil {
		s.fail(c, err)
	}
}

func (s *Server) favicon(c *gin.Context) {
	src, err := s.readSource(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	bg, err := s.background(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	filters, err := s.filters(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	op, err := s.composite(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	opts := svgkit.FaviconOptions{
		Source:     src,
		Background: bg,
		Filters:    filters,
		Composite:  op,
		Name:       c.Query("name"),
		ShortName:  c.Query("short_name"),
		ThemeColor: c.Query("theme_color"),
	}
	if err := s.exporter.ExportFaviconPackage(c.Request.Context(), opts, attachment(c, "")); err != nil {
		s.fail(c, err)
	}
}

func (s *Server) colors(c *gin.Context) {
	markup, err := s.readMarkup(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	colors := svg.ExtractColors(markup)
	if colors == nil {
		colors = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"colors": colors})
}

func (s *Server) component(c *gin.Context) {
	markup, err := s.readMarkup(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	opts := svg.ComponentOptions{
		Framework:     svg.Framework(strings.ToLower(c.DefaultQuery("framework", string(svg.React)))),
		TypeScript:    queryBool(c, "ts"),
		ComponentName: c.Query("name"),
		DefaultExport: queryBool(c, "default_export"),
	}
	code, err := svg.GenerateComponent(markup, opts)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadParam, err))
		return
	}
	c.String(http.StatusOK, code)
}

// readSource decodes the request body, either raw or as the "file" field of
// a multipart form.
func (s *Server) readSource(c *gin.Context) (svgkit.Source, error) {
	data, err := s.readBody(c)
	if err != nil {
		return nil, err
	}
	return svgkit.DecodeSourceBytes(data)
}

func (s *Server) readMarkup(c *gin.Context) (string, error) {
	data, err := s.readBody(c)
	if err != nil {
		return "", err
	}
	if !svg.IsSVG(data) {
		return "", &svgkit.DecodeError{Err: svg.ErrNoSVG}
	}
	return string(data), nil
}

func (s *Server) readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadSize)

	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: missing file field: %v", errBadParam, err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty request body", errBadParam)
	}
	return data, nil
}

func (s *Server) exportOptions(c *gin.Context, src svgkit.Source) (svgkit.ExportOptions, error) {
	var opts svgkit.ExportOptions

	format, err := svgkit.ParseFormat(c.DefaultQuery("format", s.cfg.Export.Format))
	if err != nil {
		return opts, err
	}

	width, err := queryInt(c, "width", 0)
	if err != nil {
		return opts, err
	}
	height, err := queryInt(c, "height", 0)
	if err != nil {
		return opts, err
	}
	if name := c.Query("preset"); name != "" {
		preset, ok := svgkit.LookupDimensionPreset(name)
		if !ok {
			return opts, fmt.Errorf("%w: unknown preset %q", errBadParam, name)
		}
		width, height = preset.Width, preset.Height
	}
	scale, err := queryFloat(c, "scale", s.cfg.Export.Scale)
	if err != nil {
		return opts, err
	}
	quality, err := queryInt(c, "quality", s.cfg.Export.Quality)
	if err != nil {
		return opts, err
	}
	bg, err := s.background(c)
	if err != nil {
		return opts, err
	}
	filters, err := s.filters(c)
	if err != nil {
		return opts, err
	}
	op, err := s.composite(c)
	if err != nil {
		return opts, err
	}
	sizes := s.cfg.Export.IcoSizes
	if v := c.Query("ico_sizes"); v != "" {
		if sizes, err = svgkit.ParseIcoSizes(v); err != nil {
			return opts, err
		}
	}

	// Icons are rendered at their own sizes, never above 256 pixels, so the
	// output size only bounds the other formats.
	width, height = svgkit.OutputSize(src, width, height, scale)
	if limit := s.cfg.Server.MaxDimension; format != svgkit.ICO && (width > limit || height > limit) {
		return opts, fmt.Errorf("%w: the output size %dx%d exceeds %d pixels", errBadParam, width, height, limit)
	}

	return svgkit.ExportOptions{
		Source:     src,
		Format:     format,
		Width:      width,
		Height:     height,
		Background: bg,
		Quality:    svgkit.Quality(quality),
		Filters:    filters,
		IcoSizes:   sizes,
		Composite:  op,
	}, nil
}

func (s *Server) background(c *gin.Context) (string, error) {
	bg := c.DefaultQuery("bg", s.cfg.Export.Background)
	if svgkit.IsTransparent(bg) {
		return svgkit.Transparent, nil
	}
	if _, err := svgkit.ParseColor(bg); err != nil {
		return "", err
	}
	return bg, nil
}

func (s *Server) filters(c *gin.Context) (svgkit.FilterChain, error) {
	return svgkit.ResolveFilter(c.DefaultQuery("filter", s.cfg.Export.Filter))
}

func (s *Server) composite(c *gin.Context) (string, error) {
	op := c.DefaultQuery("composite", s.cfg.Export.Composite)
	if op == "" {
		return imop.SrcOver, nil
	}
	if err := imop.InitOp().Set(op); err != nil {
		return "", fmt.Errorf("%w: %q", err, op)
	}
	return op, nil
}

// fail maps err onto a status code and writes the JSON error response.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.AbortWithStatusJSON(code, gin.H{"success": false, "message": err.Error()})
}

func statusOf(err error) int {
	var (
		decodeErr *svgkit.DecodeError
		formatErr *svgkit.UnsupportedFormatError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &decodeErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &formatErr),
		errors.Is(err, errBadParam),
		errors.Is(err, imop.ErrUnsupportedOp),
		errors.Is(err, svgkit.ErrInvalidColor),
		errors.Is(err, svgkit.ErrInvalidFilter),
		errors.Is(err, svgkit.ErrInvalidDimensions),
		errors.Is(err, svgkit.ErrIcoSize),
		errors.Is(err, svgkit.ErrTooManyImages):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// attachment delivers a payload as a file download. The actual format is
// reported in a header, together with the fallback when it differs from
// the requested one.
func attachment(c *gin.Context, requested svgkit.Format) svgkit.Deliverer {
	return svgkit.DelivererFunc(func(ctx context.Context, payload []byte, filename, mimeType string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		if requested != "" {
			actual := svgkit.DetectFormat(payload)
			c.Header(HeaderFormat, actual.String())
			if actual != requested {
				c.Header(HeaderFallback, fmt.Sprintf("%s->%s", requested, actual))
			}
		}
		c.Data(http.StatusOK, mimeType, payload)
		return nil
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s should be an integer", errBadParam, key)
	}
	return n, nil
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s should be a number", errBadParam, key)
	}
	return f, nil
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}
