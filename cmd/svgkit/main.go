package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/esimov/svgkit"
	"github.com/esimov/svgkit/config"
	"github.com/esimov/svgkit/imop"
	"github.com/esimov/svgkit/server"
	"github.com/esimov/svgkit/svg"
	"github.com/esimov/svgkit/utils"
	"go.uber.org/zap"
)

const HelpBanner = `
┌─┐┬  ┬┌─┐┬┌─┬┌┬┐
└─┐└┐┌┘│ ┬├┴┐│ │
└─┘ └┘ └─┘┴ ┴┴ ┴

SVG to image converter and favicon generator.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

var (
	// Flags
	source        = flag.String("in", pipeName, "Source file, directory or URL")
	destination   = flag.String("out", pipeName, "Destination file or directory")
	format        = flag.String("format", "", "Output format: "+formatNames())
	newWidth      = flag.Int("width", 0, "Output width")
	newHeight     = flag.Int("height", 0, "Output height")
	preset        = flag.String("preset", "", "Dimension preset, e.g. \"Open Graph 1200x630\"")
	scale         = flag.Float64("scale", 1, "Scale factor applied on the output size")
	background    = flag.String("bg", "", "Background color (default transparent)")
	quality       = flag.Int("quality", 0, "Quality of the lossy formats (1-100)")
	filter        = flag.String("filter", "", "CSS filter string or preset: "+strings.Join(svgkit.FilterPresetNames(), ", "))
	icoSizes      = flag.String("ico-sizes", "", "Comma separated icon sizes (default 16,32,48)")
	composite     = flag.String("composite", "", "Composite operation of the source over the background: "+strings.Join(imop.Ops(), ", "))
	favicon       = flag.Bool("favicon", false, "Generate a favicon package")
	component     = flag.String("component", "", "Generate a component: react or vue")
	typeScript    = flag.Bool("ts", false, "Generate a TypeScript component")
	componentName = flag.String("name", "", "Component name")
	defaultExport = flag.Bool("default-export", false, "Use a default export for the component")
	colors        = flag.Bool("colors", false, "List the colors used by the SVG")
	workers       = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
	configFile    = flag.String("config", "", "Configuration file")
	serve         = flag.Bool("serve", false, "Start the HTTP server")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := runServer(ctx, cfg); err != nil {
			log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
		}
		return
	}

	proc, err := newProcessor(cfg)
	if err != nil {
		flag.Usage()
		log.Fatal(utils.DecorateText("\n"+err.Error(), utils.ErrorMessage))
	}

	op := &svgkit.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		Workers:  *workers,
	}
	if !isSet("conc") && cfg.Export.Workers > 0 {
		op.Workers = cfg.Export.Workers
	}
	if err := op.Execute(ctx, proc); err != nil {
		log.Fatal(utils.DecorateText(fmt.Sprintf("\nError: %v", err), utils.ErrorMessage))
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := server.New(cfg, logger).Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped", zap.String("addr", cfg.Server.Addr))
	return nil
}

// newProcessor merges the flags with the configuration. An explicitly set
// flag always wins over the configuration file.
func newProcessor(cfg *config.Config) (*svgkit.Processor, error) {
	proc := &svgkit.Processor{
		Width:      *newWidth,
		Height:     *newHeight,
		Scale:      cfg.Export.Scale,
		Background: cfg.Export.Background,
		Quality:    svgkit.Quality(cfg.Export.Quality),
		IcoSizes:   cfg.Export.IcoSizes,
		Composite:  cfg.Export.Composite,
	}

	switch {
	case *component != "":
		proc.Mode = svgkit.ComponentMode
		name := *componentName
		if name == "" && *source != pipeName && !utils.IsValidUrl(*source) {
			name = svg.ComponentName(filepath.Base(*source))
		}
		proc.Component = svg.ComponentOptions{
			Framework:     svg.Framework(strings.ToLower(*component)),
			TypeScript:    *typeScript,
			ComponentName: name,
			DefaultExport: *defaultExport,
		}
	case *colors:
		proc.Mode = svgkit.ColorsMode
	case *favicon:
		proc.Mode = svgkit.FaviconMode
	}

	f := cfg.Export.Format
	switch {
	case *format != "":
		f = *format
	case *destination != pipeName && filepath.Ext(*destination) != "":
		f = filepath.Ext(*destination)
	}
	var err error
	if proc.Mode == svgkit.ExportMode {
		if proc.Format, err = svgkit.ParseFormat(f); err != nil {
			return nil, err
		}
	}

	if *preset != "" {
		p, ok := svgkit.LookupDimensionPreset(*preset)
		if !ok {
			return nil, fmt.Errorf("unknown dimension preset: %s", *preset)
		}
		proc.Width, proc.Height = p.Width, p.Height
	}
	if isSet("scale") {
		proc.Scale = *scale
	}
	if isSet("bg") {
		proc.Background = *background
	}
	if !svgkit.IsTransparent(proc.Background) {
		if _, err := svgkit.ParseColor(proc.Background); err != nil {
			return nil, err
		}
	}
	if isSet("quality") {
		proc.Quality = svgkit.Quality(*quality)
	}

	filterValue := cfg.Export.Filter
	if isSet("filter") {
		filterValue = *filter
	}
	if proc.Filters, err = svgkit.ResolveFilter(filterValue); err != nil {
		return nil, err
	}

	if *icoSizes != "" {
		if proc.IcoSizes, err = svgkit.ParseIcoSizes(*icoSizes); err != nil {
			return nil, err
		}
	}
	if isSet("composite") {
		if err := imop.InitOp().Set(*composite); err != nil {
			return nil, fmt.Errorf("%w: %s", err, *composite)
		}
		proc.Composite = *composite
	}
	return proc, nil
}

// isSet reports whether the flag was passed on the command line.
func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func formatNames() string {
	formats := svgkit.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}
