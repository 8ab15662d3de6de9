// Package config loads the defaults of the converter from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/esimov/svgkit/imop"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// The environment variables overriding the file configuration.
const (
	EnvAddr     = "SVGKIT_ADDR"
	EnvQuality  = "SVGKIT_QUALITY"
	EnvLogLevel = "SVGKIT_LOG_LEVEL"
)

// ExportConfig holds the export defaults.
type ExportConfig struct {
	Format     string  `yaml:"format"`
	Quality    int     `yaml:"quality"`
	Background string  `yaml:"background"`
	Scale      float64 `yaml:"scale"`
	Filter     string  `yaml:"filter"`
	IcoSizes   []int   `yaml:"ico_sizes"`
	Composite  string  `yaml:"composite"`
	Workers    int     `yaml:"workers"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUploadSize   int64         `yaml:"max_upload_size"`
	MaxDimension    int           `yaml:"max_dimension"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the main configuration structure.
type Config struct {
	Export ExportConfig `yaml:"export"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Format:     "png",
			Quality:    92,
			Background: "transparent",
			Scale:      1,
			Filter:     "none",
			IcoSizes:   []int{16, 32, 48},
			Composite:  imop.SrcOver,
			Workers:    4,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			MaxUploadSize:   10 << 20,
			MaxDimension:    8192,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file on top of the defaults and applies the
// environment overrides. A .env file in the working directory is loaded
// first, if there is one. An empty path skips the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if addr, ok := os.LookupEnv(EnvAddr); ok && addr != "" {
		c.Server.Addr = addr
	}
	if q, ok := os.LookupEnv(EnvQuality); ok && q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvQuality, q, err)
		}
		c.Export.Quality = n
	}
	if lvl, ok := os.LookupEnv(EnvLogLevel); ok && lvl != "" {
		c.Log.Level = lvl
	}
	return nil
}

// Validate checks the ranges of the numeric settings.
func (c *Config) Validate() error {
	if c.Export.Quality < 1 || c.Export.Quality > 100 {
		return fmt.Errorf("export quality should be between 1 and 100, got %d", c.Export.Quality)
	}
	if c.Export.Scale <= 0 {
		return fmt.Errorf("export scale should be positive, got %v", c.Export.Scale)
	}
	for _, s := range c.Export.IcoSizes {
		if s < 1 || s > 256 {
			return fmt.Errorf("ico size should be between 1 and 256, got %d", s)
		}
	}
	if c.Export.Composite != "" {
		if err := imop.InitOp().Set(c.Export.Composite); err != nil {
			return fmt.Errorf("%w: %q", err, c.Export.Composite)
		}
	}
	if c.Server.MaxUploadSize <= 0 {
		return errors.New("server max upload size should be positive")
	}
	if c.Server.MaxDimension <= 0 {
		return errors.New("server max dimension should be positive")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the zap logger described by the log section.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch c.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}
