package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/formats"
	"github.com/MeKo-Tech/datpeek/internal/player"
)

// Config represents the complete configuration for datpeek. It covers every
// command (identify, decode, scan, formats) and is loaded from configuration
// files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Archive context supplied to the decoders
	Container   string `mapstructure:"container" yaml:"container" json:"container"`
	PaletteFile string `mapstructure:"palette_file" yaml:"palette_file" json:"palette_file"`

	Decoders  DecodersConfig  `mapstructure:"decoders" yaml:"decoders" json:"decoders"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits" json:"limits"`
	Player    PlayerConfig    `mapstructure:"player" yaml:"player" json:"player"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail" yaml:"thumbnail" json:"thumbnail"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// DecodersConfig switches individual decoders off by ID.
type DecodersConfig struct {
	Disabled []string `mapstructure:"disabled" yaml:"disabled" json:"disabled"`
}

// LimitsConfig bounds what a single entry may allocate.
type LimitsConfig struct {
	MaxDimension int    `mapstructure:"max_dimension" yaml:"max_dimension" json:"max_dimension"`
	MaxPixels    int64  `mapstructure:"max_pixels" yaml:"max_pixels" json:"max_pixels"`
	MaxTextBytes int64  `mapstructure:"max_text_bytes" yaml:"max_text_bytes" json:"max_text_bytes"`
	MaxPDFPages  int    `mapstructure:"max_pdf_pages" yaml:"max_pdf_pages" json:"max_pdf_pages"`
	TextCharset  string `mapstructure:"text_charset" yaml:"text_charset" json:"text_charset"`
}

// PlayerConfig controls the realization wait and the capability probe.
type PlayerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	// Force and Deny override the probe for the named capabilities.
	Force []string `mapstructure:"force" yaml:"force" json:"force"`
	Deny  []string `mapstructure:"deny" yaml:"deny" json:"deny"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// ThumbnailConfig contains preview settings.
type ThumbnailConfig struct {
	Size int `mapstructure:"size" yaml:"size" json:"size"`
}

// BatchConfig contains directory scan settings.
type BatchConfig struct {
	Workers     int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive   bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include     []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude     []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	MetricsFile string   `mapstructure:"metrics_file" yaml:"metrics_file" json:"metrics_file"`
}

// Valid output formats.
var OutputFormats = []string{"text", "json", "yaml", "csv"}

var logLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	limits := formats.DefaultOptions()
	return Config{
		LogLevel: "info",
		Limits: LimitsConfig{
			MaxDimension: limits.MaxDimension,
			MaxPixels:    limits.MaxPixels,
			MaxTextBytes: limits.MaxTextBytes,
			MaxPDFPages:  limits.MaxPDFPages,
			TextCharset:  limits.TextCharset,
		},
		Player: PlayerConfig{
			PollInterval: player.DefaultPollInterval,
			MaxAttempts:  player.DefaultMaxAttempts,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Thumbnail: ThumbnailConfig{
			Size: 128,
		},
		Batch: BatchConfig{
			Workers:   4,
			Recursive: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(logLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(OutputFormats, ", "))
	}

	if c.Limits.MaxDimension <= 0 || c.Limits.MaxDimension > 65535 {
		return fmt.Errorf("invalid limits.max_dimension: %d (must be between 1 and 65535)", c.Limits.MaxDimension)
	}
	if c.Limits.MaxPixels <= 0 {
		return fmt.Errorf("invalid limits.max_pixels: %d (must be positive)", c.Limits.MaxPixels)
	}
	if c.Limits.MaxTextBytes <= 0 {
		return fmt.Errorf("invalid limits.max_text_bytes: %d (must be positive)", c.Limits.MaxTextBytes)
	}
	if c.Limits.MaxPDFPages <= 0 {
		return fmt.Errorf("invalid limits.max_pdf_pages: %d (must be positive)", c.Limits.MaxPDFPages)
	}

	if c.Player.PollInterval <= 0 {
		return fmt.Errorf("invalid player.poll_interval: %s (must be positive)", c.Player.PollInterval)
	}
	if c.Player.MaxAttempts <= 0 {
		return fmt.Errorf("invalid player.max_attempts: %d (must be positive)", c.Player.MaxAttempts)
	}
	if err := validateCapabilities("player.force", c.Player.Force); err != nil {
		return err
	}
	if err := validateCapabilities("player.deny", c.Player.Deny); err != nil {
		return err
	}

	if c.Thumbnail.Size <= 0 {
		return fmt.Errorf("invalid thumbnail.size: %d (must be positive)", c.Thumbnail.Size)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	return nil
}

// FormatOptions converts the limits and player settings into decoder options.
func (c *Config) FormatOptions(logger *slog.Logger) formats.Options {
	opts := formats.DefaultOptions()
	opts.MaxDimension = c.Limits.MaxDimension
	opts.MaxPixels = c.Limits.MaxPixels
	opts.MaxTextBytes = c.Limits.MaxTextBytes
	opts.MaxPDFPages = c.Limits.MaxPDFPages
	opts.TextCharset = c.Limits.TextCharset
	opts.Logger = logger
	opts.Player = player.Options{
		PollInterval: c.Player.PollInterval,
		MaxAttempts:  c.Player.MaxAttempts,
		Logger:       logger,
	}
	return opts
}

// ProbeOptions converts the capability overrides into probe options.
func (c *Config) ProbeOptions(logger *slog.Logger) capability.ProbeOptions {
	return capability.ProbeOptions{
		Force:  toCapabilities(c.Player.Force),
		Deny:   toCapabilities(c.Player.Deny),
		Logger: logger,
	}
}

func validateCapabilities(key string, names []string) error {
	for _, n := range names {
		if !slices.Contains(capability.All, capability.Capability(n)) {
			return fmt.Errorf("invalid %s entry: %s (must be one of: %s)", key, n, capability.Full())
		}
	}
	return nil
}

func toCapabilities(names []string) []capability.Capability {
	out := make([]capability.Capability, len(names))
	for i, n := range names {
		out[i] = capability.Capability(n)
	}
	return out
}
