// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/editkit/internal/trim"
)

// Static errors for configuration validation.
var (
	// ErrInvalidConfig is returned when a value fails validation.
	ErrInvalidConfig = errors.New("config: invalid value")
	// ErrTrimDurationRange is returned when TRIM_MIN_DURATION exceeds a
	// non-zero TRIM_MAX_DURATION.
	ErrTrimDurationRange = errors.New("config: TRIM_MIN_DURATION exceeds TRIM_MAX_DURATION")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/editkit" json:"temp_dir" validate:"required"`

	// Export settings. Zero workers uses one per CPU.
	FrameWorkers int `env:"FRAME_WORKERS, default=0" json:"frame_workers" validate:"min=0,max=256"`

	// Trim control settings
	TrimControlWidth float64       `env:"TRIM_CONTROL_WIDTH, default=18" json:"trim_control_width" validate:"min=0"`
	TrimMinDuration  time.Duration `env:"TRIM_MIN_DURATION, default=1s" json:"trim_min_duration" validate:"min=0"`
	TrimMaxDuration  time.Duration `env:"TRIM_MAX_DURATION, default=0s" json:"trim_max_duration" validate:"min=0"`

	// Video tooling
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path" validate:"required"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" validate:"required_with=S3Bucket"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Trim returns the trim control settings.
func (c *Config) Trim() trim.Config {
	return trim.Config{
		ControlWidth:    c.TrimControlWidth,
		MinimumDuration: c.TrimMinDuration,
		MaximumDuration: c.TrimMaxDuration,
	}
}

// Load reads configuration from the process environment and validates it.
func Load() (*Config, error) {
	return LoadFrom(envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the trim duration range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.TrimMaxDuration > 0 && c.TrimMinDuration > c.TrimMaxDuration {
		return ErrTrimDurationRange
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout. When LogFormat
// is "json" it emits JSON lines, otherwise human-readable text.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stdout)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// String returns a string representation of the config with credentials omitted.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, FrameWorkers: %d, TrimControlWidth: %g, TrimMinDuration: %s, TrimMaxDuration: %s, FFmpegPath: %s, FFprobePath: %s, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, AWSCredentials: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.FrameWorkers,
		c.TrimControlWidth,
		c.TrimMinDuration,
		c.TrimMaxDuration,
		c.FFmpegPath,
		c.FFprobePath,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		mask(c.AWSAccessKeyID != "" || c.AWSSecretAccessKey != ""),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(set bool) string {
	if set {
		return "***"
	}
	return "<unset>"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
