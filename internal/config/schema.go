// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for slackapprove.
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/slackapprove/internal/security"
	"github.com/flemzord/slackapprove/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Router    RouterConfig    `yaml:"router"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.slack").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// TelemetryConfig holds metrics and tracing settings.
type TelemetryConfig struct {
	Tracing telemetry.TracingConfig `yaml:"tracing"`

	// RuntimeMetrics adds Go runtime and process collectors to /metrics.
	RuntimeMetrics bool `yaml:"runtime_metrics"`
}

// RouterConfig sizes the interaction router.
type RouterConfig struct {
	Workers   int                      `yaml:"workers"`
	InboxSize int                      `yaml:"inbox_size"`
	Timeout   time.Duration            `yaml:"timeout"`
	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
}

// ApplyDefaults fills unset ambient settings. Module defaults are applied by
// each module's Configure.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Telemetry.Tracing.SampleRatio == 0 {
		c.Telemetry.Tracing.SampleRatio = 1
	}
}
