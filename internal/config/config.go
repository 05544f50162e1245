// Package config provides configuration types and loading for Palisade.
//
// Configuration is file-based (palisade.yaml) with environment variable
// overrides under the PALISADE_ prefix. The schema covers the HTTP listener,
// access-log persistence, metrics endpoint protection, and tracing.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for a Palisade server.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// AccessLog configures where finalized responses are recorded.
	AccessLog AccessLogConfig `yaml:"access_log" mapstructure:"access_log"`

	// Metrics configures the Prometheus endpoint and its protection.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// DevMode enables development features (debug logging, open metrics).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddr is the address the server binds to.
	// Default: "127.0.0.1:8080" (localhost only).
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`

	// LogLevel is one of debug, info, warn, error. Default: "info".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// ShutdownTimeout bounds graceful shutdown (e.g. "10s"). Default: "10s".
	ShutdownTimeout string `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AccessLogConfig configures access-record persistence.
type AccessLogConfig struct {
	// Output selects the store: "stdout" for JSON lines on standard output,
	// "file://<absolute dir>" for rotated JSON Lines files, or
	// "sqlite://<absolute path>" for the embedded SQLite store.
	// Default: "stdout".
	Output string `yaml:"output" mapstructure:"output" validate:"omitempty,access_output"`

	// BufferSize is the async channel capacity. Default: 1024.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" validate:"omitempty,min=1"`

	// BatchSize is the number of records written per batch. Default: 64.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"omitempty,min=1"`

	// FlushInterval is how often buffered records are flushed (e.g. "2s").
	// Default: "2s".
	FlushInterval string `yaml:"flush_interval" mapstructure:"flush_interval"`

	// RetentionDays is how long the SQLite store keeps records. Default: 7.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days" validate:"omitempty,min=1"`
}

// MetricsConfig configures the /metrics endpoint.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served. Default: true.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Keys holds API key hashes granting access to /metrics. Each entry is
	// "sha256:<hex>", bare SHA-256 hex, or an Argon2id PHC string.
	// Empty means the endpoint is open (fine behind a private network,
	// required to be non-empty outside dev mode when RequireAuth is set).
	Keys []string `yaml:"keys" mapstructure:"keys"`

	// RequireAuth rejects unauthenticated /metrics requests. Default: false.
	RequireAuth bool `yaml:"require_auth" mapstructure:"require_auth"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on span export to stdout. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// ServiceName is the resource service.name attribute. Default: "palisade".
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// SetDefaults fills zero-valued fields with their documented defaults.
func (c *Config) SetDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.AccessLog.Output == "" {
		c.AccessLog.Output = "stdout"
	}
	if c.AccessLog.BufferSize == 0 {
		c.AccessLog.BufferSize = 1024
	}
	if c.AccessLog.BatchSize == 0 {
		c.AccessLog.BatchSize = 64
	}
	if c.AccessLog.FlushInterval == "" {
		c.AccessLog.FlushInterval = "2s"
	}
	if c.AccessLog.RetentionDays == 0 {
		c.AccessLog.RetentionDays = 7
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "palisade"
	}
}

// LoadConfig reads configuration via Viper, applies defaults, and validates.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigRaw reads configuration without defaults or validation, so CLI
// flags can override fields before the final validation pass.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file Viper loaded, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
