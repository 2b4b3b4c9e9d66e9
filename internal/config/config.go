package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"manifestproxyd/internal/fetch"
	"manifestproxyd/internal/logger"
)

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	ErrUnknownConfigField = errors.New("unknown config field")
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds the fully resolved daemon configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	LogLevel  string          `yaml:"logLevel"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// UpstreamConfig controls how manifests are fetched.
type UpstreamConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"userAgent"`
	MaxManifestBytes int64         `yaml:"maxManifestBytes"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig mirrors telemetry.Config.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	ServiceName  string  `yaml:"serviceName"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Upstream: UpstreamConfig{
			Timeout:          fetch.DefaultTimeout,
			UserAgent:        logger.ServiceName,
			MaxManifestBytes: fetch.DefaultMaxBytes,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerMinute: 600,
		},
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			ServiceName:  logger.ServiceName,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and MANIFESTPROXY_* environment overrides, in that order.
// The result is not validated; callers apply flags first and then call Validate.
func Load(path string, log logger.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file at %s: %w", path, err)
		}
		if err := decodeStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		log.Infof("Loaded configuration file %s", path)
	}

	applyEnv(&cfg, log.With("component", "config"))
	return cfg, nil
}

// decodeStrict decodes a single YAML document into cfg, rejecting unknown keys.
// Keys absent from the document keep the values already in cfg.
func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, fmt.Errorf("listen address is required"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout))
	}
	if c.Upstream.MaxManifestBytes <= 0 {
		errs = append(errs, fmt.Errorf("upstream.maxManifestBytes must be positive, got %d", c.Upstream.MaxManifestBytes))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("rateLimit.requestsPerMinute must be positive when enabled, got %d", c.RateLimit.RequestsPerMinute))
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "grpc", "http":
		default:
			errs = append(errs, fmt.Errorf("tracing.exporter must be grpc or http, got %q", c.Tracing.Exporter))
		}
		if c.Tracing.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required when tracing is enabled"))
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			errs = append(errs, fmt.Errorf("tracing.samplingRate must be between 0 and 1, got %g", c.Tracing.SamplingRate))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
