package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"manifestproxyd/internal/logger"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MANIFESTPROXY_"

func applyEnv(cfg *Config, log logger.Logger) {
	cfg.Listen = parseString(log, EnvPrefix+"LISTEN", cfg.Listen)
	cfg.LogLevel = parseString(log, EnvPrefix+"LOG_LEVEL", cfg.LogLevel)

	cfg.Upstream.Timeout = parseDuration(log, EnvPrefix+"UPSTREAM_TIMEOUT", cfg.Upstream.Timeout)
	cfg.Upstream.UserAgent = parseString(log, EnvPrefix+"USER_AGENT", cfg.Upstream.UserAgent)
	cfg.Upstream.MaxManifestBytes = int64(parseInt(log, EnvPrefix+"MAX_MANIFEST_BYTES", int(cfg.Upstream.MaxManifestBytes)))

	cfg.RateLimit.Enabled = parseBool(log, EnvPrefix+"RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerMinute = parseInt(log, EnvPrefix+"RATE_LIMIT_RPM", cfg.RateLimit.RequestsPerMinute)

	cfg.Metrics.Enabled = parseBool(log, EnvPrefix+"METRICS_ENABLED", cfg.Metrics.Enabled)

	cfg.Tracing.Enabled = parseBool(log, EnvPrefix+"TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = parseString(log, EnvPrefix+"TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = parseString(log, EnvPrefix+"TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = parseFloat(log, EnvPrefix+"TRACING_SAMPLING_RATE", cfg.Tracing.SamplingRate)
	cfg.Tracing.ServiceName = parseString(log, EnvPrefix+"TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
}

// parseString reads a string from the environment or returns the current value.
// An empty variable counts as unset.
func parseString(log logger.Logger, key, current string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return current
	}
	if strings.Contains(strings.ToLower(key), "token") {
		log.Debugf("Using environment variable %s (sensitive)", key)
	} else {
		log.Debugf("Using environment variable %s=%s", key, v)
	}
	return v
}

// parseInt reads an integer from the environment. Invalid values are logged
// and ignored.
func parseInt(log logger.Logger, key string, current int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return current
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("Invalid integer %q in %s, keeping %d", v, key, current)
		return current
	}
	log.Debugf("Using environment variable %s=%d", key, i)
	return i
}

// parseDuration reads a Go duration such as "30s" from the environment.
func parseDuration(log logger.Logger, key string, current time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return current
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warnf("Invalid duration %q in %s, keeping %s", v, key, current)
		return current
	}
	log.Debugf("Using environment variable %s=%s", key, d)
	return d
}

func parseBool(log logger.Logger, key string, current bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return current
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("Invalid boolean %q in %s, keeping %t", v, key, current)
		return current
	}
	log.Debugf("Using environment variable %s=%t", key, b)
	return b
}

func parseFloat(log logger.Logger, key string, current float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return current
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warnf("Invalid number %q in %s, keeping %g", v, key, current)
		return current
	}
	log.Debugf("Using environment variable %s=%g", key, f)
	return f
}
