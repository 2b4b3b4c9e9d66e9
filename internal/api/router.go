package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/models"
)

// ManifestService is the pipeline behind GET /api/Manifest.
type ManifestService interface {
	FetchManifest(ctx context.Context, req models.PlaybackRequest) (models.Result, error)
}

// RateLimitOptions configures the per-client request limiter.
type RateLimitOptions struct {
	Enabled           bool
	RequestsPerMinute int
}

// Options configures the HTTP surface.
type Options struct {
	Version        string
	MetricsEnabled bool
	RateLimit      RateLimitOptions
}

type API struct {
	service ManifestService
	logger  logger.Logger
	version string
}

// New builds the router serving the manifest endpoint plus health and metrics.
func New(service ManifestService, log logger.Logger, opts Options) http.Handler {
	api := &API{
		service: service,
		logger:  log.With("component", "api"),
		version: opts.Version,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(api.logger))
	r.Use(httpMetrics)
	r.Use(recoverer(api.logger))

	r.Get("/healthz", api.handleHealth)
	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.RateLimit.Enabled && opts.RateLimit.RequestsPerMinute > 0 {
			r.Use(rateLimit(opts.RateLimit.RequestsPerMinute, time.Minute))
		}
		r.Get("/api/Manifest", api.handleManifest)
		r.Get("/api/manifest", api.handleManifest)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", RequestID: logger.RequestIDFromContext(r.Context())})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed", RequestID: logger.RequestIDFromContext(r.Context())})
	})

	return otelHandler(r)
}
