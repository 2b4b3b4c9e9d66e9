// Package metrics holds the Prometheus collectors for manifest proxying.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"manifestproxyd/internal/models"
)

// Outcome labels shared by request and fetch metrics.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidArgument = "invalid_argument"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeTransformError  = "transform_error"
)

var (
	manifestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manifestproxy_manifest_requests_total",
		Help: "Manifest proxy requests by outcome and manifest kind",
	}, []string{"outcome", "kind"})

	manifestRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manifestproxy_manifest_request_duration_seconds",
		Help:    "End-to-end manifest proxy latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	urlsTokenized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manifestproxy_urls_tokenized_total",
		Help: "Manifest URLs that received the token parameter",
	})

	fragmentsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manifestproxy_fragments_resolved_total",
		Help: "Relative fragment references rewritten to absolute URLs",
	})

	upstreamFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manifestproxy_upstream_fetch_duration_seconds",
		Help:    "Time to receive upstream manifest response headers",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"result"})

	upstreamBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "manifestproxy_upstream_manifest_bytes",
		Help:    "Size of fetched upstream manifests in bytes",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	})
)

// OutcomeOf maps a pipeline error to its outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case models.IsInvalidArgument(err):
		return OutcomeInvalidArgument
	case models.IsUpstreamFetch(err):
		return OutcomeUpstreamError
	default:
		return OutcomeTransformError
	}
}

// RecordManifestRequest records one completed FetchManifest call.
func RecordManifestRequest(outcome string, kind models.ManifestKind, d time.Duration) {
	if kind == "" {
		kind = models.KindUnknown
	}
	manifestRequests.WithLabelValues(outcome, string(kind)).Inc()
	manifestRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRewrite records the work done by one rewrite pass.
func RecordRewrite(injected, resolved, size int) {
	urlsTokenized.Add(float64(injected))
	fragmentsResolved.Add(float64(resolved))
	upstreamBytes.Observe(float64(size))
}

// RecordUpstreamFetch records the latency of one upstream request.
func RecordUpstreamFetch(result string, d time.Duration) {
	upstreamFetchDuration.WithLabelValues(result).Observe(d.Seconds())
}
