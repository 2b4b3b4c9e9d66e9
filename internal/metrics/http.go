package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manifestproxy_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "manifestproxy_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manifestproxy_http_response_size_bytes",
		Help:    "HTTP response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "path", "status"})

	httpRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manifestproxy_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func TrackInFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// RecordHTTPRequest records one served HTTP request. path must be a route
// pattern, never the raw request path.
func RecordHTTPRequest(method, path string, status, bytesWritten int, d time.Duration) {
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	if bytesWritten > 0 {
		httpResponseSize.WithLabelValues(method, path, code).Observe(float64(bytesWritten))
	}
}

// RecordRateLimited counts one request rejected with 429.
func RecordRateLimited() {
	httpRateLimited.Inc()
}
