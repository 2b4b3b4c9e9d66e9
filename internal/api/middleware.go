package api

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/metrics"
)

// HeaderRequestID carries the request correlation ID in both directions.
const HeaderRequestID = "X-Request-ID"

// requestID adds a unique ID to every request.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > 128 || !utf8.ValidString(reqID) {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := logger.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer turns a handler panic into a logged 500.
func recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				logger.FromContext(r.Context(), log).Errorf("panic recovered in %s %s: %v\n%s",
					r.Method, strings.ToValidUTF8(r.URL.Path, ""), rec, buf[:n])

				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:     "internal_error",
					RequestID: logger.RequestIDFromContext(r.Context()),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs one line per request. The query string is never
// logged because it carries the caller's token.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l := logger.FromContext(r.Context(), log)
			msg := fmt.Sprintf("%s %s -> %d (%d bytes) in %s",
				r.Method, strings.ToValidUTF8(r.URL.Path, ""), status, ww.BytesWritten(), time.Since(start))
			switch {
			case status >= 500:
				l.Errorf("%s", msg)
			case status >= 400:
				l.Warnf("%s", msg)
			default:
				l.Infof("%s", msg)
			}
		})
	}
}

// httpMetrics records Prometheus metrics labelled by route pattern.
func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer metrics.TrackInFlight()()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		// Raw paths would explode label cardinality.
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		metrics.RecordHTTPRequest(r.Method, path, status, ww.BytesWritten(), time.Since(start))
	})
}

// rateLimit limits each client IP to limit requests per window.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimited()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:     "rate_limit_exceeded",
				Detail:    "too many requests, try again later",
				RequestID: logger.RequestIDFromContext(r.Context()),
			})
		}),
	)
}

// otelHandler wraps h in a server span. Health and metrics scrapes are not traced.
func otelHandler(h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, logger.ServiceName,
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/healthz", "/metrics":
				return false
			}
			return true
		}),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
