package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/models"
)

type stubService struct {
	mu    sync.Mutex
	reqs  []models.PlaybackRequest
	res   models.Result
	err   error
	panic bool
}

func (s *stubService) FetchManifest(ctx context.Context, req models.PlaybackRequest) (models.Result, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.panic {
		panic("boom")
	}
	return s.res, s.err
}

func manifestURL(playbackURL, token string) string {
	q := url.Values{}
	q.Set("playbackUrl", playbackURL)
	q.Set("token", token)
	return "/api/Manifest?" + q.Encode()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestManifest_Success(t *testing.T) {
	svc := &stubService{res: models.Result{
		Body:        "#EXTM3U\n",
		ContentType: models.ManifestContentType,
		Kind:        models.KindHLS,
	}}
	handler := New(svc, logger.Nop(), Options{})

	req := httptest.NewRequest(http.MethodGet, manifestURL("http://cdn.example.com/video.ism/manifest", "Bearer=sig=abc&exp=123"), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "#EXTM3U\n", rec.Body.String())

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, models.PlaybackRequest{
		PlaybackURL: "http://cdn.example.com/video.ism/manifest",
		RawToken:    "Bearer=sig=abc&exp=123",
	}, svc.reqs[0])
}

func TestManifest_QueryKeysAreCaseInsensitive(t *testing.T) {
	svc := &stubService{res: models.Result{Body: "x", ContentType: models.ManifestContentType}}
	handler := New(svc, logger.Nop(), Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/manifest?PlaybackURL=http%3A%2F%2Fcdn.example.com%2Fm&TOKEN=sig%3Dabc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.reqs, 1)
	assert.Equal(t, "http://cdn.example.com/m", svc.reqs[0].PlaybackURL)
	assert.Equal(t, "sig=abc", svc.reqs[0].RawToken)
}

func TestManifest_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid argument", fmt.Errorf("%w: token is required", models.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"upstream", fmt.Errorf("%w: received status code 404", models.ErrUpstreamFetch), http.StatusBadGateway, "upstream_fetch_failed"},
		{"transform", fmt.Errorf("%w: match timeout", models.ErrTransform), http.StatusInternalServerError, "transform_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(&stubService{err: tt.err}, logger.Nop(), Options{})

			req := httptest.NewRequest(http.MethodGet, manifestURL("http://cdn.example.com/m", "sig=abc"), nil)
			req.Header.Set(HeaderRequestID, "req-123")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, "req-123", resp.RequestID)
			assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
		})
	}
}

func TestManifest_UpstreamDetailNotLeaked(t *testing.T) {
	err := fmt.Errorf("%w: failed to fetch manifest from http://internal.example.com/secret: dial tcp", models.ErrUpstreamFetch)
	handler := New(&stubService{err: err}, logger.Nop(), Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, manifestURL("http://cdn.example.com/m", "sig=abc"), nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "internal.example.com")
}

func TestManifest_PanicRecovered(t *testing.T) {
	handler := New(&stubService{panic: true}, logger.Nop(), Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, manifestURL("http://cdn.example.com/m", "sig=abc"), nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Error)
}

func TestManifest_RateLimited(t *testing.T) {
	svc := &stubService{res: models.Result{Body: "x", ContentType: models.ManifestContentType}}
	handler := New(svc, logger.Nop(), Options{RateLimit: RateLimitOptions{Enabled: true, RequestsPerMinute: 2}})

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, manifestURL("http://cdn.example.com/m", "sig=abc"), nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Equal(t, "rate_limit_exceeded", decodeError(t, rec).Error)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Len(t, svc.reqs, 2)

	// Health checks are outside the limited group.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	handler := New(&stubService{}, logger.Nop(), Options{Version: "1.2.3"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthResponse{Status: "ok", Version: "1.2.3"}, resp)
}

func TestMetricsEndpoint(t *testing.T) {
	enabled := New(&stubService{}, logger.Nop(), Options{MetricsEnabled: true})
	rec := httptest.NewRecorder()
	enabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "manifestproxy_http_requests_in_flight"))

	disabled := New(&stubService{}, logger.Nop(), Options{})
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	handler := New(&stubService{}, logger.Nop(), Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live/ch1/master.m3u8", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/Manifest", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestLogger_OmitsQuery(t *testing.T) {
	var buf strings.Builder
	log := logger.New(&lockedWriter{w: &buf}, "info")
	handler := New(&stubService{res: models.Result{Body: "x", ContentType: models.ManifestContentType}}, log, Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, manifestURL("http://cdn.example.com/m", "sig=supersecret"), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "GET /api/Manifest -> 200")
	assert.NotContains(t, buf.String(), "supersecret")
}

func TestQueryParam(t *testing.T) {
	raw := "playbackurl=a&token=b&token=c&bad=%zz"
	assert.Equal(t, "a", queryParam(raw, "playbackUrl"))
	assert.Equal(t, "b", queryParam(raw, "token"))
	assert.Equal(t, "", queryParam(raw, "missing"))
	assert.Equal(t, "", queryParam("", "token"))
}

func TestQueryParam_MixedCaseKeysAreDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Equal(t, "first", queryParam("Token=first&TOKEN=second", "token"))
		assert.Equal(t, "exact", queryParam("TOKEN=upper&token=exact&Token=mixed", "token"))
		assert.Equal(t, "sig=abc", queryParam("TOKEN=sig%3Dabc", "token"))
	}
}

func TestManifest_MixedCaseTokenKeysUseFirstInQueryOrder(t *testing.T) {
	svc := &stubService{res: models.Result{Body: "x", ContentType: models.ManifestContentType}}
	handler := New(svc, logger.Nop(), Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/Manifest?PLAYBACKURL=http%3A%2F%2Fcdn.example.com%2Fm&Token=first&TOKEN=second", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.reqs, 1)
	assert.Equal(t, "first", svc.reqs[0].RawToken)
}

type lockedWriter struct {
	mu sync.Mutex
	w  *strings.Builder
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
