package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/metrics"
	"manifestproxyd/internal/models"
)

const (
	// DefaultTimeout bounds one manifest fetch, body included.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes caps the size of a fetched manifest.
	DefaultMaxBytes int64 = 16 << 20

	defaultDialTimeout     = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	defaultMaxIdleConns    = 64
	defaultMaxIdlePerHost  = 8
)

// ManifestFetcher retrieves a remote manifest. The caller must close the
// returned stream on every path.
type ManifestFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, string, error)
}

// Options configures the HTTP fetcher.
type Options struct {
	// UserAgent is sent on every upstream request when non-empty.
	UserAgent string
	// MaxBytes caps the manifest size; zero means DefaultMaxBytes.
	MaxBytes int64
	// Transport overrides the base transport. It is still wrapped for tracing.
	Transport http.RoundTripper
}

// Client is the HTTP implementation of ManifestFetcher.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string
	maxBytes   int64
}

// NewClient creates a new manifest fetcher.
func NewClient(log logger.Logger, opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxIdleConnsPerHost:   defaultMaxIdlePerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultDialTimeout,
			ExpectContinueTimeout: time.Second,
		}
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(base),
		},
		logger:    log.With("component", "fetch"),
		userAgent: opts.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch issues an uncached GET for rawURL. The timeout covers the request
// and reading the returned body; it ends when the body is closed.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	target := Redact(rawURL)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, "", fmt.Errorf("%w: failed to create request for %s: %w", models.ErrUpstreamFetch, target, err)
	}

	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debugf("Fetching manifest from %s", target)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		metrics.RecordUpstreamFetch("error", time.Since(start))
		return nil, "", fmt.Errorf("%w: failed to fetch manifest from %s: %w", models.ErrUpstreamFetch, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		metrics.RecordUpstreamFetch("status_"+strconv.Itoa(resp.StatusCode), time.Since(start))
		return nil, "", fmt.Errorf("%w: received status code %d from %s", models.ErrUpstreamFetch, resp.StatusCode, target)
	}
	metrics.RecordUpstreamFetch("ok", time.Since(start))

	if final := resp.Request.URL.String(); final != rawURL {
		c.logger.Debugf("Manifest request for %s redirected to %s", target, Redact(final))
	}

	return &limitedBody{
		rc:        resp.Body,
		cancel:    cancel,
		limit:     c.maxBytes,
		remaining: c.maxBytes,
	}, resp.Header.Get("Content-Type"), nil
}

// CloseIdleConnections releases pooled upstream connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// limitedBody fails reads past limit and releases the request context on Close.
type limitedBody struct {
	rc        io.ReadCloser
	cancel    context.CancelFunc
	limit     int64
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		var probe [1]byte
		n, err := b.rc.Read(probe[:])
		if n > 0 {
			return 0, fmt.Errorf("%w: manifest exceeds %d bytes", models.ErrUpstreamFetch, b.limit)
		}
		return 0, err
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	return n, err
}

func (b *limitedBody) Close() error {
	err := b.rc.Close()
	b.cancel()
	return err
}
