// Package proxy implements the manifest proxy pipeline: canonicalize the
// token, fetch the manifest, rewrite it and hand it back to the caller.
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"manifestproxyd/internal/fetch"
	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/manifest"
	"manifestproxyd/internal/metrics"
	"manifestproxyd/internal/models"
	"manifestproxyd/internal/telemetry"
	"manifestproxyd/internal/token"
)

// Service runs the manifest proxy pipeline. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	fetcher fetch.ManifestFetcher
	timeout time.Duration
	logger  logger.Logger
	tracer  trace.Tracer
}

// NewService creates a Service that fetches manifests through fetcher.
// A non-positive timeout falls back to fetch.DefaultTimeout.
func NewService(fetcher fetch.ManifestFetcher, timeout time.Duration, log logger.Logger) *Service {
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	return &Service{
		fetcher: fetcher,
		timeout: timeout,
		logger:  log.With("component", "proxy"),
		tracer:  telemetry.Tracer("manifestproxyd/proxy"),
	}
}

// FetchManifest fetches req.PlaybackURL and returns it with req.RawToken
// baked into every fragment URL. Errors wrap models.ErrInvalidArgument,
// models.ErrUpstreamFetch or models.ErrTransform; no partial manifest is
// ever returned.
func (s *Service) FetchManifest(ctx context.Context, req models.PlaybackRequest) (models.Result, error) {
	start := time.Now()
	res, err := s.fetchManifest(ctx, req)
	metrics.RecordManifestRequest(metrics.OutcomeOf(err), res.Kind, time.Since(start))
	return res, err
}

func (s *Service) fetchManifest(ctx context.Context, req models.PlaybackRequest) (models.Result, error) {
	log := logger.FromContext(ctx, s.logger)

	if err := ValidatePlaybackURL(req.PlaybackURL); err != nil {
		return models.Result{}, err
	}
	tok, err := token.Canonicalize(req.RawToken)
	if err != nil {
		return models.Result{}, err
	}

	// The upstream fetch runs to completion or timeout even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "manifest.proxy",
		trace.WithAttributes(attribute.String("manifest.url", fetch.Redact(req.PlaybackURL))))
	defer span.End()

	text, err := s.download(ctx, req.PlaybackURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream fetch failed")
		log.Warnf("Failed to fetch manifest %s: %v", fetch.Redact(req.PlaybackURL), err)
		return models.Result{}, err
	}

	kind := manifest.Sniff(text)
	rewritten, err := manifest.Rewrite(req.PlaybackURL, text, tok.Armored())
	if err != nil {
		if !models.IsTransform(err) {
			err = fmt.Errorf("%w: %w", models.ErrTransform, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "rewrite failed")
		log.Errorf("Failed to rewrite %s manifest %s: %v", kind, fetch.Redact(req.PlaybackURL), err)
		return models.Result{Kind: kind}, err
	}

	metrics.RecordRewrite(rewritten.Injected, rewritten.Resolved, len(text))
	span.SetAttributes(
		attribute.String("manifest.kind", string(kind)),
		attribute.Int("manifest.urls_tokenized", rewritten.Injected),
		attribute.Int("manifest.fragments_resolved", rewritten.Resolved),
	)
	log.Debugf("Rewrote %s manifest %s: %d urls tokenized, %d fragments resolved",
		kind, fetch.Redact(req.PlaybackURL), rewritten.Injected, rewritten.Resolved)

	return models.Result{
		Body:        rewritten.Text,
		ContentType: models.ManifestContentType,
		Kind:        kind,
		Injected:    rewritten.Injected,
		Resolved:    rewritten.Resolved,
	}, nil
}

// download fetches and fully reads the manifest. The stream is closed on every path.
func (s *Service) download(ctx context.Context, playbackURL string) (string, error) {
	body, _, err := s.fetcher.Fetch(ctx, playbackURL, s.timeout)
	if err != nil {
		return "", upstreamError(err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", upstreamError(fmt.Errorf("failed to read manifest body: %w", err))
	}
	return string(data), nil
}

func upstreamError(err error) error {
	if models.IsUpstreamFetch(err) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrUpstreamFetch, err)
}

// ValidatePlaybackURL checks that raw is a non-blank absolute http(s) URL.
func ValidatePlaybackURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: playbackUrl is required", models.ErrInvalidArgument)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: playbackUrl is not a valid URL: %v", models.ErrInvalidArgument, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: playbackUrl must be an absolute URL", models.ErrInvalidArgument)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: playbackUrl scheme %q is not supported", models.ErrInvalidArgument, u.Scheme)
	}
	return nil
}
