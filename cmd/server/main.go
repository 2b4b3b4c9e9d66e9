package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"manifestproxyd/internal/api"
	"manifestproxyd/internal/config"
	"manifestproxyd/internal/fetch"
	"manifestproxyd/internal/logger"
	"manifestproxyd/internal/proxy"
	"manifestproxyd/internal/telemetry"
	"manifestproxyd/internal/version"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// 1. Parse command-line arguments
	listenAddr := flag.String("l", ":8080", "HTTP listen address")
	logLevel := flag.String("L", "info", "Log level (error, warn, info, debug)")
	configFile := flag.String("c", "", "Path to an optional YAML config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// 2. Load configuration: defaults, file, environment, then explicit flags
	bootLog := logger.NewLogger(*logLevel)
	cfg, err := config.Load(*configFile, bootLog)
	if err != nil {
		bootLog.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if set["l"] {
		cfg.Listen = *listenAddr
	}
	if set["L"] {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// 3. Initialize logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Infof("Starting manifest proxy %s", version.String())
	log.Infof("Log level set to: %s", cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Errorf("Server exited with error: %v", err)
		os.Exit(1)
	}
	log.Infof("Server exited gracefully")
}

func run(cfg config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Initialize tracing, the upstream client and the proxy service
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	client := fetch.NewClient(log, fetch.Options{
		UserAgent: cfg.Upstream.UserAgent,
		MaxBytes:  cfg.Upstream.MaxManifestBytes,
	})
	defer client.CloseIdleConnections()

	service := proxy.NewService(client, cfg.Upstream.Timeout, log)

	// 5. Set up API router with dependencies
	router := api.New(service, log, api.Options{
		Version:        version.Version,
		MetricsEnabled: cfg.Metrics.Enabled,
		RateLimit: api.RateLimitOptions{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		},
	})

	// 6. Run the HTTP server until a shutdown signal arrives
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Leaves room for a full upstream fetch.
		WriteTimeout: cfg.Upstream.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Server starting on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", cfg.Listen, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown failed: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
