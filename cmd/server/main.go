package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/parcel/internal"
	"github.com/dukerupert/parcel/internal/address"
	"github.com/dukerupert/parcel/internal/handler"
	"github.com/dukerupert/parcel/internal/middleware"
	"github.com/dukerupert/parcel/internal/router"
	"github.com/dukerupert/parcel/internal/routes"
	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/dukerupert/parcel/internal/storage"
	"github.com/dukerupert/parcel/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Error tracking (optional)
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     cfg.SentryRelease,
		SampleRate:  cfg.SentrySampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Metrics live on a private registry so tests and the CLI never collide
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	clientMetrics := telemetry.NewMetrics("parcel", registry)
	httpMetrics := middleware.NewMetrics("parcel", registry)

	// Initialize the MyParcel client
	logger.Info("Initializing MyParcel client...", "base_url", cfg.MyParcel.BaseURL)
	client := shipping.NewClient(shipping.Config{
		BaseURL:    cfg.MyParcel.BaseURL,
		Platform:   cfg.MyParcel.Platform,
		Version:    cfg.MyParcel.Version,
		MaxRetries: cfg.MyParcel.MaxRetries,
		HTTPClient: &http.Client{
			Timeout:   cfg.MyParcel.Timeout,
			Transport: &telemetry.HTTPTransport{},
		},
		Logger:    logger,
		Metrics:   clientMetrics,
		Validator: address.NewBasicValidator(),
	})
	if cfg.MyParcel.APIKey == "" {
		logger.Warn("MYPARCEL_API_KEY is not set, requests must send " + handler.APIKeyHeader)
	}

	// Label archive (optional)
	var archive storage.Storage
	ops := routes.OpsDeps{MetricsHandler: middleware.Handler(registry)}
	if cfg.LabelArchive {
		archive, err = storage.NewStorage(cfg.Storage)
		if err != nil {
			return fmt.Errorf("label archive initialization failed: %w", err)
		}
		if cfg.Storage.Provider == "local" || cfg.Storage.Provider == "" {
			ops.ArchiveDir = cfg.Storage.LocalPath
			ops.ArchivePrefix = cfg.Storage.LocalURL
		}
		logger.Info("Label archive enabled", "provider", cfg.Storage.Provider)
	}

	// ==========================================================================
	// Build routes
	// ==========================================================================

	r := router.New(
		telemetry.SentryMiddleware,
		middleware.Recovery,
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.WithRequestLogger(logger),
	)

	routes.RegisterOpsRoutes(r, ops)
	routes.RegisterAPIRoutes(r, routes.APIDeps{
		SplitHandler:    handler.NewSplitHandler(clientMetrics),
		ShipmentHandler: handler.NewShipmentHandler(client, cfg.MyParcel.APIKey, logger),
		LabelHandler:    handler.NewLabelHandler(client, cfg.MyParcel.APIKey, archive, logger),
	})
	logger.Debug("Routes registered", "routes", r.Routes())

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Label requests wait on MyParcel, retries included.
		WriteTimeout: cfg.MyParcel.Timeout*time.Duration(cfg.MyParcel.MaxRetries+1) + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
