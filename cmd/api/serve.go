package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/badgercache"
	"github.com/ewilliams-labs/natal-symphony/internal/adapters/midi"
	"github.com/ewilliams-labs/natal-symphony/internal/adapters/nominatim"
	"github.com/ewilliams-labs/natal-symphony/internal/adapters/rest"
	"github.com/ewilliams-labs/natal-symphony/internal/adapters/sqlite"
	"github.com/ewilliams-labs/natal-symphony/internal/core/services"
	"github.com/ewilliams-labs/natal-symphony/internal/obvy"
	"github.com/ewilliams-labs/natal-symphony/internal/worker"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the generation workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := opts.load(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Tracing.Enabled {
		shutdown, err := obvy.InitTracing(ctx, obvy.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
		logger.Info("tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}
	metrics := obvy.NewMetrics()

	// Driven adapters
	db, err := badgercache.Open(cfg.Ephemeris.CacheDir, logger)
	if err != nil {
		return err
	}
	eph := badgercache.New(db, newEphemerisClient(cfg, logger), cfg.EphemerisCacheTTL(), logger.Named("cache")).
		WithRecentTTL(skyWindow, cfg.SkyCacheTTL())
	defer func() {
		if err := eph.Close(); err != nil {
			logger.Warn("cache close failed", zap.Error(err))
		}
	}()

	locations, err := nominatim.NewClient(tracedClient(cfg.EphemerisTimeout()), nominatim.Config{
		BaseURL:      cfg.Locations.URL,
		UserAgent:    cfg.Locations.UserAgent,
		CacheEntries: cfg.Locations.CacheEntries,
		CacheTTL:     cfg.LocationCacheTTL(),
	}, logger.Named("nominatim"))
	if err != nil {
		return err
	}
	defer locations.Close()

	store, err := sqlite.NewAdapter(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("database close failed", zap.Error(err))
		}
	}()
	logger.Info("database ready", zap.String("path", cfg.Database.Path))

	// Background workers
	pool := worker.NewPool(store, newGenerator(cfg, logger), worker.Config{
		Workers:      cfg.Generation.Workers,
		QueueSize:    cfg.Generation.QueueSize,
		PollInterval: cfg.PollInterval(),
		MaxWait:      cfg.MaxWait(),
	}, logger.Named("worker"), metrics)
	pool.Start()
	defer pool.Stop()

	// Core and driving adapter
	svc := services.NewOrchestrator(eph, locations, store, store, pool, logger.Named("service"))
	handler := rest.NewHandler(svc, midi.Writer{}, metrics, logger.Named("rest"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           otelhttp.NewHandler(handler, "natal-symphony"),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
	}

	go func() {
		if err := waitForEphemeris(ctx, eph, startupWait, logger); err != nil {
			logger.Warn("ephemeris not reachable, continuing anyway", zap.Error(err))
			return
		}
		logger.Info("ephemeris health check passed")
	}()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		logger.Info("natal-symphony listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info("stopped")
	return nil
}
