package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/adapters/ephemeris"
	"github.com/ewilliams-labs/natal-symphony/internal/adapters/retry"
	"github.com/ewilliams-labs/natal-symphony/internal/adapters/suno"
	"github.com/ewilliams-labs/natal-symphony/internal/config"
	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const (
	providerTimeout = 60 * time.Second
	startupWait     = 30 * time.Second
	// Moments this close to now are the live sky and get the short cache TTL.
	skyWindow = 24 * time.Hour
)

// tracedClient returns an HTTP client whose requests carry trace context.
func tracedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func newEphemerisClient(cfg *config.Config, logger *zap.Logger) *ephemeris.Client {
	return ephemeris.NewClient(
		tracedClient(cfg.EphemerisTimeout()),
		cfg.Ephemeris.URL,
		retry.WithMaxRetries(cfg.Ephemeris.MaxRetries),
		retry.WithLogger(logger.Named("ephemeris")),
	)
}

// newGenerator picks the Suno client, or the local mock when no API key is set.
func newGenerator(cfg *config.Config, logger *zap.Logger) ports.AudioGenerator {
	if cfg.UseMockGenerator() {
		logger.Warn("SUNO_API_KEY not set, using the mock audio provider", zap.Duration("delay", cfg.MockDelay()))
		return suno.NewMock(cfg.MockDelay())
	}
	return suno.NewClient(
		tracedClient(providerTimeout),
		cfg.Suno.URL,
		cfg.Suno.APIKey,
		retry.WithLogger(logger.Named("suno")),
	)
}

// waitForEphemeris polls the ephemeris health until it reports healthy or
// timeout passes.
func waitForEphemeris(ctx context.Context, eph ports.EphemerisProvider, timeout time.Duration, logger *zap.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout
	b.Reset()

	check := func() error {
		h, err := eph.Health(ctx)
		if err != nil {
			return err
		}
		if !h.Healthy() {
			return fmt.Errorf("ephemeris status %q, files loaded: %t", h.Status, h.EphemerisFiles)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Debug("ephemeris not ready", zap.Error(err), zap.Duration("retry_in", next))
	}
	if err := backoff.RetryNotify(check, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("ephemeris not available after %v: %w", timeout, err)
	}
	return nil
}
