// Package retry wraps an http.Client with bounded exponential retries for
// transport errors, 429 and 5xx responses.
package retry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/natal-symphony/internal/core/ports"
)

const (
	DefaultMaxRetries  = 3
	DefaultBaseBackoff = 500 * time.Millisecond
	// DefaultMaxDelay caps a server-requested Retry-After.
	DefaultMaxDelay = 30 * time.Second
)

// Doer sends requests on behalf of one upstream service.
type Doer struct {
	client      *http.Client
	service     string
	maxRetries  int
	baseBackoff time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger
}

// Option configures a Doer.
type Option func(*Doer)

// WithMaxRetries sets the total attempt count.
func WithMaxRetries(n int) Option {
	return func(d *Doer) {
		if n > 0 {
			d.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the first delay; later delays double.
func WithBaseBackoff(b time.Duration) Option {
	return func(d *Doer) {
		if b > 0 {
			d.baseBackoff = b
		}
	}
}

// WithMaxDelay caps the wait between attempts, including Retry-After.
func WithMaxDelay(m time.Duration) Option {
	return func(d *Doer) {
		if m > 0 {
			d.maxDelay = m
		}
	}
}

// WithLogger attaches a logger for retry warnings.
func WithLogger(l *zap.Logger) Option {
	return func(d *Doer) {
		if l != nil {
			d.logger = l
		}
	}
}

// New constructs a Doer. A nil client means http.DefaultClient.
func New(client *http.Client, service string, opts ...Option) *Doer {
	if client == nil {
		client = http.DefaultClient
	}
	d := &Doer{
		client:      client,
		service:     service,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: DefaultBaseBackoff,
		maxDelay:    DefaultMaxDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Service returns the upstream name used in errors.
func (d *Doer) Service() string { return d.service }

// Do sends req, retrying while the failure looks transient. When attempts are
// exhausted the error is a *ports.UpstreamError. Non-retryable responses are
// returned as-is for the caller to inspect.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: read request body: %w", d.service, err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	ctx := req.Context()
	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: request canceled: %w", d.service, err)
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("%s: reset request body: %w", d.service, err)
			}
			req.Body = body
		}

		resp, err := d.client.Do(req)
		retryAfter, retry := ShouldRetry(resp, err)
		if !retry {
			return resp, nil
		}

		lastErr, lastStatus = err, 0
		if err != nil {
			d.logger.Warn("retrying after error",
				zap.String("service", d.service),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", d.maxRetries),
				zap.Error(err))
		} else {
			lastStatus = resp.StatusCode
			d.logger.Warn("retrying after status",
				zap.String("service", d.service),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", d.maxRetries),
				zap.Int("status", resp.StatusCode))
			_ = resp.Body.Close()
		}

		if attempt == d.maxRetries-1 {
			break
		}

		delay := d.baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		delay = min(delay, d.maxDelay)
		if err := SleepWithContext(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s: %w", d.service, err)
		}
	}

	cause := fmt.Errorf("failed after %d attempts", d.maxRetries)
	if lastErr != nil {
		cause = fmt.Errorf("failed after %d attempts: %w", d.maxRetries, lastErr)
	}
	return nil, &ports.UpstreamError{Service: d.service, StatusCode: lastStatus, Err: cause}
}

// ShouldRetry reports whether the outcome is transient and any server-requested delay.
func ShouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return ParseRetryAfter(resp), true
	}
	return 0, false
}

// ParseRetryAfter reads Retry-After as seconds or an HTTP date.
func ParseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

// SleepWithContext waits for delay or until ctx is done.
func SleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// StatusError turns a non-2xx response into an upstream error, keeping a
// short snippet of the body for context. The body is consumed.
func StatusError(service string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var err error
	if len(bytes.TrimSpace(snippet)) > 0 {
		err = errors.New(string(bytes.TrimSpace(snippet)))
	}
	return &ports.UpstreamError{Service: service, StatusCode: resp.StatusCode, Err: err}
}
