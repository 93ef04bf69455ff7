// Package fetch provides an http.RoundTripper that retries transient failures
// with exponential backoff.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Config holds retry configuration for outgoing requests
type Config struct {
	MaxRetries    int           // Maximum number of retries after the first attempt (default: 3)
	BaseDelay     time.Duration // Delay unit; retry n waits 2^n units, n starting at 0 (default: 1s)
	RetryStatuses []int         // Status codes worth retrying (default: 503, 504)

	// Limiter, when set, is waited on before every attempt
	Limiter *rate.Limiter

	// OnRetry is called before sleeping ahead of a retry.
	// attempt is zero-based: the first retry reports attempt 0.
	OnRetry func(attempt int, delay time.Duration, cause error)
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		BaseDelay:     1 * time.Second,
		RetryStatuses: []int{http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative (got %d)", c.MaxRetries)
	}
	if c.MaxRetries > 10 {
		return fmt.Errorf("max_retries too large (got %d, max 10)", c.MaxRetries)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive (got %v)", c.BaseDelay)
	}
	return nil
}

// StatusError records a retryable response status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("retryable status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ErrRetriesExhausted wraps the last transport error once every attempt failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Transport retries requests on transport errors and on the configured statuses.
// Any other response, including other 4xx/5xx codes, is returned untouched.
// When the final attempt still gets a retryable status that response is returned,
// leaving status handling to the caller.
type Transport struct {
	base   http.RoundTripper
	config Config
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, config Config) (*Transport, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetch config: %w", err)
	}
	if base == nil {
		base = http.DefaultTransport
	}
	if len(config.RetryStatuses) == 0 {
		config.RetryStatuses = DefaultConfig().RetryStatuses
	}
	return &Transport{base: base, config: config}, nil
}

// RoundTrip executes req, replaying method, headers and body on every attempt.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := readBody(req)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	var (
		attempt  int
		lastErr  error
		response *http.Response
	)

	backoff := retry.WithMaxRetries(uint64(t.config.MaxRetries), retry.NewExponential(t.config.BaseDelay))
	backoff = t.observe(backoff, &attempt, &lastErr)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if t.config.Limiter != nil {
			if err := t.config.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		resp, err := t.base.RoundTrip(replay(ctx, req, body))
		attempt++
		if err != nil {
			lastErr = err
			return retry.RetryableError(err)
		}

		if t.retryableStatus(resp.StatusCode) && attempt <= t.config.MaxRetries {
			discard(resp)
			lastErr = &StatusError{StatusCode: resp.StatusCode}
			return retry.RetryableError(lastErr)
		}

		response = resp
		return nil
	})
	switch {
	case err == nil:
		return response, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), ctx.Err())
	case lastErr != nil && errors.Is(err, lastErr):
		return nil, fmt.Errorf("%s %s failed after %d attempts: %w: %w",
			req.Method, req.URL.Redacted(), attempt, ErrRetriesExhausted, err)
	default:
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
}

func (t *Transport) retryableStatus(code int) bool {
	return slices.Contains(t.config.RetryStatuses, code)
}

// observe reports each scheduled retry to the OnRetry hook.
func (t *Transport) observe(next retry.Backoff, attempt *int, cause *error) retry.Backoff {
	if t.config.OnRetry == nil {
		return next
	}
	return retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := next.Next()
		if !stop {
			t.config.OnRetry(*attempt-1, delay, *cause)
		}
		return delay, stop
	})
}

// readBody drains and closes the request body so it can be replayed.
func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return body, nil
}

// replay clones req for one attempt with a fresh reader over body.
func replay(ctx context.Context, req *http.Request, body []byte) *http.Request {
	r := req.Clone(ctx)
	if body == nil {
		return r
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	r.ContentLength = int64(len(body))
	return r
}

// discard releases a response that will not be handed to the caller.
func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
