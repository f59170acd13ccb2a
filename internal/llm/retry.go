package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/logger"
)

// RetryClient wraps a provider Client with the generation retry policy: a
// timeout per attempt, a bounded number of attempts, and exponential backoff
// with jitter between them. The full request is resent unchanged on every
// attempt; the provider is not assumed to remember anything.
type RetryClient struct {
	inner          Client
	attempts       int
	attemptTimeout time.Duration
	baseBackoff    time.Duration
	maxBackoff     time.Duration
	log            *logger.Logger
}

var _ Client = (*RetryClient)(nil)

// NewRetryClient applies the configured retry policy to inner.
func NewRetryClient(inner Client, cfg config.GenerationConfig, log *logger.Logger) *RetryClient {
	return &RetryClient{
		inner:          inner,
		attempts:       cfg.Attempts,
		attemptTimeout: cfg.AttemptTimeout,
		baseBackoff:    1 * time.Second,
		maxBackoff:     10 * time.Second,
		log:            log,
	}
}

// Generate calls the wrapped provider until it succeeds, fails terminally,
// or the attempt bound is exhausted. Refusals and client errors are never
// retried. Caller cancellation stops the loop immediately; only the
// per-attempt timeout counts as transient.
func (c *RetryClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	backoff := c.baseBackoff
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		text, err := c.inner.Generate(attemptCtx, req)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if errors.Is(err, ErrRefused) {
			return "", err
		}
		// The caller gave up, not the attempt timer.
		if ctx.Err() != nil {
			return "", fmt.Errorf("generation abandoned on attempt %d: %w", attempt, err)
		}
		if !IsRetryable(err) {
			return "", fmt.Errorf("generation attempt %d: %w", attempt, err)
		}
		if attempt == c.attempts {
			break
		}

		sleepFor := backoff
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
			sleepFor = httpErr.RetryAfter
		}
		if sleepFor > c.maxBackoff {
			sleepFor = c.maxBackoff
		}
		sleepFor = jitter(sleepFor)

		c.log.Warn("generation attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", c.attempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(sleepFor):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		backoff *= 2
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", c.attempts, lastErr)
}

// IsRetryable reports whether a generation failure is transient: a timeout,
// a network-level error, or a provider response with a retryable status
// (408, 429, 5xx). Refusals and other client errors are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRefused) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var sc interface{ HTTPStatusCode() int }
	if errors.As(err, &sc) {
		code := sc.HTTPStatusCode()
		if code == 408 || code == 429 {
			return true
		}
		return code >= 500 && code <= 599
	}
	return false
}

// jitter spreads a backoff delay by +/-20% so concurrent retries do not
// synchronize against the provider.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := 0.2 * base.Seconds()
	low := base.Seconds() - delta
	v := low + rand.Float64()*2*delta
	return time.Duration(v * float64(time.Second))
}
