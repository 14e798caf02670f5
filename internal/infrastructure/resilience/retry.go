package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Retry Manager
// ---------------------------------------------------------------------------

// RetryConfig tunes the exponential backoff
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelay is the delay before the second attempt
	BaseDelay time.Duration
	// MaxDelay caps the computed delay
	MaxDelay time.Duration
	// BackoffMultiplier scales the delay per attempt
	BackoffMultiplier float64
	// Jitter adds up to 25% random slack to each delay
	Jitter bool
	// RetryIf overrides the default retryability predicate
	RetryIf func(err error) bool
	// OnRetry fires before each wait, with the attempt that just failed
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the default retry tuning
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            true,
	}
}

// normalize fills zero values with defaults
func (c *RetryConfig) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2
	}
}

// RetryManager wraps fallible operations in exponential backoff with jitter
type RetryManager struct {
	logger *zap.Logger
	// rand is swappable for tests
	rand func() float64
}

// NewRetryManager creates a retry manager
func NewRetryManager(logger *zap.Logger) *RetryManager {
	return &RetryManager{logger: logger, rand: rand.Float64}
}

// Execute runs fn up to MaxAttempts times. The default predicate retries
// unless the error is explicitly marked non-retryable. When attempts are
// exhausted the original error is returned unmodified.
func (m *RetryManager) Execute(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	config.normalize()

	retryIf := config.RetryIf
	if retryIf == nil {
		retryIf = sync.IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryIf(lastErr) {
			return lastErr
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := m.DelayFor(config, attempt)
		// A platform-provided Retry-After is a lower bound on the wait
		var rateLimited *sync.RateLimitError
		if errors.As(lastErr, &rateLimited) && rateLimited.RetryAfter > delay {
			delay = rateLimited.RetryAfter
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt, lastErr, delay)
		}
		if m.logger != nil {
			m.logger.Debug("Retrying after failure",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// DelayFor computes the backoff delay after the given failed attempt
// (1-indexed): min(base·multiplier^(attempt-1), max), plus up to 25%
// jitter when enabled.
func (m *RetryManager) DelayFor(config RetryConfig, attempt int) time.Duration {
	config.normalize()

	delay := float64(config.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= config.BackoffMultiplier
		if delay >= float64(config.MaxDelay) {
			break
		}
	}
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.Jitter {
		delay += delay * 0.25 * m.rand()
	}
	return time.Duration(delay)
}
