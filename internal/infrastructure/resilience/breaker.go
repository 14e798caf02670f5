package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	domainsync "github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Circuit Breaker
// ---------------------------------------------------------------------------

// BreakerState represents the state of a circuit breaker
type BreakerState string

const (
	// BreakerClosed allows calls through and counts failures
	BreakerClosed BreakerState = "closed"
	// BreakerOpen fails fast without invoking the wrapped call
	BreakerOpen BreakerState = "open"
	// BreakerHalfOpen probes the dependency with live calls
	BreakerHalfOpen BreakerState = "half-open"
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string { return string(s) }

// CircuitOpenError is returned for calls made while the breaker is open.
// No network attempt is made; NextAttemptTime says when a probe is allowed.
type CircuitOpenError struct {
	Name            string
	NextAttemptTime time.Time
}

// Error implements the error interface
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("resilience: circuit %q open until %s", e.Name, e.NextAttemptTime.Format(time.RFC3339))
}

// BreakerConfig holds circuit breaker tuning
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before probing
	RecoveryTimeout time.Duration
	// HalfOpenSuccesses is the consecutive successes needed to close again
	HalfOpenSuccesses int
	// ExpectedErrors lists error signatures that do not count toward the
	// failure threshold. Application-level rejections must not trip
	// infrastructure protection.
	ExpectedErrors []string
}

// DefaultBreakerConfig returns the default breaker tuning
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:  5,
		RecoveryTimeout:   60 * time.Second,
		HalfOpenSuccesses: 3,
	}
}

// CircuitBreaker is a per-target failure-threshold state machine. All state
// transitions happen under one mutex, so concurrent attempts against the
// same target observe a consistent state.
type CircuitBreaker struct {
	name   string
	config BreakerConfig
	logger *zap.Logger

	mu              sync.Mutex
	state           BreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	nextAttemptTime time.Time

	// now is swappable for tests
	now func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker for one target
func NewCircuitBreaker(name string, config BreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 3
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger,
		state:  BreakerClosed,
		now:    time.Now,
	}
}

// State returns the current breaker state, applying the open→half-open
// transition if the recovery timeout has elapsed.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Execute runs fn through the breaker. While open it returns a
// CircuitOpenError without invoking fn.
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	b.afterCall(err)
	return err
}

// beforeCall admits or rejects a call based on the current state
func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()
	if b.state == BreakerOpen {
		return &CircuitOpenError{Name: b.name, NextAttemptTime: b.nextAttemptTime}
	}
	return nil
}

// maybeHalfOpen transitions open→half-open once the recovery timeout passes.
// Caller must hold the mutex.
func (b *CircuitBreaker) maybeHalfOpen() {
	if b.state == BreakerOpen && !b.now().Before(b.nextAttemptTime) {
		b.state = BreakerHalfOpen
		b.successCount = 0
		if b.logger != nil {
			b.logger.Info("Circuit breaker probing",
				zap.String("breaker", b.name),
				zap.String("state", string(BreakerHalfOpen)),
			)
		}
	}
}

// afterCall records the call outcome and applies state transitions
func (b *CircuitBreaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || b.isExpected(err) {
		b.onSuccess()
		return
	}
	b.onFailure()
}

// onSuccess handles a successful (or expected-error) call.
// Caller must hold the mutex.
func (b *CircuitBreaker) onSuccess() {
	switch b.state {
	case BreakerClosed:
		b.failureCount = 0
	case BreakerHalfOpen:
		b.successCount++
		if b.successCount >= b.config.HalfOpenSuccesses {
			b.state = BreakerClosed
			b.failureCount = 0
			b.successCount = 0
			if b.logger != nil {
				b.logger.Info("Circuit breaker closed",
					zap.String("breaker", b.name),
				)
			}
		}
	}
}

// onFailure handles a counted failure. Caller must hold the mutex.
func (b *CircuitBreaker) onFailure() {
	b.lastFailureTime = b.now()

	switch b.state {
	case BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.config.FailureThreshold {
			b.trip()
		}
	case BreakerHalfOpen:
		// Any failure while probing reopens immediately
		b.trip()
	}
}

// trip opens the circuit. Caller must hold the mutex.
func (b *CircuitBreaker) trip() {
	b.state = BreakerOpen
	b.successCount = 0
	b.nextAttemptTime = b.lastFailureTime.Add(b.config.RecoveryTimeout)
	if b.logger != nil {
		b.logger.Warn("Circuit breaker opened",
			zap.String("breaker", b.name),
			zap.Int("failure_count", b.failureCount),
			zap.Time("next_attempt_at", b.nextAttemptTime),
		)
	}
}

// isExpected reports whether the error is exempt from failure counting.
// Rate limiting is platform throttling, not an outage, so it never trips
// the circuit. Beyond that, the expected-errors allow-list applies.
func (b *CircuitBreaker) isExpected(err error) bool {
	var rateLimited *domainsync.RateLimitError
	if errors.As(err, &rateLimited) {
		return true
	}
	if len(b.config.ExpectedErrors) == 0 {
		return false
	}
	msg := err.Error()
	for _, sig := range b.config.ExpectedErrors {
		if sig != "" && strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time view of breaker state for health reporting
type Snapshot struct {
	Name            string
	State           BreakerState
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
	NextAttemptTime time.Time
}

// Snapshot returns the current breaker counters
func (b *CircuitBreaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return Snapshot{
		Name:            b.name,
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
		NextAttemptTime: b.nextAttemptTime,
	}
}

// IsCircuitOpen reports whether err is a fail-fast rejection from an open
// circuit. Such errors are not platform failures and must not be counted
// as one by callers.
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError
	return errors.As(err, &coe)
}
