package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
)

var errBoom = errors.New("boom")

func failingCall(ctx context.Context) error { return errBoom }
func okCall(ctx context.Context) error      { return nil }

func newTestBreaker(t *testing.T, config BreakerConfig) *CircuitBreaker {
	t.Helper()
	return NewCircuitBreaker("test", config, zap.NewNop())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 5, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.ErrorIs(t, b.Execute(ctx, failingCall), errBoom)
		assert.Equal(t, BreakerClosed, b.State())
	}

	// Exactly the fifth consecutive failure opens the circuit
	require.ErrorIs(t, b.Execute(ctx, failingCall), errBoom)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestCircuitBreaker_OpenFailsFastWithoutCalling(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3})
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failingCall))
	require.Equal(t, BreakerOpen, b.State())

	called := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})

	var coe *CircuitOpenError
	require.ErrorAs(t, err, &coe)
	assert.False(t, called)
	assert.False(t, coe.NextAttemptTime.IsZero())
	assert.True(t, IsCircuitOpen(err))
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3})
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failingCall))
	require.Error(t, b.Execute(ctx, failingCall))
	require.NoError(t, b.Execute(ctx, okCall))
	assert.Equal(t, 0, b.Snapshot().FailureCount)

	// The streak starts over, so two more failures do not open the circuit
	require.Error(t, b.Execute(ctx, failingCall))
	require.Error(t, b.Execute(ctx, failingCall))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestCircuitBreaker_RecoveryLadder(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3})
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }

	require.Error(t, b.Execute(ctx, failingCall))
	require.Equal(t, BreakerOpen, b.State())

	// Before the recovery timeout, still open
	now = now.Add(30 * time.Second)
	assert.Equal(t, BreakerOpen, b.State())

	// After the recovery timeout, the breaker probes
	now = now.Add(31 * time.Second)
	assert.Equal(t, BreakerHalfOpen, b.State())

	// Two successes are not enough to close
	require.NoError(t, b.Execute(ctx, okCall))
	require.NoError(t, b.Execute(ctx, okCall))
	assert.Equal(t, BreakerHalfOpen, b.State())

	// The third consecutive success closes
	require.NoError(t, b.Execute(ctx, okCall))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3})
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }

	require.Error(t, b.Execute(ctx, failingCall))
	now = now.Add(2 * time.Minute)
	require.Equal(t, BreakerHalfOpen, b.State())

	require.NoError(t, b.Execute(ctx, okCall))
	require.Error(t, b.Execute(ctx, failingCall))
	assert.Equal(t, BreakerOpen, b.State())
}

func TestCircuitBreaker_ExpectedErrorsDoNotCount(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{
		FailureThreshold:  2,
		RecoveryTimeout:   time.Minute,
		HalfOpenSuccesses: 3,
		ExpectedErrors:    []string{"order not found"},
	})
	ctx := context.Background()

	expected := errors.New("sync: platform order not found")
	for i := 0; i < 10; i++ {
		require.Error(t, b.Execute(ctx, func(ctx context.Context) error { return expected }))
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestCircuitBreaker_RateLimitsDoNotCount(t *testing.T) {
	b := newTestBreaker(t, BreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3})
	ctx := context.Background()

	// Sustained throttling leaves the circuit closed
	throttled := &sync.RateLimitError{Platform: "shopee", RetryAfter: time.Second}
	for i := 0; i < 10; i++ {
		require.Error(t, b.Execute(ctx, func(ctx context.Context) error { return throttled }))
	}
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Snapshot().FailureCount)

	// Real failures still count
	require.Error(t, b.Execute(ctx, failingCall))
	require.Error(t, b.Execute(ctx, failingCall))
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreakerRegistry_PerKeyIsolation(t *testing.T) {
	reg := NewBreakerRegistry(BreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute, HalfOpenSuccesses: 3}, zap.NewNop())
	ctx := context.Background()

	require.Error(t, reg.Do(ctx, "shopee:shop-1", failingCall))
	assert.Equal(t, BreakerOpen, reg.Get("shopee:shop-1").State())

	// A different key is unaffected
	require.NoError(t, reg.Do(ctx, "shopee:shop-2", okCall))
	assert.Equal(t, BreakerClosed, reg.Get("shopee:shop-2").State())

	assert.Len(t, reg.Snapshots(), 2)
}
