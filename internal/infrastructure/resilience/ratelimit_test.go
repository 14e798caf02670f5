package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateLimiter_AdmitsUpToMaxWithinWindow(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxRequests: 3, Window: time.Minute})

	assert.True(t, l.Allow("shop-1"))
	assert.True(t, l.Allow("shop-1"))
	assert.True(t, l.Allow("shop-1"))
	assert.False(t, l.Allow("shop-1"))
	assert.Equal(t, 0, l.Remaining("shop-1"))

	// Keys are independent
	assert.True(t, l.Allow("shop-2"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxRequests: 2, Window: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("k"))
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	// Once the first timestamps age out, admission resumes
	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("k"))
	assert.Equal(t, 1, l.Remaining("k"))
}

func TestRateLimiter_RejectionDoesNotConsumeBudget(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{MaxRequests: 1, Window: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("k"))
	for i := 0; i < 5; i++ {
		require.False(t, l.Allow("k"))
	}

	// Only the admitted request occupies the window
	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("k"))
}

func TestRequestQueue_PreservesFIFOOrderPerKey(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxRequests: 100, Window: time.Minute})
	q := NewRequestQueue(DefaultRequestQueueConfig(), limiter, zap.NewNop())
	defer q.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Stagger submissions so queue order matches submission order
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
			_ = q.Do(context.Background(), "k", func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.Len(t, order, 10)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestRequestQueue_RateLimitedKeyDoesNotBlockOthers(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{MaxRequests: 1, Window: time.Minute})
	q := NewRequestQueue(RequestQueueConfig{RateLimitDelay: 50 * time.Millisecond}, limiter, zap.NewNop())
	defer q.Close()

	// Exhaust the budget for key "slow"
	require.NoError(t, q.Do(context.Background(), "slow", func(ctx context.Context) error { return nil }))

	start := time.Now()
	done := make(chan struct{})
	go func() {
		// This call waits for the window to slide (would take a minute);
		// cancel it once the fast key proved it was not blocked.
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		_ = q.Do(ctx, "slow", func(ctx context.Context) error { return nil })
		close(done)
	}()

	// A different key proceeds immediately
	require.NoError(t, q.Do(context.Background(), "fast", func(ctx context.Context) error { return nil }))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	<-done
}

func TestRequestQueue_ClosedRejectsNewWork(t *testing.T) {
	limiter := NewRateLimiter(DefaultRateLimiterConfig())
	q := NewRequestQueue(DefaultRequestQueueConfig(), limiter, zap.NewNop())
	q.Close()

	err := q.Do(context.Background(), "k", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}
