package resilience

import (
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sliding-Window Rate Limiter
// ---------------------------------------------------------------------------

// RateLimiterConfig tunes the sliding window
type RateLimiterConfig struct {
	// MaxRequests is the admission cap within the window
	MaxRequests int
	// Window is the trailing window length
	Window time.Duration
}

// DefaultRateLimiterConfig returns the default per-key limits
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxRequests: 60,
		Window:      time.Minute,
	}
}

// RateLimiter performs per-key sliding-window admission control for
// outbound platform calls. Keys are typically a shop ID or a platform-wide
// global key. Windows are mutated under one mutex per limiter, keeping
// transitions atomic relative to concurrent attempts against the same key.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	windows map[string][]time.Time

	// now is swappable for tests
	now func() time.Time
}

// NewRateLimiter creates a rate limiter
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 60
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &RateLimiter{
		config:  config,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records and admits the request if the trailing window has room,
// or rejects it without recording.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := l.prune(key, now)
	if len(window) >= l.config.MaxRequests {
		l.windows[key] = window
		return false
	}
	l.windows[key] = append(window, now)
	return true
}

// Remaining returns how many requests the key may still make in the window
func (l *RateLimiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.prune(key, l.now())
	l.windows[key] = window
	remaining := l.config.MaxRequests - len(window)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// prune drops timestamps that fell out of the trailing window.
// Caller must hold the mutex.
func (l *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.config.Window)
	window := l.windows[key]
	i := 0
	for ; i < len(window); i++ {
		if window[i].After(cutoff) {
			break
		}
	}
	return window[i:]
}
