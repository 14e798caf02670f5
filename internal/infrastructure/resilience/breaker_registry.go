package resilience

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BreakerRegistry is a concurrent key→breaker arena. Each target (platform,
// or platform+shop) gets its own breaker, created on first use. Constructed
// once at startup and injected, never looked up ambiently.
type BreakerRegistry struct {
	config BreakerConfig
	logger *zap.Logger

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates a registry with shared breaker tuning
func NewBreakerRegistry(config BreakerConfig, logger *zap.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for a key, creating it if needed
func (r *BreakerRegistry) Get(key string) *CircuitBreaker {
	r.mu.RLock()
	b, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[key]; ok {
		return b
	}
	b = NewCircuitBreaker(key, r.config, r.logger)
	r.breakers[key] = b
	return b
}

// Do runs fn through the breaker keyed by key
func (r *BreakerRegistry) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return r.Get(key).Execute(ctx, fn)
}

// Snapshots returns the state of every breaker, for health reporting
func (r *BreakerRegistry) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Snapshot())
	}
	return out
}
