package resilience

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Per-Key Request Queue
// ---------------------------------------------------------------------------

var (
	// ErrQueueClosed is returned for requests submitted after shutdown
	ErrQueueClosed = errors.New("resilience: request queue closed")
)

// RequestQueueConfig tunes the per-key serialization
type RequestQueueConfig struct {
	// RateLimitDelay is how long a key's queue sleeps after a rate-limited
	// request before retrying it
	RateLimitDelay time.Duration
	// MaxQueueDepth bounds pending requests per key (0 = unbounded)
	MaxQueueDepth int
}

// DefaultRequestQueueConfig returns the default queue tuning
func DefaultRequestQueueConfig() RequestQueueConfig {
	return RequestQueueConfig{
		RateLimitDelay: time.Second,
		MaxQueueDepth:  256,
	}
}

// queuedRequest is one pending call and its completion channel
type queuedRequest struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// keyQueue serializes requests for a single key
type keyQueue struct {
	mu      sync.Mutex
	pending *list.List
	active  bool
}

// RequestQueue serializes outbound calls per key while letting distinct keys
// proceed concurrently. A rate-limited request is put back at the front of
// its key's queue and the queue sleeps RateLimitDelay before retrying, so
// FIFO order per key is preserved and head-of-line blocking is bounded to
// that one key.
type RequestQueue struct {
	config  RequestQueueConfig
	limiter *RateLimiter
	logger  *zap.Logger

	mu     sync.Mutex
	keys   map[string]*keyQueue
	closed bool
	wg     sync.WaitGroup
}

// NewRequestQueue creates a request queue over a rate limiter
func NewRequestQueue(config RequestQueueConfig, limiter *RateLimiter, logger *zap.Logger) *RequestQueue {
	if config.RateLimitDelay <= 0 {
		config.RateLimitDelay = time.Second
	}
	return &RequestQueue{
		config:  config,
		limiter: limiter,
		logger:  logger,
		keys:    make(map[string]*keyQueue),
	}
}

// Do enqueues fn under key and blocks until it ran or ctx was cancelled
// while still pending.
func (q *RequestQueue) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	req := &queuedRequest{ctx: ctx, fn: fn, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	kq, ok := q.keys[key]
	if !ok {
		kq = &keyQueue{pending: list.New()}
		q.keys[key] = kq
	}
	q.mu.Unlock()

	kq.mu.Lock()
	if q.config.MaxQueueDepth > 0 && kq.pending.Len() >= q.config.MaxQueueDepth {
		kq.mu.Unlock()
		return &RateLimitError{Key: key, RetryAfter: q.config.RateLimitDelay}
	}
	kq.pending.PushBack(req)
	startDrainer := !kq.active
	if startDrainer {
		kq.active = true
	}
	kq.mu.Unlock()

	if startDrainer {
		q.wg.Add(1)
		go q.drain(key, kq)
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		// The drainer will skip the request once it sees the dead context
		return ctx.Err()
	}
}

// drain processes one key's queue in FIFO order until it is empty
func (q *RequestQueue) drain(key string, kq *keyQueue) {
	defer q.wg.Done()

	for {
		kq.mu.Lock()
		front := kq.pending.Front()
		if front == nil {
			kq.active = false
			kq.mu.Unlock()
			return
		}
		req := front.Value.(*queuedRequest)

		// Drop requests whose caller already gave up
		if req.ctx.Err() != nil {
			kq.pending.Remove(front)
			kq.mu.Unlock()
			req.done <- req.ctx.Err()
			continue
		}

		if !q.limiter.Allow(key) {
			// Leave the request at the front and back off; other keys
			// keep draining on their own goroutines.
			kq.mu.Unlock()
			if q.logger != nil {
				q.logger.Debug("Rate limited, delaying key queue",
					zap.String("key", key),
					zap.Duration("delay", q.config.RateLimitDelay),
				)
			}
			select {
			case <-time.After(q.config.RateLimitDelay):
			case <-req.ctx.Done():
			}
			continue
		}

		kq.pending.Remove(front)
		kq.mu.Unlock()

		req.done <- req.fn(req.ctx)
	}
}

// Close stops accepting new requests and waits for in-flight drains
func (q *RequestQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
}

// RateLimitError is the queue-level rejection for an overfull key queue
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return "resilience: request queue full for key " + e.Key
}
