package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/resilience"
)

const (
	// maxResponseSize limits response bodies to prevent memory exhaustion
	maxResponseSize = 10 * 1024 * 1024
)

// Transport routes every outbound platform call through the per-key request
// queue, rate limiter and circuit breaker, and classifies HTTP failures into
// the sync error taxonomy. All adapters share one Transport.
type Transport struct {
	httpClient *http.Client
	queue      *resilience.RequestQueue
	breakers   *resilience.BreakerRegistry
	logger     *zap.Logger
}

// NewTransport creates a transport over the shared resilience primitives
func NewTransport(timeout time.Duration, queue *resilience.RequestQueue, breakers *resilience.BreakerRegistry, logger *zap.Logger) *Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transport{
		httpClient: &http.Client{Timeout: timeout},
		queue:      queue,
		breakers:   breakers,
		logger:     logger,
	}
}

// PostJSON performs a JSON POST keyed by key (platform or platform+shop).
// The call is serialized FIFO per key, admission-controlled by the sliding
// window, and fails fast while the key's circuit is open.
func (t *Transport) PostJSON(ctx context.Context, platform, key, url string, headers map[string]string, body, out any) error {
	return t.queue.Do(ctx, key, func(ctx context.Context) error {
		return t.breakers.Do(ctx, key, func(ctx context.Context) error {
			return t.doPost(ctx, platform, url, headers, body, out)
		})
	})
}

// GetJSON performs a JSON GET keyed by key, under the same queueing,
// rate limiting and circuit breaking as PostJSON.
func (t *Transport) GetJSON(ctx context.Context, platform, key, url string, headers map[string]string, out any) error {
	return t.queue.Do(ctx, key, func(ctx context.Context) error {
		return t.breakers.Do(ctx, key, func(ctx context.Context) error {
			return t.do(ctx, platform, http.MethodGet, url, headers, nil, out)
		})
	})
}

// doPost performs the actual HTTP exchange for a JSON POST
func (t *Transport) doPost(ctx context.Context, platform, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", platform, err)
	}
	return t.do(ctx, platform, http.MethodPost, url, headers, payload, out)
}

// do performs one HTTP exchange and classifies the response
func (t *Transport) do(ctx context.Context, platform, method, url string, headers map[string]string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", platform, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", platform, err)
	}

	if err := classifyStatus(platform, resp, data); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
		}
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the sync error taxonomy:
// 429 → RateLimitError (requeue+delay), 5xx → retryable PlatformAPIError,
// other 4xx → permanent PlatformAPIError.
func classifyStatus(platform string, resp *http.Response, body []byte) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusTooManyRequests:
		return &sync.RateLimitError{
			Platform:   platform,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case code >= 500:
		return &sync.PlatformAPIError{
			Platform:   platform,
			StatusCode: code,
			Message:    truncate(string(body), 200),
			Retryable:  true,
		}
	case code >= 400:
		return &sync.PlatformAPIError{
			Platform:   platform,
			StatusCode: code,
			Message:    truncate(string(body), 200),
		}
	}
	return nil
}

// parseRetryAfter reads a Retry-After header in seconds
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
