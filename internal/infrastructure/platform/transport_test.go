package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/resilience"
)

func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	logger := zap.NewNop()
	limiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{MaxRequests: 1000, Window: time.Minute})
	queue := resilience.NewRequestQueue(resilience.RequestQueueConfig{RateLimitDelay: 10 * time.Millisecond}, limiter, logger)
	t.Cleanup(queue.Close)
	breakers := resilience.NewBreakerRegistry(resilience.DefaultBreakerConfig(), logger)
	return NewTransport(5*time.Second, queue, breakers, logger)
}

func TestTransportPostJSON(t *testing.T) {
	t.Run("decodes a successful response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		var out struct {
			OK bool `json:"ok"`
		}
		tr := newTestTransport(t)
		err := tr.PostJSON(context.Background(), "shopee", "shopee:s1", server.URL, nil, map[string]string{"a": "b"}, &out)
		require.NoError(t, err)
		assert.True(t, out.OK)
	})

	t.Run("429 becomes a rate limit error with retry-after", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		tr := newTestTransport(t)
		err := tr.PostJSON(context.Background(), "shopee", "shopee:s1", server.URL, nil, nil, nil)

		var rle *sync.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, 7*time.Second, rle.RetryAfter)
		assert.True(t, sync.IsRetryable(err))
	})

	t.Run("5xx becomes a retryable platform error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		tr := newTestTransport(t)
		err := tr.PostJSON(context.Background(), "tiktok", "tiktok:s1", server.URL, nil, nil, nil)

		var pae *sync.PlatformAPIError
		require.ErrorAs(t, err, &pae)
		assert.Equal(t, http.StatusBadGateway, pae.StatusCode)
		assert.True(t, sync.IsRetryable(err))
	})

	t.Run("4xx becomes a permanent platform error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		tr := newTestTransport(t)
		err := tr.PostJSON(context.Background(), "tiktok", "tiktok:s1", server.URL, nil, nil, nil)

		var pae *sync.PlatformAPIError
		require.ErrorAs(t, err, &pae)
		assert.False(t, sync.IsRetryable(err))
	})

	t.Run("malformed response body is an invalid response error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		var out map[string]any
		tr := newTestTransport(t)
		err := tr.PostJSON(context.Background(), "shopee", "shopee:s1", server.URL, nil, nil, &out)
		assert.ErrorIs(t, err, sync.ErrPlatformInvalidResponse)
	})

	t.Run("repeated 5xx failures open the key's circuit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		tr := newTestTransport(t)
		for i := 0; i < 5; i++ {
			err := tr.PostJSON(context.Background(), "shopee", "shopee:flaky", server.URL, nil, nil, nil)
			require.Error(t, err)
			assert.False(t, resilience.IsCircuitOpen(err), "call %d should reach the platform", i+1)
		}

		err := tr.PostJSON(context.Background(), "shopee", "shopee:flaky", server.URL, nil, nil, nil)
		assert.True(t, resilience.IsCircuitOpen(err))
	})
}

func TestTransportGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"orders":[],"total":0,"has_more":false}`))
	}))
	defer server.Close()

	var out StorefrontOrderListResponse
	tr := newTestTransport(t)
	err := tr.GetJSON(context.Background(), "storefront", "storefront:s1", server.URL,
		map[string]string{"Authorization": "Bearer tok"}, &out)
	require.NoError(t, err)
	assert.Empty(t, out.Orders)
}

func TestTransportConnectionFailure(t *testing.T) {
	tr := newTestTransport(t)
	err := tr.PostJSON(context.Background(), "shopee", "shopee:s1", "http://127.0.0.1:1", nil, nil, nil)
	assert.True(t, errors.Is(err, sync.ErrPlatformUnavailable))
}
