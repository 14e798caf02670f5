package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
)

const defaultCacheTTL = 5 * time.Minute

// cachedCredentials is the JSON shape stored in Redis
type cachedCredentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ShopID       string    `json:"shop_id,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// CachingCredentialResolver wraps a CredentialResolver with a Redis
// read-through cache. Cache failures degrade to the inner resolver.
type CachingCredentialResolver struct {
	inner     sync.CredentialResolver
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachingCredentialResolver creates a resolver that caches lookups in Redis
func NewCachingCredentialResolver(inner sync.CredentialResolver, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachingCredentialResolver {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingCredentialResolver{
		inner:     inner,
		client:    client,
		keyPrefix: "creds:store:",
		ttl:       ttl,
		logger:    logger,
	}
}

var _ sync.CredentialResolver = (*CachingCredentialResolver)(nil)

// GetCredentials returns cached credentials when fresh, falling back to the
// inner resolver and populating the cache on a miss
func (r *CachingCredentialResolver) GetCredentials(ctx context.Context, storeID string) (*sync.Credentials, error) {
	key := r.keyPrefix + storeID

	payload, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedCredentials
		if jsonErr := json.Unmarshal(payload, &cached); jsonErr == nil {
			return &sync.Credentials{
				AccessToken:  cached.AccessToken,
				RefreshToken: cached.RefreshToken,
				ShopID:       cached.ShopID,
				ExpiresAt:    cached.ExpiresAt,
			}, nil
		}
		// Corrupt entry, fall through to the inner resolver
		r.logger.Warn("dropping corrupt credential cache entry", zap.String("store_id", storeID))
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("credential cache read failed",
			zap.String("store_id", storeID),
			zap.Error(err))
	}

	creds, err := r.inner.GetCredentials(ctx, storeID)
	if err != nil || creds == nil {
		return creds, err
	}

	if payload, jsonErr := json.Marshal(cachedCredentials{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ShopID:       creds.ShopID,
		ExpiresAt:    creds.ExpiresAt,
	}); jsonErr == nil {
		if setErr := r.client.Set(ctx, key, payload, r.cacheTTL(creds)).Err(); setErr != nil {
			r.logger.Warn("credential cache write failed",
				zap.String("store_id", storeID),
				zap.Error(setErr))
		}
	}

	return creds, nil
}

// Invalidate removes a store's cached credentials, forcing the next lookup
// through to the inner resolver. Token refreshes call this after saving.
func (r *CachingCredentialResolver) Invalidate(ctx context.Context, storeID string) error {
	return r.client.Del(ctx, r.keyPrefix+storeID).Err()
}

// cacheTTL caps the cache lifetime so entries never outlive the token
func (r *CachingCredentialResolver) cacheTTL(creds *sync.Credentials) time.Duration {
	ttl := r.ttl
	if !creds.ExpiresAt.IsZero() {
		if until := time.Until(creds.ExpiresAt); until > 0 && until < ttl {
			ttl = until
		}
	}
	return ttl
}
