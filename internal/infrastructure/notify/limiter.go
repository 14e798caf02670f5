package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/alert"
)

// LimiterConfig tunes notification rate limiting
type LimiterConfig struct {
	// MaxPerTypePerHour caps notifications per (organization, alert type)
	// within one clock hour
	MaxPerTypePerHour int
	// CriticalCooldown is the minimum gap between critical notifications
	// for one organization
	CriticalCooldown time.Duration
}

// DefaultLimiterConfig returns the default limits
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MaxPerTypePerHour: 10,
		CriticalCooldown:  5 * time.Minute,
	}
}

// RedisNotificationLimiter enforces notification limits with redis counters
// so limits hold across process instances. Hourly counters use INCR with a
// first-write TTL; the critical cooldown uses SETNX.
type RedisNotificationLimiter struct {
	client *redis.Client
	config LimiterConfig
	logger *zap.Logger

	now func() time.Time
}

// NewRedisNotificationLimiter creates a redis-backed notification limiter
// over an existing client
func NewRedisNotificationLimiter(client *redis.Client, config LimiterConfig, logger *zap.Logger) *RedisNotificationLimiter {
	if config.MaxPerTypePerHour <= 0 {
		config.MaxPerTypePerHour = 10
	}
	if config.CriticalCooldown <= 0 {
		config.CriticalCooldown = 5 * time.Minute
	}
	return &RedisNotificationLimiter{
		client: client,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Allow reports whether one more notification of this type may be delivered.
// Critical alerts additionally respect the per-organization cooldown.
func (l *RedisNotificationLimiter) Allow(ctx context.Context, orgID uuid.UUID, t alert.Type, severity alert.Severity) (bool, error) {
	if severity == alert.SeverityCritical {
		ok, err := l.client.SetNX(ctx, l.cooldownKey(orgID), "1", l.config.CriticalCooldown).Result()
		if err != nil {
			return false, fmt.Errorf("notify: cooldown check failed: %w", err)
		}
		if !ok {
			l.logger.Debug("Critical notification cooldown active",
				zap.String("organization_id", orgID.String()),
			)
			return false, nil
		}
	}

	key := l.hourlyKey(orgID, t)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("notify: counter increment failed: %w", err)
	}
	if count == 1 {
		// First notification this hour sets the window expiry
		if err := l.client.Expire(ctx, key, time.Hour).Err(); err != nil {
			return false, fmt.Errorf("notify: counter expiry failed: %w", err)
		}
	}
	return count <= int64(l.config.MaxPerTypePerHour), nil
}

// hourlyKey buckets counters by clock hour
func (l *RedisNotificationLimiter) hourlyKey(orgID uuid.UUID, t alert.Type) string {
	return fmt.Sprintf("notify:count:%s:%s:%s", orgID, t, l.now().UTC().Format("2006010215"))
}

func (l *RedisNotificationLimiter) cooldownKey(orgID uuid.UUID) string {
	return fmt.Sprintf("notify:critical_cooldown:%s", orgID)
}

// Ensure the limiter implements the domain port
var _ alert.NotificationLimiter = (*RedisNotificationLimiter)(nil)
