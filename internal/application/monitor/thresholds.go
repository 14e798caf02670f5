package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omnisync/backend/internal/domain/alert"
)

// Thresholds are the per-organization limits the monitor evaluates after
// every sync run
type Thresholds struct {
	// MaxErrorRate is the tolerated failure percentage per run
	MaxErrorRate float64
	// MaxSyncDelay is the longest acceptable gap since the last completed sync
	MaxSyncDelay time.Duration
	// MinOrdersExpected is the minimum imported+updated count per run.
	// Zero disables the volume check.
	MinOrdersExpected int
	// MaxConsecutiveFailures is the failed-job streak that raises an alert
	MaxConsecutiveFailures int
	// SyncTimeout is how long a running job may take before it is stuck
	SyncTimeout time.Duration
}

// DefaultThresholds returns the monitor defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxErrorRate:           10,
		MaxSyncDelay:           60 * time.Minute,
		MinOrdersExpected:      0,
		MaxConsecutiveFailures: 3,
		SyncTimeout:            30 * time.Minute,
	}
}

// Validate checks that the thresholds are usable
func (t Thresholds) Validate() error {
	if t.MaxErrorRate < 0 || t.MaxErrorRate > 100 {
		return alert.ErrInvalidThresholds
	}
	if t.MaxSyncDelay < 0 || t.SyncTimeout < 0 {
		return alert.ErrInvalidThresholds
	}
	if t.MinOrdersExpected < 0 || t.MaxConsecutiveFailures < 0 {
		return alert.ErrInvalidThresholds
	}
	return nil
}

// ThresholdProvider returns the monitor thresholds of an organization
type ThresholdProvider interface {
	ThresholdsFor(ctx context.Context, orgID uuid.UUID) (Thresholds, error)
}

// StaticThresholds is a ThresholdProvider serving the same limits to every
// organization
type StaticThresholds struct {
	T Thresholds
}

// ThresholdsFor implements ThresholdProvider
func (s StaticThresholds) ThresholdsFor(context.Context, uuid.UUID) (Thresholds, error) {
	return s.T, nil
}
