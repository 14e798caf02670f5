package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Direction & Result
// ---------------------------------------------------------------------------

// Direction selects which half of the pipeline a sync run executes
type Direction string

const (
	DirectionPull          Direction = "pull"
	DirectionPush          Direction = "push"
	DirectionBidirectional Direction = "bidirectional"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	switch d {
	case DirectionPull, DirectionPush, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// IncludesPull reports whether the pull half runs
func (d Direction) IncludesPull() bool {
	return d == DirectionPull || d == DirectionBidirectional
}

// IncludesPush reports whether the push half runs
func (d Direction) IncludesPush() bool {
	return d == DirectionPush || d == DirectionBidirectional
}

// ItemError records one failed order within a sync run without aborting
// the batch
type ItemError struct {
	PlatformOrderID string    `json:"platform_order_id"`
	Op              string    `json:"op"`
	Message         string    `json:"message"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Result is the aggregate outcome of one sync run for one store.
// The monitor evaluates it after every run.
type Result struct {
	JobID          uuid.UUID
	OrganizationID uuid.UUID
	StoreID        uuid.UUID
	Platform       string
	Direction      Direction
	DryRun         bool

	TotalProcessed int
	Imported       int
	Updated        int
	Skipped        int
	Failed         int
	StatusUpdates  int

	Errors []ItemError

	StartedAt   time.Time
	CompletedAt time.Time
}

// RecordError appends a structured per-item error and bumps the failure count
func (r *Result) RecordError(platformOrderID, op string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ItemError{
		PlatformOrderID: platformOrderID,
		Op:              op,
		Message:         err.Error(),
		OccurredAt:      time.Now(),
	})
}

// ErrorRate returns the failure percentage over processed items
func (r *Result) ErrorRate() float64 {
	if r.TotalProcessed == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.TotalProcessed) * 100
}

// CompletionHook receives the aggregate result after every sync run.
// This is the sole integration point between execution and alerting policy.
type CompletionHook interface {
	OnSyncCompleted(ctx context.Context, result *Result)
}
