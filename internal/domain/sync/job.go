package sync

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Job
// ---------------------------------------------------------------------------

// JobType identifies what a sync job does
type JobType string

const (
	// JobTypeOrderPull imports and updates orders from a platform
	JobTypeOrderPull JobType = "order_pull"
	// JobTypeOrderPush propagates local status changes to a platform
	JobTypeOrderPush JobType = "order_push"
	// JobTypeBidirectional runs pull then push in one job
	JobTypeBidirectional JobType = "bidirectional"
)

// IsValid returns true if the job type is valid
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeOrderPull, JobTypeOrderPush, JobTypeBidirectional:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of a sync job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsValid returns true if the job status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is terminal. Terminal jobs are
// immutable.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a scheduled unit of synchronization for one store
type Job struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	StoreID        uuid.UUID
	Platform       string
	JobType        JobType
	Status         JobStatus
	ItemsTotal     int
	ItemsProcessed int
	ItemsFailed    int
	Error          string
	RetryCount     int
	MaxRetries     int
	NextRetryAt    *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewJob creates a pending sync job
func NewJob(orgID, storeID uuid.UUID, platform string, jobType JobType, maxRetries int) *Job {
	now := time.Now()
	return &Job{
		ID:             uuid.New(),
		OrganizationID: orgID,
		StoreID:        storeID,
		Platform:       platform,
		JobType:        jobType,
		Status:         JobStatusPending,
		MaxRetries:     maxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Start marks the job as running
func (j *Job) Start() error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
	j.Error = ""
	return nil
}

// Complete records the item counts and marks the job completed
func (j *Job) Complete(total, processed, failed int) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	j.ItemsTotal = total
	j.ItemsProcessed = processed
	j.ItemsFailed = failed
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// Fail marks the job failed with the given reason
func (j *Job) Fail(reason string) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = reason
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// ShouldRetry returns true if a failed job has retry budget left
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry resets a failed job to pending with exponential backoff
func (j *Job) ScheduleRetry(baseDelay, maxDelay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > maxDelay {
		delay = maxDelay
	}
	next := time.Now().Add(delay)
	j.NextRetryAt = &next
	j.CompletedAt = nil
	j.Error = ""
	j.UpdatedAt = time.Now()
}

// RunningFor returns how long the job has been running as of now
func (j *Job) RunningFor(now time.Time) time.Duration {
	if j.Status != JobStatusRunning || j.StartedAt == nil {
		return 0
	}
	return now.Sub(*j.StartedAt)
}
