package sync

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Sync Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("sync: platform not configured")
	ErrPlatformNotEnabled      = errors.New("sync: platform not enabled")
	ErrPlatformUnavailable     = errors.New("sync: platform temporarily unavailable")
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("sync: platform authentication failed")
	ErrPlatformTokenExpired    = errors.New("sync: platform token expired")

	// Order sync errors
	ErrOrderNotFound           = errors.New("sync: platform order not found")
	ErrUnknownTransformer      = errors.New("sync: no transformer registered for platform")
	ErrCredentialsNotFound     = errors.New("sync: credentials not found for store")
	ErrStoreConfigNotFound     = errors.New("sync: store sync config not found")
	ErrProductMappingNotFound  = errors.New("sync: product mapping not found")
	ErrJobNotFound             = errors.New("sync: job not found")
	ErrJobTerminal             = errors.New("sync: job already in a terminal state")
	ErrUnknownAdapter          = errors.New("sync: no adapter registered for platform")
	ErrStatusUpdateUnsupported = errors.New("sync: platform does not support this status update")
)

// ValidationError marks a malformed order or line item. It is never retried
// and is surfaced per item in the batch result.
type ValidationError struct {
	Platform        string
	PlatformOrderID string
	Reason          string
	Err             error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sync: validation failed for %s order %s: %v", e.Platform, e.PlatformOrderID, e.Err)
	}
	return fmt.Sprintf("sync: validation failed for %s order %s: %s", e.Platform, e.PlatformOrderID, e.Reason)
}

// Unwrap returns the underlying cause
func (e *ValidationError) Unwrap() error { return e.Err }

// PlatformAPIError represents an HTTP or API-level failure from a platform.
// 5xx responses and explicitly flagged errors are retryable.
type PlatformAPIError struct {
	Platform   string
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *PlatformAPIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sync: %s API error %d (%s): %s", e.Platform, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("sync: %s API error %d: %s", e.Platform, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is worth retrying
func (e *PlatformAPIError) IsRetryable() bool {
	return e.Retryable || e.StatusCode >= 500
}

// RateLimitError indicates the platform rejected the call for exceeding its
// rate limit. It triggers requeue plus delay, not a hard failure.
type RateLimitError struct {
	Platform   string
	Key        string
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("sync: %s rate limited (key %s, retry after %s)", e.Platform, e.Key, e.RetryAfter)
}

// SyncError wraps an orchestration-level failure for a single order or store
type SyncError struct {
	StoreID         string
	PlatformOrderID string
	Op              string
	Err             error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync: %s failed for order %s: %v", e.Op, e.PlatformOrderID, e.Err)
}

// Unwrap returns the underlying cause
func (e *SyncError) Unwrap() error { return e.Err }

// nonRetryable marks an error that must never be retried
type nonRetryable struct {
	err error
}

func (e *nonRetryable) Error() string { return e.err.Error() }
func (e *nonRetryable) Unwrap() error { return e.err }

// MarkNonRetryable wraps err so that IsRetryable reports false for it
func MarkNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryable{err: err}
}

// IsRetryable reports whether err may be retried. Validation errors and
// explicitly marked errors are permanent; platform API errors defer to their
// own classification; everything else defaults to retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var nr *nonRetryable
	if errors.As(err, &nr) {
		return false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	var pe *PlatformAPIError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return true
}
