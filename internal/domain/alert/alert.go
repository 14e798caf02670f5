package alert

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Alert Errors
// ---------------------------------------------------------------------------

var (
	ErrAlertNotFound      = errors.New("alert: alert not found")
	ErrAlertResolved      = errors.New("alert: alert already resolved")
	ErrInvalidThresholds  = errors.New("alert: invalid monitor thresholds")
	ErrChannelDisabled    = errors.New("alert: notification channel disabled")
	ErrNotificationLimits = errors.New("alert: notification rate limit reached")
)

// ---------------------------------------------------------------------------
// Alert Types & Severity
// ---------------------------------------------------------------------------

// Type identifies the threshold breach an alert records
type Type string

const (
	// TypeHighErrorRate fires when the sync error rate exceeds the limit
	TypeHighErrorRate Type = "high_error_rate"
	// TypeSyncDelay fires when no sync has completed within the limit
	TypeSyncDelay Type = "sync_delay"
	// TypeLowOrderVolume fires when fewer orders than expected were moved
	TypeLowOrderVolume Type = "low_order_volume"
	// TypeSyncFailure fires on consecutive failed sync jobs
	TypeSyncFailure Type = "sync_failure"
	// TypeStuckJob fires when a running job exceeds the sync timeout
	TypeStuckJob Type = "stuck_job"
)

// IsValid returns true if the alert type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeHighErrorRate, TypeSyncDelay, TypeLowOrderVolume, TypeSyncFailure, TypeStuckJob:
		return true
	default:
		return false
	}
}

// String returns the string representation of Type
func (t Type) String() string { return string(t) }

// Severity ranks how urgent an alert is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for threshold comparison
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as min
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

// IsValid returns true if the severity is valid
func (s Severity) IsValid() bool {
	return s.rank() > 0
}

// String returns the string representation of Severity
func (s Severity) String() string { return string(s) }

// ---------------------------------------------------------------------------
// Alert Entity
// ---------------------------------------------------------------------------

// Alert is a durable record of a threshold breach. At most one unresolved
// alert exists per (organization, store, type); repeats merge into it.
type Alert struct {
	ID             uuid.UUID
	Type           Type
	Severity       Severity
	OrganizationID uuid.UUID
	// StoreID is nil for organization-wide alerts
	StoreID *uuid.UUID
	Message string
	// Details holds structured context, merged on repeat occurrences
	Details map[string]any
	// Occurrences counts how many times this breach repeated while unresolved
	Occurrences int
	// NotificationsSent lists channels that were notified
	NotificationsSent []string
	CreatedAt         time.Time
	LastSeenAt        time.Time
	ResolvedAt        *time.Time
	AcknowledgedAt    *time.Time
}

// New creates an unresolved alert
func New(t Type, severity Severity, orgID uuid.UUID, storeID *uuid.UUID, message string, details map[string]any) *Alert {
	now := time.Now()
	if details == nil {
		details = map[string]any{}
	}
	return &Alert{
		ID:             uuid.New(),
		Type:           t,
		Severity:       severity,
		OrganizationID: orgID,
		StoreID:        storeID,
		Message:        message,
		Details:        details,
		Occurrences:    1,
		CreatedAt:      now,
		LastSeenAt:     now,
	}
}

// IsResolved reports whether the alert has been resolved
func (a *Alert) IsResolved() bool { return a.ResolvedAt != nil }

// Merge folds a repeat occurrence into the existing unresolved record.
// Severity only escalates, never downgrades; details are overlaid.
func (a *Alert) Merge(severity Severity, message string, details map[string]any) error {
	if a.IsResolved() {
		return ErrAlertResolved
	}
	if severity.AtLeast(a.Severity) {
		a.Severity = severity
	}
	if message != "" {
		a.Message = message
	}
	for k, v := range details {
		a.Details[k] = v
	}
	a.Occurrences++
	a.LastSeenAt = time.Now()
	return nil
}

// Resolve marks the alert resolved
func (a *Alert) Resolve() error {
	if a.IsResolved() {
		return ErrAlertResolved
	}
	now := time.Now()
	a.ResolvedAt = &now
	return nil
}

// Acknowledge marks the alert acknowledged, cancelling escalation
func (a *Alert) Acknowledge() {
	if a.AcknowledgedAt == nil {
		now := time.Now()
		a.AcknowledgedAt = &now
	}
}

// RecordNotification appends a channel to the sent list
func (a *Alert) RecordNotification(channel string) {
	a.NotificationsSent = append(a.NotificationsSent, channel)
}
