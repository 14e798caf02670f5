package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Notification Channels
// ---------------------------------------------------------------------------

// ChannelKind identifies the transport of a notification channel
type ChannelKind string

const (
	ChannelEmail   ChannelKind = "email"
	ChannelWebhook ChannelKind = "webhook"
	ChannelSlack   ChannelKind = "slack"
	ChannelTeams   ChannelKind = "teams"
)

// IsValid returns true if the channel kind is valid
func (k ChannelKind) IsValid() bool {
	switch k {
	case ChannelEmail, ChannelWebhook, ChannelSlack, ChannelTeams:
		return true
	default:
		return false
	}
}

// ChannelConfig is one configured notification channel for an organization
type ChannelConfig struct {
	Name    string
	Kind    ChannelKind
	Enabled bool
	// Recipient is the channel target: an address list for email, a URL for
	// webhook/slack/teams
	Recipient string
	// AlertTypes is the allow-list of alert types this channel receives.
	// Empty means all types.
	AlertTypes []Type
	// MinSeverity is the minimum severity this channel receives
	MinSeverity Severity
}

// Accepts reports whether the channel should receive the given alert
func (c *ChannelConfig) Accepts(a *Alert) bool {
	if !c.Enabled {
		return false
	}
	if c.MinSeverity != "" && !a.Severity.AtLeast(c.MinSeverity) {
		return false
	}
	if len(c.AlertTypes) == 0 {
		return true
	}
	for _, t := range c.AlertTypes {
		if t == a.Type {
			return true
		}
	}
	return false
}

// Sender delivers a rendered alert to one channel target. Implementations
// report success or failure independently of other channels.
type Sender interface {
	// Kind returns the channel kind this sender handles
	Kind() ChannelKind

	// Send delivers the alert to the recipient configured on the channel
	Send(ctx context.Context, channel ChannelConfig, a *Alert) error
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// Repository persists alerts and enforces the one-unresolved-per-key rule
// together with the monitor
type Repository interface {
	// Save creates or updates an alert
	Save(ctx context.Context, a *Alert) error

	// FindUnresolved returns the unresolved alert for (org, store, type),
	// or (nil, nil) when none exists
	FindUnresolved(ctx context.Context, orgID uuid.UUID, storeID *uuid.UUID, t Type) (*Alert, error)

	// FindByID returns an alert by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)

	// ListUnresolved returns all unresolved alerts for an organization
	ListUnresolved(ctx context.Context, orgID uuid.UUID) ([]Alert, error)

	// PruneResolvedOlderThan deletes resolved alerts past the retention age
	PruneResolvedOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// ChannelProvider returns the notification channels of an organization
type ChannelProvider interface {
	ChannelsFor(ctx context.Context, orgID uuid.UUID) ([]ChannelConfig, error)
}

// NotificationLimiter rate-limits notification delivery per alert type.
// Implementations are expected to be shared process-wide (or redis-backed
// for multi-instance deployments).
type NotificationLimiter interface {
	// Allow reports whether one more notification of this type may be sent
	// for the organization within the current window
	Allow(ctx context.Context, orgID uuid.UUID, t Type, severity Severity) (bool, error)
}
