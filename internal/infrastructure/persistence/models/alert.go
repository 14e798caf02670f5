package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/omnisync/backend/internal/domain/alert"
)

// AlertModel is the persistence model for sync alerts. Structured details
// and the notified-channel list are serialized into JSON columns.
type AlertModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	Type           string     `gorm:"type:varchar(30);not null;index:idx_alerts_unresolved,priority:3"`
	Severity       string     `gorm:"type:varchar(10);not null"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_alerts_unresolved,priority:1"`
	StoreID        *uuid.UUID `gorm:"type:uuid;index:idx_alerts_unresolved,priority:2"`
	Message        string     `gorm:"type:text;not null"`
	DetailsJSON    string     `gorm:"type:jsonb;column:details"`
	Occurrences    int        `gorm:"not null;default:1"`
	SentJSON       string     `gorm:"type:jsonb;column:notifications_sent"`
	CreatedAt      time.Time  `gorm:"not null"`
	LastSeenAt     time.Time  `gorm:"not null"`
	ResolvedAt     *time.Time `gorm:"index"`
	AcknowledgedAt *time.Time
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "sync_alerts"
}

// ToDomain converts the persistence model to a domain Alert
func (m *AlertModel) ToDomain() *alert.Alert {
	a := &alert.Alert{
		ID:             m.ID,
		Type:           alert.Type(m.Type),
		Severity:       alert.Severity(m.Severity),
		OrganizationID: m.OrganizationID,
		StoreID:        m.StoreID,
		Message:        m.Message,
		Details:        map[string]any{},
		Occurrences:    m.Occurrences,
		CreatedAt:      m.CreatedAt,
		LastSeenAt:     m.LastSeenAt,
		ResolvedAt:     m.ResolvedAt,
		AcknowledgedAt: m.AcknowledgedAt,
	}

	if m.DetailsJSON != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(m.DetailsJSON), &details); err == nil {
			a.Details = details
		}
	}
	if m.SentJSON != "" {
		var sent []string
		if err := json.Unmarshal([]byte(m.SentJSON), &sent); err == nil {
			a.NotificationsSent = sent
		}
	}

	return a
}

// FromDomain populates the persistence model from a domain Alert
func (m *AlertModel) FromDomain(a *alert.Alert) {
	m.ID = a.ID
	m.Type = string(a.Type)
	m.Severity = string(a.Severity)
	m.OrganizationID = a.OrganizationID
	m.StoreID = a.StoreID
	m.Message = a.Message
	m.Occurrences = a.Occurrences
	m.CreatedAt = a.CreatedAt
	m.LastSeenAt = a.LastSeenAt
	m.ResolvedAt = a.ResolvedAt
	m.AcknowledgedAt = a.AcknowledgedAt

	if len(a.Details) > 0 {
		if jsonBytes, err := json.Marshal(a.Details); err == nil {
			m.DetailsJSON = string(jsonBytes)
		}
	} else {
		m.DetailsJSON = ""
	}
	if len(a.NotificationsSent) > 0 {
		if jsonBytes, err := json.Marshal(a.NotificationsSent); err == nil {
			m.SentJSON = string(jsonBytes)
		}
	} else {
		m.SentJSON = ""
	}
}

// NotificationChannelModel is the persistence model for an organization's
// configured alert channels
type NotificationChannelModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(100);not null"`
	Kind           string    `gorm:"type:varchar(20);not null"`
	Enabled        bool      `gorm:"not null;default:true"`
	Recipient      string    `gorm:"type:text;not null"`
	AlertTypesJSON string    `gorm:"type:jsonb;column:alert_types"`
	MinSeverity    string    `gorm:"type:varchar(10)"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NotificationChannelModel) TableName() string {
	return "notification_channels"
}

// ToDomain converts the persistence model to a ChannelConfig
func (m *NotificationChannelModel) ToDomain() alert.ChannelConfig {
	cfg := alert.ChannelConfig{
		Name:        m.Name,
		Kind:        alert.ChannelKind(m.Kind),
		Enabled:     m.Enabled,
		Recipient:   m.Recipient,
		MinSeverity: alert.Severity(m.MinSeverity),
	}
	if m.AlertTypesJSON != "" {
		var types []alert.Type
		if err := json.Unmarshal([]byte(m.AlertTypesJSON), &types); err == nil {
			cfg.AlertTypes = types
		}
	}
	return cfg
}
