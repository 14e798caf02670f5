package models

import (
	"time"

	"github.com/omnisync/backend/internal/domain/sync"
)

// StoreCredentialModel is the persistence model for per-store platform API
// credentials. The store ID is kept as the platform-facing string key.
type StoreCredentialModel struct {
	StoreID      string `gorm:"type:varchar(100);primary_key"`
	Platform     string `gorm:"type:varchar(20);not null"`
	AccessToken  string `gorm:"type:text;not null"`
	RefreshToken string `gorm:"type:text"`
	ShopID       string `gorm:"type:varchar(100)"`
	ExpiresAt    *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreCredentialModel) TableName() string {
	return "store_credentials"
}

// ToDomain converts the persistence model to domain Credentials
func (m *StoreCredentialModel) ToDomain() *sync.Credentials {
	creds := &sync.Credentials{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ShopID:       m.ShopID,
	}
	if m.ExpiresAt != nil {
		creds.ExpiresAt = *m.ExpiresAt
	}
	return creds
}

// FromDomain populates the persistence model from domain Credentials
func (m *StoreCredentialModel) FromDomain(storeID, platform string, c *sync.Credentials) {
	m.StoreID = storeID
	m.Platform = platform
	m.AccessToken = c.AccessToken
	m.RefreshToken = c.RefreshToken
	m.ShopID = c.ShopID
	if c.ExpiresAt.IsZero() {
		m.ExpiresAt = nil
	} else {
		expires := c.ExpiresAt
		m.ExpiresAt = &expires
	}
}
