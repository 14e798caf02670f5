package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/omnisync/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for sync jobs
type SyncJobModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	StoreID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_jobs_store_created,priority:1"`
	Platform       string     `gorm:"type:varchar(20);not null"`
	JobType        string     `gorm:"type:varchar(20);not null"`
	Status         string     `gorm:"type:varchar(20);not null;index"`
	ItemsTotal     int        `gorm:"not null;default:0"`
	ItemsProcessed int        `gorm:"not null;default:0"`
	ItemsFailed    int        `gorm:"not null;default:0"`
	Error          string     `gorm:"type:text"`
	RetryCount     int        `gorm:"not null;default:0"`
	MaxRetries     int        `gorm:"not null;default:0"`
	NextRetryAt    *time.Time `gorm:"index"`
	StartedAt      *time.Time `gorm:"index"`
	CompletedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null;index:idx_sync_jobs_store_created,priority:2,sort:desc"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain Job
func (m *SyncJobModel) ToDomain() *sync.Job {
	return &sync.Job{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		StoreID:        m.StoreID,
		Platform:       m.Platform,
		JobType:        sync.JobType(m.JobType),
		Status:         sync.JobStatus(m.Status),
		ItemsTotal:     m.ItemsTotal,
		ItemsProcessed: m.ItemsProcessed,
		ItemsFailed:    m.ItemsFailed,
		Error:          m.Error,
		RetryCount:     m.RetryCount,
		MaxRetries:     m.MaxRetries,
		NextRetryAt:    m.NextRetryAt,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Job
func (m *SyncJobModel) FromDomain(j *sync.Job) {
	m.ID = j.ID
	m.OrganizationID = j.OrganizationID
	m.StoreID = j.StoreID
	m.Platform = j.Platform
	m.JobType = string(j.JobType)
	m.Status = string(j.Status)
	m.ItemsTotal = j.ItemsTotal
	m.ItemsProcessed = j.ItemsProcessed
	m.ItemsFailed = j.ItemsFailed
	m.Error = j.Error
	m.RetryCount = j.RetryCount
	m.MaxRetries = j.MaxRetries
	m.NextRetryAt = j.NextRetryAt
	m.StartedAt = j.StartedAt
	m.CompletedAt = j.CompletedAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// StoreConfigModel is the persistence model for per-store sync settings.
// Durations are stored as seconds.
type StoreConfigModel struct {
	StoreID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrganizationID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Platform            string    `gorm:"type:varchar(20);not null"`
	Enabled             bool      `gorm:"not null;default:true;index"`
	Direction           string    `gorm:"type:varchar(20);not null"`
	SyncIntervalSeconds int64     `gorm:"not null;default:0"`
	PullLookbackSeconds int64     `gorm:"not null;default:0"`
	PushWindowSeconds   int64     `gorm:"not null;default:0"`
	BatchSize           int       `gorm:"not null;default:0"`
	SkipUnseenCancelled bool      `gorm:"not null;default:false"`
	LastSyncAt          *time.Time
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreConfigModel) TableName() string {
	return "store_sync_configs"
}

// ToDomain converts the persistence model to a domain StoreConfig
func (m *StoreConfigModel) ToDomain() *sync.StoreConfig {
	cfg := &sync.StoreConfig{
		StoreID:             m.StoreID,
		OrganizationID:      m.OrganizationID,
		Platform:            m.Platform,
		Enabled:             m.Enabled,
		Direction:           sync.Direction(m.Direction),
		SyncInterval:        time.Duration(m.SyncIntervalSeconds) * time.Second,
		PullLookback:        time.Duration(m.PullLookbackSeconds) * time.Second,
		PushWindow:          time.Duration(m.PushWindowSeconds) * time.Second,
		BatchSize:           m.BatchSize,
		SkipUnseenCancelled: m.SkipUnseenCancelled,
		LastSyncAt:          m.LastSyncAt,
	}
	cfg.ApplyDefaults()
	return cfg
}

// FromDomain populates the persistence model from a domain StoreConfig
func (m *StoreConfigModel) FromDomain(c *sync.StoreConfig) {
	m.StoreID = c.StoreID
	m.OrganizationID = c.OrganizationID
	m.Platform = c.Platform
	m.Enabled = c.Enabled
	m.Direction = string(c.Direction)
	m.SyncIntervalSeconds = int64(c.SyncInterval / time.Second)
	m.PullLookbackSeconds = int64(c.PullLookback / time.Second)
	m.PushWindowSeconds = int64(c.PushWindow / time.Second)
	m.BatchSize = c.BatchSize
	m.SkipUnseenCancelled = c.SkipUnseenCancelled
	m.LastSyncAt = c.LastSyncAt
}

// ProductMappingModel is the persistence model for platform product identity
// mappings resolved during order import
type ProductMappingModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	StoreID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_mappings_identity,priority:1"`
	PlatformProductID string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_product_mappings_identity,priority:2"`
	PlatformVariantID string    `gorm:"type:varchar(100);not null;default:'';uniqueIndex:idx_product_mappings_identity,priority:3"`
	LocalVariantID    uuid.UUID `gorm:"type:uuid;not null"`
	Active            bool      `gorm:"not null;default:true"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductMappingModel) TableName() string {
	return "product_mappings"
}
