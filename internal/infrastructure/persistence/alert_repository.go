package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/omnisync/backend/internal/domain/alert"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
)

// GormAlertRepository implements alert.Repository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

var _ alert.Repository = (*GormAlertRepository)(nil)

// Save creates or updates an alert
func (r *GormAlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	var model models.AlertModel
	model.FromDomain(a)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// FindUnresolved returns the unresolved alert for (org, store, type),
// or (nil, nil) when none exists
func (r *GormAlertRepository) FindUnresolved(ctx context.Context, orgID uuid.UUID, storeID *uuid.UUID, t alert.Type) (*alert.Alert, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND type = ? AND resolved_at IS NULL", orgID, string(t))
	if storeID == nil {
		query = query.Where("store_id IS NULL")
	} else {
		query = query.Where("store_id = ?", *storeID)
	}

	var model models.AlertModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID returns an alert by ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, alert.ErrAlertNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListUnresolved returns all unresolved alerts for an organization
func (r *GormAlertRepository) ListUnresolved(ctx context.Context, orgID uuid.UUID) ([]alert.Alert, error) {
	var modelList []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND resolved_at IS NULL", orgID).
		Order("created_at DESC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	alerts := make([]alert.Alert, 0, len(modelList))
	for i := range modelList {
		alerts = append(alerts, *modelList[i].ToDomain())
	}
	return alerts, nil
}

// PruneResolvedOlderThan deletes resolved alerts past the retention age
func (r *GormAlertRepository) PruneResolvedOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	result := r.db.WithContext(ctx).
		Where("resolved_at IS NOT NULL AND resolved_at < ?", cutoff).
		Delete(&models.AlertModel{})
	return result.RowsAffected, result.Error
}

// GormChannelProvider implements alert.ChannelProvider using GORM
type GormChannelProvider struct {
	db *gorm.DB
}

// NewGormChannelProvider creates a new GormChannelProvider
func NewGormChannelProvider(db *gorm.DB) *GormChannelProvider {
	return &GormChannelProvider{db: db}
}

var _ alert.ChannelProvider = (*GormChannelProvider)(nil)

// ChannelsFor returns the notification channels of an organization
func (p *GormChannelProvider) ChannelsFor(ctx context.Context, orgID uuid.UUID) ([]alert.ChannelConfig, error) {
	var modelList []models.NotificationChannelModel
	if err := p.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	channels := make([]alert.ChannelConfig, 0, len(modelList))
	for i := range modelList {
		channels = append(channels, modelList[i].ToDomain())
	}
	return channels, nil
}
