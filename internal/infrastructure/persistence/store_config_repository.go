package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
)

// GormStoreConfigRepository implements sync.StoreConfigRepository using GORM
type GormStoreConfigRepository struct {
	db *gorm.DB
}

// NewGormStoreConfigRepository creates a new GormStoreConfigRepository
func NewGormStoreConfigRepository(db *gorm.DB) *GormStoreConfigRepository {
	return &GormStoreConfigRepository{db: db}
}

var _ sync.StoreConfigRepository = (*GormStoreConfigRepository)(nil)

// FindByStore returns the config for one store
func (r *GormStoreConfigRepository) FindByStore(ctx context.Context, storeID uuid.UUID) (*sync.StoreConfig, error) {
	var model models.StoreConfigModel
	if err := r.db.WithContext(ctx).First(&model, "store_id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrStoreConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListEnabled returns all enabled store configs
func (r *GormStoreConfigRepository) ListEnabled(ctx context.Context) ([]sync.StoreConfig, error) {
	var modelList []models.StoreConfigModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	configs := make([]sync.StoreConfig, 0, len(modelList))
	for i := range modelList {
		configs = append(configs, *modelList[i].ToDomain())
	}
	return configs, nil
}

// UpdateLastSyncAt records the completion time of a successful sync
func (r *GormStoreConfigRepository) UpdateLastSyncAt(ctx context.Context, storeID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.StoreConfigModel{}).
		Where("store_id = ?", storeID).
		Updates(map[string]any{
			"last_sync_at": at,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrStoreConfigNotFound
	}
	return nil
}
