package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
)

// GormProductMappingRepository implements sync.ProductMappingRepository using GORM
type GormProductMappingRepository struct {
	db *gorm.DB
}

// NewGormProductMappingRepository creates a new GormProductMappingRepository
func NewGormProductMappingRepository(db *gorm.DB) *GormProductMappingRepository {
	return &GormProductMappingRepository{db: db}
}

var _ sync.ProductMappingRepository = (*GormProductMappingRepository)(nil)

// ResolveVariant returns the local variant ID for a platform product.
// Platforms that do not distinguish variants store an empty variant ID.
func (r *GormProductMappingRepository) ResolveVariant(ctx context.Context, storeID uuid.UUID, platformProductID, platformVariantID string) (uuid.UUID, error) {
	var model models.ProductMappingModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND platform_product_id = ? AND platform_variant_id = ? AND active = ?",
			storeID, platformProductID, platformVariantID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, sync.ErrProductMappingNotFound
		}
		return uuid.Nil, err
	}
	return model.LocalVariantID, nil
}
