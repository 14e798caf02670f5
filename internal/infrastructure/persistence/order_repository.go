package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements sync.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ sync.OrderRepository = (*GormOrderRepository)(nil)

// FindByPlatformID looks up a local order by its platform identity.
// Returns (nil, nil) when no order exists.
func (r *GormOrderRepository) FindByPlatformID(ctx context.Context, storeID uuid.UUID, platformOrderID string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND platform_order_id = ?", storeID, platformOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a newly imported canonical order
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	var model models.OrderModel
	model.FromDomain(o)
	return r.db.WithContext(ctx).Create(&model).Error
}

// UpdateStatus writes the three status dimensions of an existing order
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, t order.StatusTuple) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":             string(t.Status),
			"financial_status":   string(t.FinancialStatus),
			"fulfillment_status": string(t.FulfillmentStatus),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrOrderNotFound
	}
	return nil
}

// ListLocallyChanged returns orders whose status changed through a local
// action within the trailing window and that have not been pushed since
func (r *GormOrderRepository) ListLocallyChanged(ctx context.Context, storeID uuid.UUID, since time.Time) ([]order.Order, error) {
	var modelList []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Where("status_changed_locally_at IS NOT NULL").
		Where("status_changed_locally_at > ?", since).
		Where("last_synced_at IS NULL OR last_synced_at < status_changed_locally_at").
		Order("status_changed_locally_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}

	orders := make([]order.Order, 0, len(modelList))
	for i := range modelList {
		orders = append(orders, *modelList[i].ToDomain())
	}
	return orders, nil
}

// MarkSynced records a successful push for an order
func (r *GormOrderRepository) MarkSynced(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"last_synced_at": at,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrOrderNotFound
	}
	return nil
}
