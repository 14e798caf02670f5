package credentials

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
)

// GormCredentialStore implements sync.CredentialResolver against the
// store_credentials table
type GormCredentialStore struct {
	db *gorm.DB
}

// NewGormCredentialStore creates a new GormCredentialStore
func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

var _ sync.CredentialResolver = (*GormCredentialStore)(nil)

// GetCredentials returns the credentials for a store, or (nil, nil) when
// none are configured
func (s *GormCredentialStore) GetCredentials(ctx context.Context, storeID string) (*sync.Credentials, error) {
	var model models.StoreCredentialModel
	if err := s.db.WithContext(ctx).First(&model, "store_id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveCredentials upserts the credentials for a store. Adapters refresh
// tokens in place, so the resolver must write updated tokens back.
func (s *GormCredentialStore) SaveCredentials(ctx context.Context, storeID, platform string, creds *sync.Credentials) error {
	var model models.StoreCredentialModel
	model.FromDomain(storeID, platform, creds)
	now := time.Now()
	model.UpdatedAt = now

	var existing models.StoreCredentialModel
	err := s.db.WithContext(ctx).First(&existing, "store_id = ?", storeID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model.CreatedAt = now
		return s.db.WithContext(ctx).Create(&model).Error
	case err != nil:
		return err
	default:
		model.CreatedAt = existing.CreatedAt
		return s.db.WithContext(ctx).Save(&model).Error
	}
}
