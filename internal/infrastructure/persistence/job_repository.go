package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
)

// GormJobRepository implements sync.JobRepository using GORM
type GormJobRepository struct {
	db *gorm.DB
}

// NewGormJobRepository creates a new GormJobRepository
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

var _ sync.JobRepository = (*GormJobRepository)(nil)

// Save creates or updates a job
func (r *GormJobRepository) Save(ctx context.Context, job *sync.Job) error {
	var model models.SyncJobModel
	model.FromDomain(job)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// FindByID returns a job by ID
func (r *GormJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListRecent returns the most recent jobs for a store, newest first
func (r *GormJobRepository) ListRecent(ctx context.Context, storeID uuid.UUID, limit int) ([]sync.Job, error) {
	var modelList []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return jobsToDomain(modelList), nil
}

// ListRunningOlderThan returns running jobs started before the cutoff
func (r *GormJobRepository) ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]sync.Job, error) {
	var modelList []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(sync.JobStatusRunning)).
		Where("started_at IS NOT NULL AND started_at < ?", cutoff).
		Order("started_at ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return jobsToDomain(modelList), nil
}

// LastCompletedAt returns the completion time of the most recent completed
// job for a store, or nil when none exists
func (r *GormJobRepository) LastCompletedAt(ctx context.Context, storeID uuid.UUID) (*time.Time, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, string(sync.JobStatusCompleted)).
		Order("completed_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.CompletedAt, nil
}

func jobsToDomain(modelList []models.SyncJobModel) []sync.Job {
	jobs := make([]sync.Job, 0, len(modelList))
	for i := range modelList {
		jobs = append(jobs, *modelList[i].ToDomain())
	}
	return jobs
}
