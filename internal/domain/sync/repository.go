package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omnisync/backend/internal/domain/order"
)

// ---------------------------------------------------------------------------
// Store Sync Config
// ---------------------------------------------------------------------------

// StoreConfig holds per-store synchronization settings
type StoreConfig struct {
	StoreID        uuid.UUID
	OrganizationID uuid.UUID
	Platform       string
	Enabled        bool
	Direction      Direction
	// SyncInterval is how often the periodic trigger schedules this store
	SyncInterval time.Duration
	// PullLookback bounds the pull window when no previous sync exists
	PullLookback time.Duration
	// PushWindow is the trailing window for selecting locally changed orders
	PushWindow time.Duration
	// BatchSize is the page size for platform fetches
	BatchSize int
	// SkipUnseenCancelled skips importing platform orders that arrive already
	// cancelled and have never been seen locally
	SkipUnseenCancelled bool
	// LastSyncAt is the completion time of the last successful sync
	LastSyncAt *time.Time
}

// ApplyDefaults fills zero-valued settings with engine defaults
func (c *StoreConfig) ApplyDefaults() {
	if c.Direction == "" {
		c.Direction = DirectionBidirectional
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = 15 * time.Minute
	}
	if c.PullLookback <= 0 {
		c.PullLookback = 7 * 24 * time.Hour
	}
	if c.PushWindow <= 0 {
		c.PushWindow = 24 * time.Hour
	}
	if c.BatchSize <= 0 || c.BatchSize > 100 {
		c.BatchSize = 50
	}
}

// ---------------------------------------------------------------------------
// Repository Ports
// ---------------------------------------------------------------------------

// OrderRepository is the order store collaborator the engine writes through
type OrderRepository interface {
	// FindByPlatformID looks up a local order by its platform identity.
	// Returns (nil, nil) when no order exists.
	FindByPlatformID(ctx context.Context, storeID uuid.UUID, platformOrderID string) (*order.Order, error)

	// Create persists a newly imported canonical order
	Create(ctx context.Context, o *order.Order) error

	// UpdateStatus writes the three status dimensions of an existing order
	UpdateStatus(ctx context.Context, orderID uuid.UUID, t order.StatusTuple) error

	// ListLocallyChanged returns orders whose status changed through a local
	// action within the trailing window and that have not been pushed since
	ListLocallyChanged(ctx context.Context, storeID uuid.UUID, since time.Time) ([]order.Order, error)

	// MarkSynced records a successful push for an order
	MarkSynced(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

// ProductMappingRepository resolves platform product identities to local
// variants during import
type ProductMappingRepository interface {
	// ResolveVariant returns the local variant ID for a platform product.
	// variantID may be empty when the platform does not distinguish variants.
	ResolveVariant(ctx context.Context, storeID uuid.UUID, platformProductID, platformVariantID string) (uuid.UUID, error)
}

// JobRepository persists sync jobs and serves the monitor's history scans
type JobRepository interface {
	// Save creates or updates a job
	Save(ctx context.Context, job *Job) error

	// FindByID returns a job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// ListRecent returns the most recent jobs for a store, newest first
	ListRecent(ctx context.Context, storeID uuid.UUID, limit int) ([]Job, error)

	// ListRunningOlderThan returns running jobs started before the cutoff
	ListRunningOlderThan(ctx context.Context, cutoff time.Time) ([]Job, error)

	// LastCompletedAt returns the completion time of the most recent
	// completed job for a store, or nil when none exists
	LastCompletedAt(ctx context.Context, storeID uuid.UUID) (*time.Time, error)
}

// StoreConfigRepository persists per-store sync settings
type StoreConfigRepository interface {
	// FindByStore returns the config for one store
	FindByStore(ctx context.Context, storeID uuid.UUID) (*StoreConfig, error)

	// ListEnabled returns all enabled store configs
	ListEnabled(ctx context.Context) ([]StoreConfig, error)

	// UpdateLastSyncAt records the completion time of a successful sync
	UpdateLastSyncAt(ctx context.Context, storeID uuid.UUID, at time.Time) error
}
