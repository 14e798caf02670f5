package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/order"
	domain "github.com/omnisync/backend/internal/domain/sync"
	"github.com/omnisync/backend/internal/infrastructure/resilience"
)

// ---------------------------------------------------------------------------
// Order Sync Engine
// ---------------------------------------------------------------------------

// EngineConfig tunes the sync engine defaults. Per-store settings override
// them through StoreConfig.
type EngineConfig struct {
	// DefaultPullLookback bounds the pull window when a store has no
	// recorded last sync
	DefaultPullLookback time.Duration
	// DefaultPushWindow is the trailing window for locally changed orders
	DefaultPushWindow time.Duration
	// DefaultBatchSize is the page size for platform fetches
	DefaultBatchSize int
	// FetchRetry tunes retries around page fetches and status pushes
	FetchRetry resilience.RetryConfig
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultPullLookback: 7 * 24 * time.Hour,
		DefaultPushWindow:   24 * time.Hour,
		DefaultBatchSize:    50,
		FetchRetry:          resilience.DefaultRetryConfig(),
	}
}

// Options selects direction and side-effect behavior for one sync run
type Options struct {
	// Direction selects pull-only, push-only or bidirectional
	Direction domain.Direction
	// DryRun runs the full pipeline without persistence or platform writes
	DryRun bool
	// Window overrides the pull window when non-zero
	WindowStart time.Time
	WindowEnd   time.Time
}

// Engine orchestrates pull (import/update) and push (status propagation)
// per store, using adapters, the normalizer and the order store. It holds
// no per-store state; everything arrives through StoreConfig.
type Engine struct {
	config      EngineConfig
	adapters    domain.AdapterRegistry
	normalizer  *Normalizer
	orders      domain.OrderRepository
	mappings    domain.ProductMappingRepository
	credentials domain.CredentialResolver
	retry       *resilience.RetryManager
	hook        domain.CompletionHook
	logger      *zap.Logger
}

// NewEngine creates a sync engine. hook may be nil when no monitor is
// attached (tests).
func NewEngine(
	config EngineConfig,
	adapters domain.AdapterRegistry,
	normalizer *Normalizer,
	orders domain.OrderRepository,
	mappings domain.ProductMappingRepository,
	credentials domain.CredentialResolver,
	retry *resilience.RetryManager,
	hook domain.CompletionHook,
	logger *zap.Logger,
) *Engine {
	if config.DefaultPullLookback <= 0 {
		config.DefaultPullLookback = 7 * 24 * time.Hour
	}
	if config.DefaultPushWindow <= 0 {
		config.DefaultPushWindow = 24 * time.Hour
	}
	if config.DefaultBatchSize <= 0 {
		config.DefaultBatchSize = 50
	}
	return &Engine{
		config:      config,
		adapters:    adapters,
		normalizer:  normalizer,
		orders:      orders,
		mappings:    mappings,
		credentials: credentials,
		retry:       retry,
		hook:        hook,
		logger:      logger,
	}
}

// SyncStore runs one sync for one store. Per-order failures are captured in
// the result without aborting the batch; only setup failures (unknown
// adapter, missing credentials) fail the run as a whole. The monitor hook
// fires with the aggregate result in every case where a run started.
func (e *Engine) SyncStore(ctx context.Context, cfg domain.StoreConfig, opts Options) (*domain.Result, error) {
	cfg.ApplyDefaults()
	direction := opts.Direction
	if direction == "" {
		direction = cfg.Direction
	}

	result := &domain.Result{
		OrganizationID: cfg.OrganizationID,
		StoreID:        cfg.StoreID,
		Platform:       cfg.Platform,
		Direction:      direction,
		DryRun:         opts.DryRun,
		StartedAt:      time.Now(),
	}

	adapter, err := e.adapters.Get(cfg.Platform)
	if err != nil {
		return nil, err
	}

	creds, err := e.credentials.GetCredentials(ctx, cfg.StoreID.String())
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for store %s: %w", cfg.StoreID, err)
	}
	if creds == nil {
		return nil, domain.ErrCredentialsNotFound
	}
	if creds.IsExpired(time.Now()) {
		if err := adapter.Authenticate(ctx, creds); err != nil {
			return nil, fmt.Errorf("refreshing credentials for store %s: %w", cfg.StoreID, err)
		}
	}

	e.logger.Info("Starting store sync",
		zap.String("store_id", cfg.StoreID.String()),
		zap.String("platform", cfg.Platform),
		zap.String("direction", string(direction)),
		zap.Bool("dry_run", opts.DryRun),
	)

	if direction.IncludesPull() {
		e.pull(ctx, adapter, creds, cfg, opts, result)
	}
	if direction.IncludesPush() {
		e.push(ctx, adapter, creds, cfg, opts, result)
	}

	result.CompletedAt = time.Now()

	e.logger.Info("Store sync completed",
		zap.String("store_id", cfg.StoreID.String()),
		zap.String("platform", cfg.Platform),
		zap.Int("total_processed", result.TotalProcessed),
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("status_updates", result.StatusUpdates),
	)

	if e.hook != nil {
		e.hook.OnSyncCompleted(ctx, result)
	}
	return result, nil
}

// SyncStores runs syncs for several stores, capturing each store's failure
// at its own boundary. A missing config or credentials aborts only that
// store, never the loop.
func (e *Engine) SyncStores(ctx context.Context, configs []domain.StoreConfig, opts Options) []*domain.Result {
	results := make([]*domain.Result, 0, len(configs))
	for i := range configs {
		cfg := configs[i]
		res, err := e.SyncStore(ctx, cfg, opts)
		if err != nil {
			e.logger.Error("Store sync failed",
				zap.String("store_id", cfg.StoreID.String()),
				zap.String("platform", cfg.Platform),
				zap.Error(err),
			)
			failed := &domain.Result{
				OrganizationID: cfg.OrganizationID,
				StoreID:        cfg.StoreID,
				Platform:       cfg.Platform,
				Direction:      opts.Direction,
				StartedAt:      time.Now(),
				CompletedAt:    time.Now(),
			}
			failed.RecordError("", "sync", err)
			results = append(results, failed)
			continue
		}
		results = append(results, res)
	}
	return results
}

// ---------------------------------------------------------------------------
// Pull
// ---------------------------------------------------------------------------

// pull imports and updates orders from the platform, page by page. Items in
// one page are processed strictly in platform-returned order.
func (e *Engine) pull(ctx context.Context, adapter domain.PlatformAdapter, creds *domain.Credentials, cfg domain.StoreConfig, opts Options, result *domain.Result) {
	start, end := e.pullWindow(cfg, opts)
	offset := 0

	for {
		select {
		case <-ctx.Done():
			result.RecordError("", "pull", ctx.Err())
			return
		default:
		}

		query := domain.OrdersQuery{
			StartDate: start,
			EndDate:   end,
			Limit:     cfg.BatchSize,
			Offset:    offset,
		}

		var page *domain.OrderPage
		err := e.retry.Execute(ctx, e.config.FetchRetry, func(ctx context.Context) error {
			var fetchErr error
			page, fetchErr = adapter.GetOrders(ctx, creds, query)
			return fetchErr
		})
		if err != nil {
			// A failed page fails the remaining window, not the orders
			// already processed
			result.RecordError("", "fetch_page", err)
			return
		}

		for i := range page.Orders {
			e.pullOrder(ctx, cfg, opts, page.Orders[i], result)
		}

		if !page.HasMore || len(page.Orders) == 0 {
			return
		}
		offset = page.NextOffset
	}
}

// pullOrder imports or updates a single platform order. Failures are
// isolated: they increment the failure count and append a structured error.
func (e *Engine) pullOrder(ctx context.Context, cfg domain.StoreConfig, opts Options, raw domain.RawOrder, result *domain.Result) {
	result.TotalProcessed++

	existing, err := e.orders.FindByPlatformID(ctx, cfg.StoreID, raw.PlatformOrderID)
	if err != nil {
		result.RecordError(raw.PlatformOrderID, "lookup", err)
		return
	}

	if existing == nil {
		if cfg.SkipUnseenCancelled {
			tuple := e.normalizer.TransformStatus(cfg.Platform, raw.Status)
			if tuple.Status == order.StatusCancelled {
				result.Skipped++
				return
			}
		}
		e.importOrder(ctx, cfg, opts, raw, result)
		return
	}

	// Known order: write status only when something actually changed
	tuple := e.normalizer.TransformStatus(cfg.Platform, raw.Status)
	if !existing.StatusDiffers(tuple) {
		result.Skipped++
		return
	}
	if !opts.DryRun {
		if err := e.orders.UpdateStatus(ctx, existing.ID, tuple); err != nil {
			result.RecordError(raw.PlatformOrderID, "update_status", err)
			return
		}
	}
	result.Updated++
	result.StatusUpdates++
}

// importOrder normalizes and creates a previously unseen order
func (e *Engine) importOrder(ctx context.Context, cfg domain.StoreConfig, opts Options, raw domain.RawOrder, result *domain.Result) {
	o, err := e.normalizer.NormalizeOrder(cfg.Platform, raw)
	if err != nil {
		result.RecordError(raw.PlatformOrderID, "normalize", err)
		return
	}
	o.StoreID = cfg.StoreID
	o.OrganizationID = cfg.OrganizationID

	e.resolveMappings(ctx, cfg, o)

	if !opts.DryRun {
		if err := e.orders.Create(ctx, o); err != nil {
			result.RecordError(raw.PlatformOrderID, "create", err)
			return
		}
	}
	result.Imported++
}

// resolveMappings attaches local variant IDs where product mappings exist.
// An unmapped product is a warning, not an import failure.
func (e *Engine) resolveMappings(ctx context.Context, cfg domain.StoreConfig, o *order.Order) {
	if e.mappings == nil {
		return
	}
	for i := range o.Items {
		it := &o.Items[i]
		localID, err := e.mappings.ResolveVariant(ctx, cfg.StoreID, it.ProductID, it.VariantID)
		if err != nil {
			e.logger.Warn("No product mapping for imported item",
				zap.String("store_id", cfg.StoreID.String()),
				zap.String("platform_product_id", it.ProductID),
				zap.String("platform_variant_id", it.VariantID),
			)
			continue
		}
		it.LocalVariantID = localID
	}
}

// pullWindow computes the fetch window from options, last sync time and the
// configured lookback
func (e *Engine) pullWindow(cfg domain.StoreConfig, opts Options) (time.Time, time.Time) {
	if !opts.WindowStart.IsZero() && !opts.WindowEnd.IsZero() {
		return opts.WindowStart, opts.WindowEnd
	}
	end := time.Now()
	start := end.Add(-cfg.PullLookback)
	if cfg.LastSyncAt != nil && cfg.LastSyncAt.After(start) {
		// Overlap the last sync slightly so boundary orders are not missed
		start = cfg.LastSyncAt.Add(-5 * time.Minute)
	}
	return start, end
}

// ---------------------------------------------------------------------------
// Push
// ---------------------------------------------------------------------------

// push propagates locally authoritative status changes to the platform.
// Failures are recorded and left for the next scheduled pass; nothing is
// retried inline beyond the transport retry policy.
func (e *Engine) push(ctx context.Context, adapter domain.PlatformAdapter, creds *domain.Credentials, cfg domain.StoreConfig, opts Options, result *domain.Result) {
	since := time.Now().Add(-cfg.PushWindow)
	changed, err := e.orders.ListLocallyChanged(ctx, cfg.StoreID, since)
	if err != nil {
		result.RecordError("", "list_changed", err)
		return
	}

	for i := range changed {
		o := &changed[i]
		result.TotalProcessed++

		token := e.normalizer.ReverseTransformStatus(cfg.Platform, o.Status)

		if opts.DryRun {
			result.StatusUpdates++
			continue
		}

		err := e.retry.Execute(ctx, e.config.FetchRetry, func(ctx context.Context) error {
			return adapter.UpdateOrderStatus(ctx, creds, o.PlatformOrderID, token, nil)
		})
		if err != nil {
			result.RecordError(o.PlatformOrderID, "push_status", err)
			continue
		}

		if err := e.orders.MarkSynced(ctx, o.ID, time.Now()); err != nil {
			result.RecordError(o.PlatformOrderID, "mark_synced", err)
			continue
		}
		result.StatusUpdates++
	}
}
