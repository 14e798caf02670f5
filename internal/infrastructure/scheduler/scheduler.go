package scheduler

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/omnisync/backend/internal/application/sync"
	"github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds sync scheduler configuration
type Config struct {
	// Enabled indicates if the periodic trigger runs
	Enabled bool
	// MaxConcurrentSyncs is the worker pool size
	MaxConcurrentSyncs int
	// QueueSize is the job channel capacity
	QueueSize int
	// JobTimeout is the maximum time one sync job may run
	JobTimeout time.Duration
	// TriggerInterval is how often due stores are scanned
	TriggerInterval time.Duration
	// StuckJobInterval is how often stuck running jobs are checked
	StuckJobInterval time.Duration
	// JobMaxRetries is the retry budget for failed jobs
	JobMaxRetries int
	// RetryBaseDelay is the base delay for exponential retry backoff
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the retry backoff
	RetryMaxDelay time.Duration
}

// DefaultConfig returns the scheduler defaults
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		MaxConcurrentSyncs: 3,
		QueueSize:          100,
		JobTimeout:         30 * time.Minute,
		TriggerInterval:    time.Minute,
		StuckJobInterval:   5 * time.Minute,
		JobMaxRetries:      3,
		RetryBaseDelay:     time.Minute,
		RetryMaxDelay:      30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrentSyncs <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.TriggerInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.JobMaxRetries < 0 {
		return ErrInvalidConfig
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator Ports
// ---------------------------------------------------------------------------

// SyncRunner runs one sync for one store. The engine implements it.
type SyncRunner interface {
	SyncStore(ctx context.Context, cfg sync.StoreConfig, opts appsync.Options) (*sync.Result, error)
}

// HealthChecker observes job failures and flags running jobs past the sync
// timeout. The monitor implements it.
type HealthChecker interface {
	CheckStuckJobs(ctx context.Context) error
	OnJobFailed(ctx context.Context, job *sync.Job)
}

// ---------------------------------------------------------------------------
// Sync Scheduler
// ---------------------------------------------------------------------------

// SyncScheduler runs sync jobs on a bounded worker pool. A periodic trigger
// scans enabled store configs and enqueues a job for each store whose sync
// interval has elapsed. At most one job per store is in flight at a time.
type SyncScheduler struct {
	config  Config
	runner  SyncRunner
	jobRepo sync.JobRepository
	stores  sync.StoreConfigRepository
	health  HealthChecker
	logger  *zap.Logger

	jobs      chan *sync.Job
	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool

	// inFlight tracks stores with a queued or running job
	inFlightMu gosync.Mutex
	inFlight   map[uuid.UUID]struct{}

	now func() time.Time
}

// NewSyncScheduler creates a sync scheduler. health may be nil when no
// monitor is attached.
func NewSyncScheduler(
	config Config,
	runner SyncRunner,
	jobRepo sync.JobRepository,
	stores sync.StoreConfigRepository,
	health HealthChecker,
	logger *zap.Logger,
) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncScheduler{
		config:   config,
		runner:   runner,
		jobRepo:  jobRepo,
		stores:   stores,
		health:   health,
		logger:   logger,
		jobs:     make(chan *sync.Job, config.QueueSize),
		inFlight: make(map[uuid.UUID]struct{}),
		now:      time.Now,
	}, nil
}

// Start starts the worker pool and, when enabled, the periodic loops
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentSyncs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	if s.config.Enabled {
		s.wg.Add(1)
		go s.triggerLoop(ctx)

		if s.health != nil {
			s.wg.Add(1)
			go s.stuckJobLoop(ctx)
		}
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentSyncs),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Bool("periodic_trigger", s.config.Enabled),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit persists a job and queues it for execution. Rejects the job when
// the store already has a job in flight.
func (s *SyncScheduler) Submit(ctx context.Context, job *sync.Job) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	if !s.claimStore(job.StoreID) {
		return ErrStoreSyncInProgress
	}

	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.releaseStore(job.StoreID)
		return err
	}

	if err := s.enqueue(job); err != nil {
		s.releaseStore(job.StoreID)
		return err
	}

	s.logger.Debug("Sync job queued",
		zap.String("job_id", job.ID.String()),
		zap.String("store_id", job.StoreID.String()),
		zap.String("platform", job.Platform),
		zap.String("job_type", string(job.JobType)),
	)
	return nil
}

// enqueue hands a job to the workers without blocking. The jobs channel is
// never closed, so a send racing Stop cannot panic; once isRunning flips the
// send is refused instead.
func (s *SyncScheduler) enqueue(job *sync.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// QueueDepth returns the number of queued jobs
func (s *SyncScheduler) QueueDepth() int {
	return len(s.jobs)
}

func (s *SyncScheduler) claimStore(storeID uuid.UUID) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if _, busy := s.inFlight[storeID]; busy {
		return false
	}
	s.inFlight[storeID] = struct{}{}
	return true
}

func (s *SyncScheduler) releaseStore(storeID uuid.UUID) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, storeID)
}

// ---------------------------------------------------------------------------
// Workers
// ---------------------------------------------------------------------------

func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *sync.Job, workerID int) {
	// The store claim outlives this run when the job is requeued for retry
	requeued := false
	defer func() {
		if !requeued {
			s.releaseStore(job.StoreID)
		}
	}()

	// Retried jobs wait out their backoff before running
	if job.NextRetryAt != nil && s.now().Before(*job.NextRetryAt) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(*job.NextRetryAt)):
		}
	}

	if err := job.Start(); err != nil {
		s.logger.Warn("Skipping terminal sync job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to persist running sync job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("store_id", job.StoreID.String()),
		zap.String("platform", job.Platform),
		zap.String("job_type", string(job.JobType)),
		zap.Int("retry_count", job.RetryCount),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.runJob(jobCtx, job)
	if err != nil {
		requeued = s.failJob(ctx, job, err)
		return
	}

	if err := job.Complete(result.TotalProcessed, result.TotalProcessed-result.Failed, result.Failed); err != nil {
		s.logger.Warn("Could not complete sync job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to persist completed sync job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	if err := s.stores.UpdateLastSyncAt(ctx, job.StoreID, s.now()); err != nil {
		s.logger.Warn("Failed to record store last sync time",
			zap.String("store_id", job.StoreID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("store_id", job.StoreID.String()),
		zap.Int("items_total", job.ItemsTotal),
		zap.Int("items_failed", job.ItemsFailed),
	)
}

// runJob resolves the store config and runs the engine in the direction the
// job type selects
func (s *SyncScheduler) runJob(ctx context.Context, job *sync.Job) (*sync.Result, error) {
	cfg, err := s.stores.FindByStore(ctx, job.StoreID)
	if err != nil {
		return nil, err
	}

	opts := appsync.Options{}
	switch job.JobType {
	case sync.JobTypeOrderPull:
		opts.Direction = sync.DirectionPull
	case sync.JobTypeOrderPush:
		opts.Direction = sync.DirectionPush
	default:
		opts.Direction = sync.DirectionBidirectional
	}

	return s.runner.SyncStore(ctx, *cfg, opts)
}

// failJob records the failure and requeues the job when retry budget
// remains. Returns true when the job was requeued and the store claim
// must be kept.
func (s *SyncScheduler) failJob(ctx context.Context, job *sync.Job, cause error) bool {
	if err := job.Fail(cause.Error()); err != nil {
		return false
	}

	s.logger.Error("Sync job failed",
		zap.String("job_id", job.ID.String()),
		zap.String("store_id", job.StoreID.String()),
		zap.String("platform", job.Platform),
		zap.Error(cause),
	)

	if job.ShouldRetry() {
		job.ScheduleRetry(s.config.RetryBaseDelay, s.config.RetryMaxDelay)
		if err := s.jobRepo.Save(ctx, job); err != nil {
			s.logger.Error("Failed to persist retry-scheduled sync job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
		s.logger.Info("Sync job scheduled for retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Timep("next_retry_at", job.NextRetryAt),
		)
		if err := s.enqueue(job); err != nil {
			s.logger.Warn("Failed to requeue sync job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			return false
		}
		return true
	}

	if err := s.jobRepo.Save(ctx, job); err != nil {
		s.logger.Error("Failed to persist failed sync job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	if s.health != nil {
		s.health.OnJobFailed(ctx, job)
	}
	return false
}

// ---------------------------------------------------------------------------
// Periodic Loops
// ---------------------------------------------------------------------------

// triggerLoop scans enabled store configs and enqueues a job for each store
// whose sync interval has elapsed
func (s *SyncScheduler) triggerLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TriggerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.triggerDueStores(ctx)
		}
	}
}

// TriggerDueStores runs one trigger pass immediately. The periodic loop
// calls the same scan on every tick.
func (s *SyncScheduler) TriggerDueStores(ctx context.Context) {
	s.triggerDueStores(ctx)
}

func (s *SyncScheduler) triggerDueStores(ctx context.Context) {
	configs, err := s.stores.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("Failed to list enabled store configs", zap.Error(err))
		return
	}

	now := s.now()
	for i := range configs {
		cfg := configs[i]
		if cfg.LastSyncAt != nil && now.Sub(*cfg.LastSyncAt) < cfg.SyncInterval {
			continue
		}

		job := sync.NewJob(cfg.OrganizationID, cfg.StoreID, cfg.Platform, jobTypeFor(cfg.Direction), s.config.JobMaxRetries)
		if err := s.Submit(ctx, job); err != nil {
			switch err {
			case ErrStoreSyncInProgress:
				// Previous run still going, next tick will pick it up
			case ErrJobQueueFull:
				s.logger.Warn("Sync job queue full, store deferred",
					zap.String("store_id", cfg.StoreID.String()),
				)
			default:
				s.logger.Error("Failed to submit scheduled sync job",
					zap.String("store_id", cfg.StoreID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// stuckJobLoop periodically asks the monitor to flag stuck running jobs
func (s *SyncScheduler) stuckJobLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.StuckJobInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.health.CheckStuckJobs(ctx); err != nil {
				s.logger.Error("Stuck job check failed", zap.Error(err))
			}
		}
	}
}

func jobTypeFor(d sync.Direction) sync.JobType {
	switch d {
	case sync.DirectionPull:
		return sync.JobTypeOrderPull
	case sync.DirectionPush:
		return sync.JobTypeOrderPush
	default:
		return sync.JobTypeBidirectional
	}
}
