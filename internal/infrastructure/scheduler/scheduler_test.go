package scheduler

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/omnisync/backend/internal/application/sync"
	"github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// testConfig returns a config with periodic loops off and fast retries
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.RetryBaseDelay = 10 * time.Millisecond
	cfg.RetryMaxDelay = 100 * time.Millisecond
	return cfg
}

func testStoreConfig(storeID uuid.UUID) sync.StoreConfig {
	return sync.StoreConfig{
		StoreID:        storeID,
		OrganizationID: uuid.New(),
		Platform:       "shopee",
		Enabled:        true,
		Direction:      sync.DirectionBidirectional,
		SyncInterval:   15 * time.Minute,
	}
}

// stubRunner implements SyncRunner for testing
type stubRunner struct {
	mu       gosync.Mutex
	calls    int32
	storeIDs []uuid.UUID
	runFunc  func(ctx context.Context, cfg sync.StoreConfig, opts appsync.Options) (*sync.Result, error)
}

func (r *stubRunner) SyncStore(ctx context.Context, cfg sync.StoreConfig, opts appsync.Options) (*sync.Result, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.storeIDs = append(r.storeIDs, cfg.StoreID)
	r.mu.Unlock()
	if r.runFunc != nil {
		return r.runFunc(ctx, cfg, opts)
	}
	return &sync.Result{TotalProcessed: 10}, nil
}

func (r *stubRunner) callCount() int32 {
	return atomic.LoadInt32(&r.calls)
}

// memoryJobRepo implements sync.JobRepository for testing
type memoryJobRepo struct {
	mu   gosync.Mutex
	jobs map[uuid.UUID]sync.Job
}

func newMemoryJobRepo() *memoryJobRepo {
	return &memoryJobRepo{jobs: make(map[uuid.UUID]sync.Job)}
}

func (r *memoryJobRepo) Save(_ context.Context, job *sync.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepo) FindByID(_ context.Context, id uuid.UUID) (*sync.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sync.ErrJobNotFound
	}
	return &job, nil
}

func (r *memoryJobRepo) ListRecent(_ context.Context, storeID uuid.UUID, limit int) ([]sync.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sync.Job
	for _, job := range r.jobs {
		if job.StoreID == storeID {
			out = append(out, job)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryJobRepo) ListRunningOlderThan(_ context.Context, cutoff time.Time) ([]sync.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sync.Job
	for _, job := range r.jobs {
		if job.Status == sync.JobStatusRunning && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			out = append(out, job)
		}
	}
	return out, nil
}

func (r *memoryJobRepo) LastCompletedAt(_ context.Context, storeID uuid.UUID) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *time.Time
	for _, job := range r.jobs {
		if job.StoreID == storeID && job.Status == sync.JobStatusCompleted && job.CompletedAt != nil {
			if latest == nil || job.CompletedAt.After(*latest) {
				t := *job.CompletedAt
				latest = &t
			}
		}
	}
	return latest, nil
}

func (r *memoryJobRepo) status(id uuid.UUID) sync.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id].Status
}

// memoryStoreRepo implements sync.StoreConfigRepository for testing
type memoryStoreRepo struct {
	mu       gosync.Mutex
	configs  map[uuid.UUID]sync.StoreConfig
	lastSync map[uuid.UUID]time.Time
}

func newMemoryStoreRepo(configs ...sync.StoreConfig) *memoryStoreRepo {
	r := &memoryStoreRepo{
		configs:  make(map[uuid.UUID]sync.StoreConfig),
		lastSync: make(map[uuid.UUID]time.Time),
	}
	for _, cfg := range configs {
		r.configs[cfg.StoreID] = cfg
	}
	return r
}

func (r *memoryStoreRepo) FindByStore(_ context.Context, storeID uuid.UUID) (*sync.StoreConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[storeID]
	if !ok {
		return nil, sync.ErrStoreConfigNotFound
	}
	return &cfg, nil
}

func (r *memoryStoreRepo) ListEnabled(_ context.Context) ([]sync.StoreConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sync.StoreConfig
	for _, cfg := range r.configs {
		if cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (r *memoryStoreRepo) UpdateLastSyncAt(_ context.Context, storeID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSync[storeID] = at
	return nil
}

func (r *memoryStoreRepo) lastSyncRecorded(storeID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.lastSync[storeID]
	return ok
}

// stubHealthChecker implements HealthChecker for testing
type stubHealthChecker struct {
	stuckCalls  int32
	failedCalls int32
	mu          gosync.Mutex
	failedJobs  []uuid.UUID
}

func (c *stubHealthChecker) CheckStuckJobs(_ context.Context) error {
	atomic.AddInt32(&c.stuckCalls, 1)
	return nil
}

func (c *stubHealthChecker) OnJobFailed(_ context.Context, job *sync.Job) {
	atomic.AddInt32(&c.failedCalls, 1)
	c.mu.Lock()
	c.failedJobs = append(c.failedJobs, job.ID)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"Valid default config", func(c *Config) {}, false},
		{"Zero workers", func(c *Config) { c.MaxConcurrentSyncs = 0 }, true},
		{"Zero queue size", func(c *Config) { c.QueueSize = 0 }, true},
		{"Zero job timeout", func(c *Config) { c.JobTimeout = 0 }, true},
		{"Zero trigger interval", func(c *Config) { c.TriggerInterval = 0 }, true},
		{"Negative retry budget", func(c *Config) { c.JobMaxRetries = -1 }, true},
		{"Max delay below base delay", func(c *Config) { c.RetryMaxDelay = c.RetryBaseDelay / 2 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSyncScheduler_InvalidConfig(t *testing.T) {
	cfg := Config{MaxConcurrentSyncs: 0}

	sched, err := NewSyncScheduler(cfg, &stubRunner{}, newMemoryJobRepo(), newMemoryStoreRepo(), nil, newTestLogger())

	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, sched)
}

// ---------------------------------------------------------------------------
// Scheduler Tests
// ---------------------------------------------------------------------------

func TestSyncScheduler_StartStop(t *testing.T) {
	sched, err := NewSyncScheduler(testConfig(), &stubRunner{}, newMemoryJobRepo(), newMemoryStoreRepo(), nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, sched.Start(ctx))
	// Start again is idempotent
	require.NoError(t, sched.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(stopCtx))
	// Stop again is idempotent
	require.NoError(t, sched.Stop(stopCtx))
}

func TestSyncScheduler_Submit_NotRunning(t *testing.T) {
	sched, err := NewSyncScheduler(testConfig(), &stubRunner{}, newMemoryJobRepo(), newMemoryStoreRepo(), nil, newTestLogger())
	require.NoError(t, err)

	job := sync.NewJob(uuid.New(), uuid.New(), "shopee", sync.JobTypeOrderPull, 3)

	assert.ErrorIs(t, sched.Submit(context.Background(), job), ErrSchedulerNotRunning)
}

func TestSyncScheduler_Submit_ProcessesJob(t *testing.T) {
	storeID := uuid.New()
	runner := &stubRunner{
		runFunc: func(_ context.Context, _ sync.StoreConfig, _ appsync.Options) (*sync.Result, error) {
			return &sync.Result{TotalProcessed: 10, Failed: 2}, nil
		},
	}
	jobRepo := newMemoryJobRepo()
	storeRepo := newMemoryStoreRepo(testStoreConfig(storeID))

	sched, err := NewSyncScheduler(testConfig(), runner, jobRepo, storeRepo, nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	job := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 3)
	require.NoError(t, sched.Submit(ctx, job))

	require.Eventually(t, func() bool {
		return jobRepo.status(job.ID) == sync.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	saved, err := jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, saved.ItemsTotal)
	assert.Equal(t, 2, saved.ItemsFailed)
	assert.True(t, storeRepo.lastSyncRecorded(storeID))
	assert.Equal(t, int32(1), runner.callCount())
}

func TestSyncScheduler_Submit_DeduplicatesStore(t *testing.T) {
	storeID := uuid.New()
	release := make(chan struct{})
	runner := &stubRunner{
		runFunc: func(ctx context.Context, _ sync.StoreConfig, _ appsync.Options) (*sync.Result, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &sync.Result{}, nil
		},
	}
	jobRepo := newMemoryJobRepo()
	storeRepo := newMemoryStoreRepo(testStoreConfig(storeID))

	sched, err := NewSyncScheduler(testConfig(), runner, jobRepo, storeRepo, nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	first := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 3)
	require.NoError(t, sched.Submit(ctx, first))

	second := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 3)
	assert.ErrorIs(t, sched.Submit(ctx, second), ErrStoreSyncInProgress)

	close(release)

	// The claim is released once the first job finishes
	require.Eventually(t, func() bool {
		third := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 3)
		return sched.Submit(ctx, third) == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncScheduler_Submit_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentSyncs = 1
	cfg.QueueSize = 1

	started := make(chan struct{})
	release := make(chan struct{})
	runner := &stubRunner{
		runFunc: func(ctx context.Context, _ sync.StoreConfig, _ appsync.Options) (*sync.Result, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &sync.Result{}, nil
		},
	}
	defer close(release)

	storeA, storeB, storeC := uuid.New(), uuid.New(), uuid.New()
	storeRepo := newMemoryStoreRepo(testStoreConfig(storeA), testStoreConfig(storeB), testStoreConfig(storeC))

	sched, err := NewSyncScheduler(cfg, runner, newMemoryJobRepo(), storeRepo, nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	// First job occupies the single worker
	require.NoError(t, sched.Submit(ctx, sync.NewJob(uuid.New(), storeA, "shopee", sync.JobTypeOrderPull, 3)))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first job")
	}

	// Second job fills the queue, third is rejected
	require.NoError(t, sched.Submit(ctx, sync.NewJob(uuid.New(), storeB, "shopee", sync.JobTypeOrderPull, 3)))
	assert.ErrorIs(t, sched.Submit(ctx, sync.NewJob(uuid.New(), storeC, "shopee", sync.JobTypeOrderPull, 3)), ErrJobQueueFull)
}

func TestSyncScheduler_JobRetry(t *testing.T) {
	storeID := uuid.New()
	callCount := int32(0)
	runner := &stubRunner{
		runFunc: func(_ context.Context, _ sync.StoreConfig, _ appsync.Options) (*sync.Result, error) {
			if atomic.AddInt32(&callCount, 1) < 3 {
				return nil, errors.New("temporary failure")
			}
			return &sync.Result{TotalProcessed: 5}, nil
		},
	}
	jobRepo := newMemoryJobRepo()
	storeRepo := newMemoryStoreRepo(testStoreConfig(storeID))

	sched, err := NewSyncScheduler(testConfig(), runner, jobRepo, storeRepo, nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	job := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 5)
	require.NoError(t, sched.Submit(ctx, job))

	require.Eventually(t, func() bool {
		return jobRepo.status(job.ID) == sync.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	// Two failures plus the successful run
	assert.Equal(t, int32(3), atomic.LoadInt32(&callCount))
	saved, err := jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.RetryCount)
	assert.Equal(t, 5, saved.ItemsTotal)
}

func TestSyncScheduler_JobFailure_NoRetryBudget(t *testing.T) {
	storeID := uuid.New()
	runner := &stubRunner{
		runFunc: func(_ context.Context, _ sync.StoreConfig, _ appsync.Options) (*sync.Result, error) {
			return nil, errors.New("permanent failure")
		},
	}
	jobRepo := newMemoryJobRepo()
	storeRepo := newMemoryStoreRepo(testStoreConfig(storeID))
	checker := &stubHealthChecker{}

	sched, err := NewSyncScheduler(testConfig(), runner, jobRepo, storeRepo, checker, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	job := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 0)
	require.NoError(t, sched.Submit(ctx, job))

	require.Eventually(t, func() bool {
		return jobRepo.status(job.ID) == sync.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	saved, err := jobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "permanent failure", saved.Error)
	assert.False(t, storeRepo.lastSyncRecorded(storeID))
	assert.Equal(t, int32(1), runner.callCount())

	// The terminal failure is reported to the health checker
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&checker.failedCalls) == 1
	}, 2*time.Second, 10*time.Millisecond)
	checker.mu.Lock()
	defer checker.mu.Unlock()
	assert.Equal(t, []uuid.UUID{job.ID}, checker.failedJobs)
}

func TestSyncScheduler_StopDuringRetryRequeue(t *testing.T) {
	storeID := uuid.New()
	started := make(chan struct{})
	runner := &stubRunner{
		runFunc: func(ctx context.Context, _ sync.StoreConfig, _ appsync.Options) (*sync.Result, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			// Fail once the scheduler begins shutting down, so the retry
			// requeue races Stop
			<-ctx.Done()
			return nil, errors.New("interrupted")
		},
	}
	jobRepo := newMemoryJobRepo()
	storeRepo := newMemoryStoreRepo(testStoreConfig(storeID))

	sched, err := NewSyncScheduler(testConfig(), runner, jobRepo, storeRepo, nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))

	job := sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 3)
	require.NoError(t, sched.Submit(ctx, job))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the job")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(stopCtx))

	// The requeue was refused, not panicked, and a fresh submit is rejected
	assert.ErrorIs(t, sched.Submit(ctx, sync.NewJob(uuid.New(), storeID, "shopee", sync.JobTypeOrderPull, 3)), ErrSchedulerNotRunning)
}

func TestSyncScheduler_TriggerDueStores(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	stale := time.Now().Add(-time.Hour)

	due := testStoreConfig(uuid.New())

	notDue := testStoreConfig(uuid.New())
	notDue.LastSyncAt = &recent

	overdue := testStoreConfig(uuid.New())
	overdue.LastSyncAt = &stale
	overdue.Direction = sync.DirectionPull

	disabled := testStoreConfig(uuid.New())
	disabled.Enabled = false

	runner := &stubRunner{}
	jobRepo := newMemoryJobRepo()
	storeRepo := newMemoryStoreRepo(due, notDue, overdue, disabled)

	sched, err := NewSyncScheduler(testConfig(), runner, jobRepo, storeRepo, nil, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	sched.TriggerDueStores(ctx)

	require.Eventually(t, func() bool {
		return runner.callCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	runner.mu.Lock()
	synced := append([]uuid.UUID(nil), runner.storeIDs...)
	runner.mu.Unlock()
	assert.ElementsMatch(t, []uuid.UUID{due.StoreID, overdue.StoreID}, synced)

	// The job type follows the store's configured direction
	pullJobs, err := jobRepo.ListRecent(ctx, overdue.StoreID, 10)
	require.NoError(t, err)
	require.Len(t, pullJobs, 1)
	assert.Equal(t, sync.JobTypeOrderPull, pullJobs[0].JobType)

	bidiJobs, err := jobRepo.ListRecent(ctx, due.StoreID, 10)
	require.NoError(t, err)
	require.Len(t, bidiJobs, 1)
	assert.Equal(t, sync.JobTypeBidirectional, bidiJobs[0].JobType)
}

func TestSyncScheduler_StuckJobLoop(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = true
	cfg.TriggerInterval = time.Hour
	cfg.StuckJobInterval = 20 * time.Millisecond

	checker := &stubHealthChecker{}

	sched, err := NewSyncScheduler(cfg, &stubRunner{}, newMemoryJobRepo(), newMemoryStoreRepo(), checker, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&checker.stuckCalls) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
