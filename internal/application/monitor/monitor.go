package monitor

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/alert"
	"github.com/omnisync/backend/internal/domain/sync"
)

// Config tunes the monitor's notification behavior
type Config struct {
	// EscalationDelay is how long an unacknowledged high or critical alert
	// waits before it is re-notified
	EscalationDelay time.Duration
	// NotifyTimeout bounds one channel delivery
	NotifyTimeout time.Duration
	// FailureScanDepth is how many recent jobs the consecutive-failure scan
	// reads
	FailureScanDepth int
}

// DefaultConfig returns the default monitor tuning
func DefaultConfig() Config {
	return Config{
		EscalationDelay:  30 * time.Minute,
		NotifyTimeout:    10 * time.Second,
		FailureScanDepth: 20,
	}
}

func (c *Config) normalize() {
	if c.EscalationDelay <= 0 {
		c.EscalationDelay = 30 * time.Minute
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	if c.FailureScanDepth <= 0 {
		c.FailureScanDepth = 20
	}
}

// OrderSyncMonitor evaluates every sync result against the organization's
// thresholds and turns breaches into deduplicated alerts with channel
// fan-out. It is the engine's completion hook.
type OrderSyncMonitor struct {
	config     Config
	thresholds ThresholdProvider
	alerts     alert.Repository
	jobs       sync.JobRepository
	channels   alert.ChannelProvider
	senders    map[alert.ChannelKind]alert.Sender
	limiter    alert.NotificationLimiter
	escalator  *Escalator
	logger     *zap.Logger

	now func() time.Time
}

// NewOrderSyncMonitor creates the monitor
func NewOrderSyncMonitor(
	config Config,
	thresholds ThresholdProvider,
	alerts alert.Repository,
	jobs sync.JobRepository,
	channels alert.ChannelProvider,
	senders []alert.Sender,
	limiter alert.NotificationLimiter,
	escalator *Escalator,
	logger *zap.Logger,
) *OrderSyncMonitor {
	config.normalize()
	byKind := make(map[alert.ChannelKind]alert.Sender, len(senders))
	for _, s := range senders {
		byKind[s.Kind()] = s
	}
	return &OrderSyncMonitor{
		config:     config,
		thresholds: thresholds,
		alerts:     alerts,
		jobs:       jobs,
		channels:   channels,
		senders:    byKind,
		limiter:    limiter,
		escalator:  escalator,
		logger:     logger,
		now:        time.Now,
	}
}

// OnSyncCompleted implements sync.CompletionHook. It runs the threshold
// evaluations for one finished sync run. Dry runs are never evaluated.
func (m *OrderSyncMonitor) OnSyncCompleted(ctx context.Context, result *sync.Result) {
	if result == nil || result.DryRun {
		return
	}

	t, err := m.thresholds.ThresholdsFor(ctx, result.OrganizationID)
	if err != nil {
		m.logger.Error("Failed to load monitor thresholds",
			zap.String("organization_id", result.OrganizationID.String()),
			zap.Error(err),
		)
		return
	}

	m.checkErrorRate(ctx, result, t)
	m.checkSyncDelay(ctx, result, t)
	m.checkOrderVolume(ctx, result, t)
	m.checkConsecutiveFailures(ctx, result, t)
}

// checkErrorRate raises a high_error_rate alert when failed/total exceeds
// the limit. Severity scales with how far past the limit the run landed.
func (m *OrderSyncMonitor) checkErrorRate(ctx context.Context, result *sync.Result, t Thresholds) {
	if result.TotalProcessed == 0 || t.MaxErrorRate <= 0 {
		return
	}
	rate := result.ErrorRate()
	if rate <= t.MaxErrorRate {
		return
	}

	// The critical boundary is strict: exactly three times the limit is high
	severity := alert.SeverityMedium
	switch {
	case rate > t.MaxErrorRate*3:
		severity = alert.SeverityCritical
	case rate >= t.MaxErrorRate*2:
		severity = alert.SeverityHigh
	}

	storeID := result.StoreID
	m.raise(ctx, result.OrganizationID, &storeID, alert.TypeHighErrorRate, severity,
		fmt.Sprintf("Sync error rate %.1f%% exceeds limit %.1f%%", rate, t.MaxErrorRate),
		map[string]any{
			"error_rate":      rate,
			"max_error_rate":  t.MaxErrorRate,
			"failed":          result.Failed,
			"total_processed": result.TotalProcessed,
			"platform":        result.Platform,
		})
}

// checkSyncDelay raises a sync_delay alert when the store has not completed
// a sync within the limit
func (m *OrderSyncMonitor) checkSyncDelay(ctx context.Context, result *sync.Result, t Thresholds) {
	if t.MaxSyncDelay <= 0 {
		return
	}
	last, err := m.jobs.LastCompletedAt(ctx, result.StoreID)
	if err != nil {
		m.logger.Error("Failed to read last completion time",
			zap.String("store_id", result.StoreID.String()),
			zap.Error(err),
		)
		return
	}
	if last == nil {
		return
	}
	delay := m.now().Sub(*last)
	if delay <= t.MaxSyncDelay {
		return
	}

	storeID := result.StoreID
	m.raise(ctx, result.OrganizationID, &storeID, alert.TypeSyncDelay, alert.SeverityHigh,
		fmt.Sprintf("No completed sync for %d minutes (limit %d)",
			int(delay.Minutes()), int(t.MaxSyncDelay.Minutes())),
		map[string]any{
			"delay_minutes":     int(delay.Minutes()),
			"max_delay_minutes": int(t.MaxSyncDelay.Minutes()),
			"last_completed_at": last.UTC().Format(time.RFC3339),
			"platform":          result.Platform,
		})
}

// checkOrderVolume raises a low_order_volume alert when fewer orders than
// expected moved during a pull
func (m *OrderSyncMonitor) checkOrderVolume(ctx context.Context, result *sync.Result, t Thresholds) {
	if t.MinOrdersExpected <= 0 || !result.Direction.IncludesPull() {
		return
	}
	moved := result.Imported + result.Updated
	if moved >= t.MinOrdersExpected {
		return
	}

	storeID := result.StoreID
	m.raise(ctx, result.OrganizationID, &storeID, alert.TypeLowOrderVolume, alert.SeverityLow,
		fmt.Sprintf("Only %d orders synced, expected at least %d", moved, t.MinOrdersExpected),
		map[string]any{
			"orders_synced":       moved,
			"min_orders_expected": t.MinOrdersExpected,
			"platform":            result.Platform,
		})
}

// checkConsecutiveFailures scans recent jobs newest first and raises a
// critical sync_failure alert when an unbroken failure streak reaches the
// limit
func (m *OrderSyncMonitor) checkConsecutiveFailures(ctx context.Context, result *sync.Result, t Thresholds) {
	m.evaluateFailureStreak(ctx, result.OrganizationID, result.StoreID, result.Platform, t)
}

// OnJobFailed runs the failure streak evaluation after a job exhausts its
// retries. The scheduler calls this from the terminal failure path, so the
// streak is checked even when the run never produced a sync result.
func (m *OrderSyncMonitor) OnJobFailed(ctx context.Context, job *sync.Job) {
	if job == nil {
		return
	}

	t, err := m.thresholds.ThresholdsFor(ctx, job.OrganizationID)
	if err != nil {
		m.logger.Error("Failed to load monitor thresholds",
			zap.String("organization_id", job.OrganizationID.String()),
			zap.Error(err),
		)
		return
	}

	m.evaluateFailureStreak(ctx, job.OrganizationID, job.StoreID, job.Platform, t)
}

func (m *OrderSyncMonitor) evaluateFailureStreak(ctx context.Context, orgID, storeID uuid.UUID, platform string, t Thresholds) {
	if t.MaxConsecutiveFailures <= 0 {
		return
	}
	recent, err := m.jobs.ListRecent(ctx, storeID, m.config.FailureScanDepth)
	if err != nil {
		m.logger.Error("Failed to scan recent jobs",
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
		return
	}

	streak := 0
	for _, j := range recent {
		// In-flight jobs have no outcome yet and do not break the streak
		if !j.Status.IsTerminal() {
			continue
		}
		if j.Status != sync.JobStatusFailed {
			break
		}
		streak++
	}
	if streak < t.MaxConsecutiveFailures {
		return
	}

	sid := storeID
	m.raise(ctx, orgID, &sid, alert.TypeSyncFailure, alert.SeverityCritical,
		fmt.Sprintf("%d consecutive sync jobs failed", streak),
		map[string]any{
			"consecutive_failures": streak,
			"max_allowed":          t.MaxConsecutiveFailures,
			"platform":             platform,
		})
}

// CheckStuckJobs flags RUNNING jobs older than the organization's sync
// timeout. The scheduler calls this periodically; stuck jobs are surfaced,
// never killed.
func (m *OrderSyncMonitor) CheckStuckJobs(ctx context.Context) error {
	running, err := m.jobs.ListRunningOlderThan(ctx, m.now())
	if err != nil {
		return fmt.Errorf("monitor: failed to list running jobs: %w", err)
	}

	for i := range running {
		j := &running[i]
		t, err := m.thresholds.ThresholdsFor(ctx, j.OrganizationID)
		if err != nil {
			m.logger.Error("Failed to load monitor thresholds",
				zap.String("organization_id", j.OrganizationID.String()),
				zap.Error(err),
			)
			continue
		}
		if t.SyncTimeout <= 0 {
			continue
		}
		runningFor := j.RunningFor(m.now())
		if runningFor <= t.SyncTimeout {
			continue
		}

		storeID := j.StoreID
		m.raise(ctx, j.OrganizationID, &storeID, alert.TypeStuckJob, alert.SeverityHigh,
			fmt.Sprintf("Sync job running for %d minutes (timeout %d)",
				int(runningFor.Minutes()), int(t.SyncTimeout.Minutes())),
			map[string]any{
				"job_id":          j.ID.String(),
				"running_minutes": int(runningFor.Minutes()),
				"timeout_minutes": int(t.SyncTimeout.Minutes()),
				"platform":        j.Platform,
			})
	}
	return nil
}

// raise creates or merges an alert for (org, store, type) and fans out
// notifications for new records. Repeats merge into the unresolved record
// without re-notifying; escalation covers prolonged breaches.
func (m *OrderSyncMonitor) raise(ctx context.Context, orgID uuid.UUID, storeID *uuid.UUID, t alert.Type, severity alert.Severity, message string, details map[string]any) {
	existing, err := m.alerts.FindUnresolved(ctx, orgID, storeID, t)
	if err != nil {
		m.logger.Error("Failed to look up unresolved alert",
			zap.String("alert_type", t.String()),
			zap.Error(err),
		)
		return
	}

	if existing != nil {
		if err := existing.Merge(severity, message, details); err != nil {
			m.logger.Error("Failed to merge alert occurrence",
				zap.String("alert_id", existing.ID.String()),
				zap.Error(err),
			)
			return
		}
		if err := m.alerts.Save(ctx, existing); err != nil {
			m.logger.Error("Failed to save merged alert",
				zap.String("alert_id", existing.ID.String()),
				zap.Error(err),
			)
		}
		return
	}

	a := alert.New(t, severity, orgID, storeID, message, details)
	if err := m.alerts.Save(ctx, a); err != nil {
		m.logger.Error("Failed to save alert",
			zap.String("alert_type", t.String()),
			zap.Error(err),
		)
		return
	}

	m.logger.Warn("Alert raised",
		zap.String("alert_id", a.ID.String()),
		zap.String("alert_type", t.String()),
		zap.String("severity", severity.String()),
		zap.String("organization_id", orgID.String()),
	)

	m.notify(ctx, a)

	if m.escalator != nil && severity.AtLeast(alert.SeverityHigh) {
		m.escalator.Schedule(a.ID, m.config.EscalationDelay, func() {
			m.escalate(a.ID)
		})
	}
}

// notify fans the alert out to every matching enabled channel in parallel.
// A channel failure never blocks the others.
func (m *OrderSyncMonitor) notify(ctx context.Context, a *alert.Alert) {
	allowed, err := m.limiter.Allow(ctx, a.OrganizationID, a.Type, a.Severity)
	if err != nil {
		m.logger.Error("Notification limiter failed", zap.Error(err))
		return
	}
	if !allowed {
		m.logger.Info("Notification suppressed by rate limit",
			zap.String("alert_id", a.ID.String()),
			zap.String("alert_type", a.Type.String()),
		)
		return
	}

	configs, err := m.channels.ChannelsFor(ctx, a.OrganizationID)
	if err != nil {
		m.logger.Error("Failed to load notification channels",
			zap.String("organization_id", a.OrganizationID.String()),
			zap.Error(err),
		)
		return
	}

	var (
		wg gosync.WaitGroup
		mu gosync.Mutex
	)
	for _, ch := range configs {
		if !ch.Accepts(a) {
			continue
		}
		sender, ok := m.senders[ch.Kind]
		if !ok {
			m.logger.Warn("No sender registered for channel kind",
				zap.String("channel", ch.Name),
				zap.String("kind", string(ch.Kind)),
			)
			continue
		}

		wg.Add(1)
		go func(ch alert.ChannelConfig, sender alert.Sender) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.NotifyTimeout)
			defer cancel()

			if err := sender.Send(sendCtx, ch, a); err != nil {
				m.logger.Error("Notification delivery failed",
					zap.String("alert_id", a.ID.String()),
					zap.String("channel", ch.Name),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			a.RecordNotification(ch.Name)
			mu.Unlock()
		}(ch, sender)
	}
	wg.Wait()

	if len(a.NotificationsSent) > 0 {
		if err := m.alerts.Save(ctx, a); err != nil {
			m.logger.Error("Failed to record sent notifications",
				zap.String("alert_id", a.ID.String()),
				zap.Error(err),
			)
		}
	}
}

// escalate re-notifies an alert that is still unresolved and unacknowledged
// after the escalation delay, then schedules the next round
func (m *OrderSyncMonitor) escalate(alertID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.NotifyTimeout*2)
	defer cancel()

	a, err := m.alerts.FindByID(ctx, alertID)
	if err != nil || a == nil {
		return
	}
	if a.IsResolved() || a.AcknowledgedAt != nil {
		return
	}

	m.logger.Warn("Escalating unacknowledged alert",
		zap.String("alert_id", a.ID.String()),
		zap.String("alert_type", a.Type.String()),
		zap.Int("occurrences", a.Occurrences),
	)
	m.notify(ctx, a)

	if m.escalator != nil {
		m.escalator.Schedule(a.ID, m.config.EscalationDelay, func() {
			m.escalate(a.ID)
		})
	}
}

// ResolveAlert resolves an alert and cancels any pending escalation
func (m *OrderSyncMonitor) ResolveAlert(ctx context.Context, alertID uuid.UUID) error {
	a, err := m.alerts.FindByID(ctx, alertID)
	if err != nil {
		return err
	}
	if a == nil {
		return alert.ErrAlertNotFound
	}
	if err := a.Resolve(); err != nil {
		return err
	}
	if err := m.alerts.Save(ctx, a); err != nil {
		return err
	}
	if m.escalator != nil {
		m.escalator.Cancel(alertID)
	}
	return nil
}

// AcknowledgeAlert acknowledges an alert and cancels any pending escalation
func (m *OrderSyncMonitor) AcknowledgeAlert(ctx context.Context, alertID uuid.UUID) error {
	a, err := m.alerts.FindByID(ctx, alertID)
	if err != nil {
		return err
	}
	if a == nil {
		return alert.ErrAlertNotFound
	}
	a.Acknowledge()
	if err := m.alerts.Save(ctx, a); err != nil {
		return err
	}
	if m.escalator != nil {
		m.escalator.Cancel(alertID)
	}
	return nil
}

// Ensure the monitor satisfies the engine's completion hook
var _ sync.CompletionHook = (*OrderSyncMonitor)(nil)
