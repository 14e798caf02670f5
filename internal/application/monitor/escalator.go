package monitor

import (
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Escalator schedules delayed re-notification of unacknowledged alerts.
// Each alert has at most one pending escalation; scheduling again replaces
// it, and resolving or acknowledging the alert cancels it.
type Escalator struct {
	logger *zap.Logger

	mu      gosync.Mutex
	pending map[uuid.UUID]*time.Timer
	closed  bool
}

// NewEscalator creates an escalator
func NewEscalator(logger *zap.Logger) *Escalator {
	return &Escalator{
		logger:  logger,
		pending: make(map[uuid.UUID]*time.Timer),
	}
}

// Schedule arranges fn to run after delay unless the alert's escalation is
// cancelled first
func (e *Escalator) Schedule(alertID uuid.UUID, delay time.Duration, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if timer, ok := e.pending[alertID]; ok {
		timer.Stop()
	}
	e.pending[alertID] = time.AfterFunc(delay, func() {
		e.mu.Lock()
		delete(e.pending, alertID)
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		fn()
	})
	e.logger.Debug("Scheduled alert escalation",
		zap.String("alert_id", alertID.String()),
		zap.Duration("delay", delay),
	)
}

// Cancel drops the pending escalation for an alert, if any
func (e *Escalator) Cancel(alertID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if timer, ok := e.pending[alertID]; ok {
		timer.Stop()
		delete(e.pending, alertID)
	}
}

// PendingCount returns how many escalations are waiting
func (e *Escalator) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Close cancels all pending escalations and rejects new ones
func (e *Escalator) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for id, timer := range e.pending {
		timer.Stop()
		delete(e.pending, id)
	}
}
