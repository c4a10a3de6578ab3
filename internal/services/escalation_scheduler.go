package services

import (
	"context"
	"sync"
	"time"

	"github.com/grcplane/grcplane-core/internal/metrics"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// EscalateFunc advances a chain one level. The scheduler holds one so the
// escalation service can bind itself after construction without a circular
// dependency.
type EscalateFunc func(ctx context.Context, chainID, actorID string) error

// EscalationScheduler keeps at most one pending timer per chain id. Timers
// are process-local; persisted chain state stays authoritative and a recovery
// sweep re-arms timers after a restart.
type EscalationScheduler struct {
	mu        sync.Mutex
	timers    map[string]*time.Timer
	escalate  EscalateFunc
	logger    logger.Logger
	now       func() time.Time
	fireCtx   func() context.Context
}

func NewEscalationScheduler(logger logger.Logger) *EscalationScheduler {
	return &EscalationScheduler{
		timers:  map[string]*time.Timer{},
		logger:  logger,
		now:     time.Now,
		fireCtx: context.Background,
	}
}

// Bind sets the escalate callback. Must be called before the first Arm.
func (s *EscalationScheduler) Bind(fn EscalateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalate = fn
}

// Arm schedules an escalation for the chain at fireAt, replacing any prior
// timer for the same chain. A deadline already in the past fires immediately
// and synchronously.
func (s *EscalationScheduler) Arm(chainID, actorID string, fireAt time.Time) {
	s.mu.Lock()
	if s.escalate == nil {
		s.mu.Unlock()
		s.logger.Error("Scheduler armed before Bind; dropping timer", "chainId", chainID)
		return
	}

	delay := fireAt.Sub(s.now())
	if delay <= 0 {
		s.mu.Unlock()
		s.logger.Info("Escalation overdue, firing immediately", "chainId", chainID)
		s.fire(chainID, actorID)
		return
	}

	if prior, ok := s.timers[chainID]; ok {
		prior.Stop()
		metrics.SchedulerTimers.WithLabelValues("replace").Inc()
	} else {
		metrics.SchedulerTimers.WithLabelValues("arm").Inc()
	}

	s.timers[chainID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, chainID)
		s.mu.Unlock()
		s.fire(chainID, actorID)
	})
	s.mu.Unlock()

	s.logger.Info("Scheduled escalation", "chainId", chainID, "in", delay.String())
}

// Disarm cancels the chain's timer if one exists. Disarming an unknown chain
// is not an error.
func (s *EscalationScheduler) Disarm(chainID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[chainID]; ok {
		t.Stop()
		delete(s.timers, chainID)
		metrics.SchedulerTimers.WithLabelValues("disarm").Inc()
		s.logger.Info("Cancelled scheduled escalation", "chainId", chainID)
	}
}

// Pending reports whether a timer is currently armed for the chain.
func (s *EscalationScheduler) Pending(chainID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[chainID]
	return ok
}

// fire runs the bound escalate callback. A background timer has no caller to
// report to, so failures are logged and swallowed.
func (s *EscalationScheduler) fire(chainID, actorID string) {
	metrics.SchedulerTimers.WithLabelValues("fire").Inc()
	if err := s.escalate(s.fireCtx(), chainID, actorID); err != nil {
		s.logger.Error("Scheduled escalation failed", "chainId", chainID, "error", err)
	}
}
