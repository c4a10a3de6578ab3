package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grcplane/grcplane-core/internal/metrics"
	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
	"github.com/grcplane/grcplane-core/internal/tracing"
	"github.com/grcplane/grcplane-core/pkg/cache"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// SystemActor is the actor id recorded for engine-initiated operations.
// It bypasses the user directory lookup.
const SystemActor = "system"

const statisticsCacheKey = "escalation:statistics"

// EscalationService owns the lifecycle of escalation chains: ladder
// validation, timed level transitions, history, and the terminal
// resolve/cancel transitions. Each chain is guarded by its own mutex so a
// timer fire racing a manual resolve observes the terminal state and fails
// cleanly instead of corrupting the chain.
type EscalationService struct {
	chains   repo.EscalationChainStore
	alerts   repo.AlertStore
	users    repo.UserStore
	sched    *EscalationScheduler
	workflow WorkflowTrigger
	cache    cache.Valkey
	tracer   *tracing.EngineTracer
	logger   logger.Logger
	cacheTTL time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEscalationService(
	chains repo.EscalationChainStore,
	alerts repo.AlertStore,
	users repo.UserStore,
	sched *EscalationScheduler,
	workflow WorkflowTrigger,
	valkey cache.Valkey,
	tracer *tracing.EngineTracer,
	logger logger.Logger,
) *EscalationService {
	s := &EscalationService{
		chains:   chains,
		alerts:   alerts,
		users:    users,
		sched:    sched,
		workflow: workflow,
		cache:    valkey,
		tracer:   tracer,
		logger:   logger,
		cacheTTL: 60 * time.Second,
		now:      time.Now,
		locks:    map[string]*sync.Mutex{},
	}
	sched.Bind(func(ctx context.Context, chainID, actorID string) error {
		_, err := s.Escalate(ctx, chainID, actorID)
		return err
	})
	return s
}

// chainLock returns the mutex guarding one chain's read-modify-write cycle.
func (s *EscalationService) chainLock(chainID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[chainID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chainID] = l
	}
	return l
}

func (s *EscalationService) requireActor(ctx context.Context, actorID string) error {
	if actorID == SystemActor {
		return nil
	}
	ok, err := s.users.Exists(ctx, actorID)
	if err != nil {
		return fmt.Errorf("lookup user %s: %w", actorID, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", actorID, models.ErrNotFound)
	}
	return nil
}

// CreateChain validates the ladder, persists a PENDING chain at level 0, and
// arms the scheduler for the first level.
func (s *EscalationService) CreateChain(ctx context.Context, req *models.CreateEscalationChainRequest, actorID string) (*models.EscalationChain, error) {
	s.logger.Info("Creating escalation chain", "alertId", req.AlertID)

	if err := s.requireActor(ctx, actorID); err != nil {
		return nil, err
	}

	if _, err := s.alerts.GetByID(ctx, req.AlertID); err != nil {
		return nil, err
	}

	ladder, err := validateLadder(req.Rules)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := now.Add(time.Duration(ladder[0].DelayMinutes) * time.Minute)

	chain := &models.EscalationChain{
		ID:               uuid.NewString(),
		AlertID:          req.AlertID,
		AlertRuleID:      req.AlertRuleID,
		Status:           models.EscalationStatusPending,
		CurrentLevel:     0,
		MaxLevels:        len(ladder),
		Rules:            ladder,
		NextEscalationAt: &next,
		History:          []models.EscalationHistoryEntry{},
		Notes:            req.Notes,
		CreatedBy:        actorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.chains.Create(ctx, chain); err != nil {
		return nil, fmt.Errorf("persist escalation chain: %w", err)
	}

	metrics.EscalationChainsActive.Inc()
	s.sched.Arm(chain.ID, chain.CreatedBy, next)

	return chain, nil
}

// validateLadder sorts the caller-supplied rules and enforces dense 1-based
// contiguity. The input slice is not mutated.
func validateLadder(rules []models.EscalationLevelRule) ([]models.EscalationLevelRule, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one escalation rule is required: %w", models.ErrInvalidArgument)
	}

	ladder := make([]models.EscalationLevelRule, len(rules))
	copy(ladder, rules)
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Level < ladder[j].Level })

	for i := range ladder {
		if ladder[i].Level != i+1 {
			return nil, fmt.Errorf("escalation rule levels must be sequential starting from 1: %w", models.ErrInvalidArgument)
		}
	}
	return ladder, nil
}

// Escalate advances the chain to its next level. The state transition is
// persisted before side effects; workflow trigger failures are logged and
// absorbed because the role assignment has already succeeded.
func (s *EscalationService) Escalate(ctx context.Context, chainID, actorID string) (*models.EscalationChain, error) {
	chain, err := s.escalateLocked(ctx, chainID, actorID)
	if err != nil {
		return nil, err
	}

	// Re-arm outside the chain lock: an immediate (zero-delay) next level
	// fires synchronously and re-enters Escalate.
	if chain.NextEscalationAt != nil {
		s.sched.Arm(chain.ID, chain.CreatedBy, *chain.NextEscalationAt)
	} else {
		s.sched.Disarm(chain.ID)
	}
	return chain, nil
}

func (s *EscalationService) escalateLocked(ctx context.Context, chainID, actorID string) (*models.EscalationChain, error) {
	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	s.logger.Info("Escalating chain", "chainId", chainID, "actor", actorID)

	chain, err := s.chains.GetByID(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if chain.Status.Terminal() {
		return nil, fmt.Errorf("cannot escalate a %s escalation chain: %w", chain.Status, models.ErrInvalidArgument)
	}

	nextLevel := chain.CurrentLevel + 1
	if nextLevel > chain.MaxLevels {
		return nil, fmt.Errorf("maximum escalation level reached: %w", models.ErrInvalidArgument)
	}
	if nextLevel > len(chain.Rules) {
		return nil, fmt.Errorf("no escalation rule defined for level %d: %w", nextLevel, models.ErrInvalidArgument)
	}
	rule := chain.Rules[nextLevel-1]

	ctx, span := s.tracer.StartEscalationSpan(ctx, chainID, nextLevel)
	defer span.End()

	now := s.now()
	chain.CurrentLevel = nextLevel
	chain.Status = models.EscalationStatusEscalated
	chain.History = append(chain.History, models.EscalationHistoryEntry{
		Level:             nextLevel,
		EscalatedAt:       now,
		EscalatedToRoles:  rule.Roles,
		NotificationsSent: []string{},
	})

	// Each level's delay counts from this fire, not from chain creation.
	if nextLevel < chain.MaxLevels {
		next := now.Add(time.Duration(chain.Rules[nextLevel].DelayMinutes) * time.Minute)
		chain.NextEscalationAt = &next
	} else {
		chain.NextEscalationAt = nil
	}
	chain.UpdatedAt = now

	if err := s.chains.Update(ctx, chain); err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("persist escalation: %w", err)
	}

	metrics.EscalationsFired.WithLabelValues(strconv.Itoa(nextLevel)).Inc()

	if rule.WorkflowID != "" {
		s.triggerWorkflow(ctx, chain, rule.WorkflowID, nextLevel)
	}

	return chain, nil
}

// triggerWorkflow is best-effort: the level transition is already durable, so
// a workflow failure must not surface to the caller of Escalate.
func (s *EscalationService) triggerWorkflow(ctx context.Context, chain *models.EscalationChain, workflowID string, level int) {
	ctx, span := s.tracer.StartWorkflowSpan(ctx, workflowID, chain.ID)
	defer span.End()

	execID, err := s.workflow.Trigger(ctx, workflowID, map[string]interface{}{
		"chain_id": chain.ID,
		"alert_id": chain.AlertID,
		"level":    level,
	})
	if err != nil {
		tracing.RecordError(span, err)
		s.logger.Warn("Escalation workflow trigger failed", "chainId", chain.ID, "workflowId", workflowID, "error", err)
		return
	}

	chain.WorkflowExecutionID = execID
	chain.History[len(chain.History)-1].WorkflowExecutionID = execID
	if err := s.chains.Update(ctx, chain); err != nil {
		s.logger.Error("Failed to record workflow execution on chain", "chainId", chain.ID, "error", err)
	}
	s.logger.Info("Triggered escalation workflow", "chainId", chain.ID, "workflowId", workflowID, "executionId", execID)
}

// Resolve terminates the chain from any non-terminal state.
func (s *EscalationService) Resolve(ctx context.Context, chainID, resolutionNotes, actorID string) (*models.EscalationChain, error) {
	if err := s.requireActor(ctx, actorID); err != nil {
		return nil, err
	}

	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	s.logger.Info("Resolving escalation chain", "chainId", chainID)

	chain, err := s.chains.GetByID(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if chain.Status.Terminal() {
		return nil, fmt.Errorf("cannot resolve a %s escalation chain: %w", chain.Status, models.ErrInvalidArgument)
	}

	now := s.now()
	chain.Status = models.EscalationStatusResolved
	chain.Notes = resolutionNotes
	chain.ResolvedBy = actorID
	chain.ResolvedAt = &now
	chain.NextEscalationAt = nil
	chain.UpdatedAt = now

	if err := s.chains.Update(ctx, chain); err != nil {
		return nil, fmt.Errorf("persist chain resolution: %w", err)
	}

	s.sched.Disarm(chainID)
	metrics.EscalationChainsActive.Dec()
	return chain, nil
}

// Cancel terminates the chain without resolution notes.
func (s *EscalationService) Cancel(ctx context.Context, chainID, actorID string) (*models.EscalationChain, error) {
	if err := s.requireActor(ctx, actorID); err != nil {
		return nil, err
	}

	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	s.logger.Info("Cancelling escalation chain", "chainId", chainID)

	chain, err := s.chains.GetByID(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if chain.Status.Terminal() {
		return nil, fmt.Errorf("cannot cancel a %s escalation chain: %w", chain.Status, models.ErrInvalidArgument)
	}

	now := s.now()
	chain.Status = models.EscalationStatusCancelled
	chain.NextEscalationAt = nil
	chain.UpdatedAt = now

	if err := s.chains.Update(ctx, chain); err != nil {
		return nil, fmt.Errorf("persist chain cancellation: %w", err)
	}

	s.sched.Disarm(chainID)
	metrics.EscalationChainsActive.Dec()
	return chain, nil
}

func (s *EscalationService) GetChain(ctx context.Context, id string) (*models.EscalationChain, error) {
	return s.chains.GetByID(ctx, id)
}

// GetAlertChains returns every chain for an alert, newest first.
func (s *EscalationService) GetAlertChains(ctx context.Context, alertID string) ([]*models.EscalationChain, error) {
	return s.chains.ListByAlert(ctx, alertID)
}

// GetActiveChains returns PENDING and IN_PROGRESS chains most urgent first.
func (s *EscalationService) GetActiveChains(ctx context.Context) ([]*models.EscalationChain, error) {
	return s.chains.ListByStatuses(ctx, models.EscalationStatusPending, models.EscalationStatusInProgress)
}

// GetActiveChainsBySeverity filters active chains by their parent alert's
// severity.
func (s *EscalationService) GetActiveChainsBySeverity(ctx context.Context, severity models.AlertSeverity) ([]*models.EscalationChain, error) {
	active, err := s.GetActiveChains(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.EscalationChain, 0, len(active))
	for _, chain := range active {
		alert, err := s.alerts.GetByID(ctx, chain.AlertID)
		if err != nil {
			s.logger.Warn("Skipping chain with unresolvable alert", "chainId", chain.ID, "alertId", chain.AlertID, "error", err)
			continue
		}
		if alert.Severity == severity {
			matched = append(matched, chain)
		}
	}
	return matched, nil
}

// Statistics aggregates chain counts, cached briefly in Valkey. The mean
// level is computed over every chain ever created, terminal ones included.
func (s *EscalationService) Statistics(ctx context.Context) (*models.EscalationStatistics, error) {
	if data, err := s.cache.Get(ctx, statisticsCacheKey); err == nil {
		var stats models.EscalationStatistics
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
	}

	active, err := s.chains.CountByStatuses(ctx, models.EscalationStatusPending, models.EscalationStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("count active chains: %w", err)
	}
	pending, err := s.chains.CountByStatuses(ctx, models.EscalationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending chains: %w", err)
	}
	escalated, err := s.chains.CountByStatuses(ctx, models.EscalationStatusEscalated)
	if err != nil {
		return nil, fmt.Errorf("count escalated chains: %w", err)
	}

	all, err := s.chains.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	var avg float64
	if len(all) > 0 {
		var sum int
		for _, c := range all {
			sum += c.CurrentLevel
		}
		avg = math.Round(float64(sum)/float64(len(all))*100) / 100
	}

	stats := &models.EscalationStatistics{
		ActiveChains:            active,
		PendingEscalations:      pending,
		EscalatedAlerts:         escalated,
		AverageEscalationLevels: avg,
	}

	if err := s.cache.Set(ctx, statisticsCacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache escalation statistics", "error", err)
	}
	return stats, nil
}

// RecoverTimers re-arms the scheduler for every non-terminal chain with a
// pending deadline. Run once at startup: process-local timers do not survive
// a restart, the persisted chains do.
func (s *EscalationService) RecoverTimers(ctx context.Context) error {
	chains, err := s.chains.ListByStatuses(ctx,
		models.EscalationStatusPending,
		models.EscalationStatusInProgress,
		models.EscalationStatusEscalated,
	)
	if err != nil {
		return fmt.Errorf("list chains for recovery: %w", err)
	}

	recovered := 0
	for _, chain := range chains {
		if chain.NextEscalationAt == nil {
			continue
		}
		s.sched.Arm(chain.ID, chain.CreatedBy, *chain.NextEscalationAt)
		recovered++
	}

	s.logger.Info("Recovered escalation timers", "chains", recovered)
	return nil
}
