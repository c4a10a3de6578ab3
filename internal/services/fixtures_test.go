package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/grcplane/grcplane-core/internal/config"
	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
	"github.com/grcplane/grcplane-core/internal/tracing"
	"github.com/grcplane/grcplane-core/pkg/cache"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// In-memory store fakes shared by the service tests. They implement the repo
// interfaces with the same not-found semantics as the MySQL stores.

type memAlertStore struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func newMemAlertStore() *memAlertStore { return &memAlertStore{} }

var _ repo.AlertStore = (*memAlertStore)(nil)

func (m *memAlertStore) Create(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *alert
	m.alerts = append(m.alerts, &cp)
	return nil
}

func (m *memAlertStore) GetByID(_ context.Context, id string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
}

func (m *memAlertStore) Update(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.alerts {
		if a.ID == alert.ID {
			cp := *alert
			m.alerts[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("alert %s: %w", alert.ID, models.ErrNotFound)
}

func (m *memAlertStore) List(_ context.Context, q models.AlertQuery) ([]*models.Alert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*models.Alert, 0)
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.Severity != "" && a.Severity != q.Severity {
			continue
		}
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if q.RelatedEntityID != "" && a.RelatedEntityID != q.RelatedEntityID {
			continue
		}
		cp := *a
		matched = append(matched, &cp)
	}

	total := len(matched)
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memAlertStore) FindActive(_ context.Context, entityID, entityType string, alertType models.AlertType) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if a.RelatedEntityID == entityID && a.RelatedEntityType == entityType &&
			a.Type == alertType && a.Status == models.AlertStatusActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAlertStore) ListActiveByEntity(_ context.Context, entityID, entityType string) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Alert, 0)
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if a.RelatedEntityID == entityID && a.RelatedEntityType == entityType && a.Status == models.AlertStatusActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAlertStore) DeleteDismissedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.alerts[:0]
	var deleted int64
	for _, a := range m.alerts {
		if a.Status == models.AlertStatusDismissed && a.UpdatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept
	return deleted, nil
}

type memRuleStore struct {
	mu    sync.Mutex
	rules []*models.AlertRule
}

func newMemRuleStore() *memRuleStore { return &memRuleStore{} }

var _ repo.AlertRuleStore = (*memRuleStore)(nil)

func (m *memRuleStore) Create(_ context.Context, rule *models.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rule
	m.rules = append(m.rules, &cp)
	return nil
}

func (m *memRuleStore) GetByID(_ context.Context, id string) (*models.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("alert rule %s: %w", id, models.ErrNotFound)
}

func (m *memRuleStore) Update(_ context.Context, rule *models.AlertRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.ID == rule.ID {
			cp := *rule
			m.rules[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("alert rule %s: %w", rule.ID, models.ErrNotFound)
}

func (m *memRuleStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("alert rule %s: %w", id, models.ErrNotFound)
}

func (m *memRuleStore) List(_ context.Context, isActive *bool) ([]*models.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AlertRule, 0)
	for i := len(m.rules) - 1; i >= 0; i-- {
		r := m.rules[i]
		if isActive != nil && r.IsActive != *isActive {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRuleStore) ListActiveByEntityType(_ context.Context, entityType string) ([]*models.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AlertRule, 0)
	for _, r := range m.rules {
		if r.EntityType == entityType && r.IsActive {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memChainStore struct {
	mu     sync.Mutex
	chains []*models.EscalationChain
}

func newMemChainStore() *memChainStore { return &memChainStore{} }

var _ repo.EscalationChainStore = (*memChainStore)(nil)

func (m *memChainStore) Create(_ context.Context, chain *models.EscalationChain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *chain
	m.chains = append(m.chains, &cp)
	return nil
}

func (m *memChainStore) GetByID(_ context.Context, id string) (*models.EscalationChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chains {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("escalation chain %s: %w", id, models.ErrNotFound)
}

func (m *memChainStore) Update(_ context.Context, chain *models.EscalationChain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.chains {
		if c.ID == chain.ID {
			cp := *chain
			m.chains[i] = &cp
			return nil
		}
	}
	return fmt.Errorf("escalation chain %s: %w", chain.ID, models.ErrNotFound)
}

func (m *memChainStore) ListByAlert(_ context.Context, alertID string) ([]*models.EscalationChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.EscalationChain, 0)
	for i := len(m.chains) - 1; i >= 0; i-- {
		if m.chains[i].AlertID == alertID {
			cp := *m.chains[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memChainStore) ListByStatuses(_ context.Context, statuses ...models.EscalationChainStatus) ([]*models.EscalationChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.EscalationChain, 0)
	for _, c := range m.chains {
		for _, st := range statuses {
			if c.Status == st {
				cp := *c
				out = append(out, &cp)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].NextEscalationAt, out[j].NextEscalationAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (m *memChainStore) CountByStatuses(ctx context.Context, statuses ...models.EscalationChainStatus) (int64, error) {
	chains, err := m.ListByStatuses(ctx, statuses...)
	if err != nil {
		return 0, err
	}
	return int64(len(chains)), nil
}

func (m *memChainStore) ListAll(_ context.Context) ([]*models.EscalationChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.EscalationChain, 0, len(m.chains))
	for _, c := range m.chains {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type memUserStore struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newMemUserStore(ids ...string) *memUserStore {
	m := &memUserStore{ids: map[string]bool{}}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

var _ repo.UserStore = (*memUserStore)(nil)

func (m *memUserStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[id], nil
}

// manualClock makes delay computations deterministic.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock(t time.Time) *manualClock { return &manualClock{t: t} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// capturingWorkflowTrigger records trigger calls and returns a canned
// execution id or error.
type capturingWorkflowTrigger struct {
	mu     sync.Mutex
	calls  []workflowCall
	execID string
	err    error
}

type workflowCall struct {
	WorkflowID string
	Context    map[string]interface{}
}

func newCapturingWorkflowTrigger(execID string) *capturingWorkflowTrigger {
	return &capturingWorkflowTrigger{execID: execID}
}

var _ WorkflowTrigger = (*capturingWorkflowTrigger)(nil)

func (w *capturingWorkflowTrigger) Trigger(_ context.Context, workflowID string, execContext map[string]interface{}) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, workflowCall{WorkflowID: workflowID, Context: execContext})
	if w.err != nil {
		return "", w.err
	}
	return w.execID, nil
}

func (w *capturingWorkflowTrigger) Calls() []workflowCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]workflowCall, len(w.calls))
	copy(out, w.calls)
	return out
}

// silentNotifier drops notifications but records how many were attempted.
type silentNotifier struct {
	mu       sync.Mutex
	notified []*models.Notification
	channels []string
}

var _ AlertNotifier = (*silentNotifier)(nil)

func (n *silentNotifier) Notify(_ context.Context, notification *models.Notification) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, notification)
	return n.channels
}

func (n *silentNotifier) Notifications() []*models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*models.Notification, len(n.notified))
	copy(out, n.notified)
	return out
}

// engineFixture wires the full service graph over in-memory stores with a
// manual clock. testPolicies uses non-zero first-level delays so chains stay
// armed rather than firing synchronously during setup.
type engineFixture struct {
	clock       *manualClock
	alerts      *memAlertStore
	rules       *memRuleStore
	chains      *memChainStore
	users       *memUserStore
	sched       *EscalationScheduler
	workflow    *capturingWorkflowTrigger
	notifier    *silentNotifier
	escalations *EscalationService
	alertSvc    *AlertService
	engine      *RuleEngine
}

func testPolicies() map[string]config.EscalationPolicy {
	return map[string]config.EscalationPolicy{
		"critical": {
			Name: "critical",
			Levels: []models.EscalationLevelRule{
				{Level: 1, DelayMinutes: 30, Roles: []string{"compliance_manager"}},
				{Level: 2, DelayMinutes: 60, Roles: []string{"ciso"}},
			},
		},
	}
}

func newEngineFixture(t *testing.T, userIDs ...string) *engineFixture {
	t.Helper()

	log := logger.NewNop()
	clock := newManualClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))

	f := &engineFixture{
		clock:    clock,
		alerts:   newMemAlertStore(),
		rules:    newMemRuleStore(),
		chains:   newMemChainStore(),
		users:    newMemUserStore(userIDs...),
		workflow: newCapturingWorkflowTrigger("exec-1"),
		notifier: &silentNotifier{},
	}

	f.sched = NewEscalationScheduler(log)
	f.sched.now = clock.Now

	tracer := tracing.NewEngineTracer("grcplane-test")
	noop := cache.NewNoopValkey(log)

	f.escalations = NewEscalationService(f.chains, f.alerts, f.users, f.sched, f.workflow, noop, tracer, log)
	f.escalations.now = clock.Now

	f.alertSvc = NewAlertService(f.alerts, f.escalations, f.notifier, noop, testPolicies(), "critical", log)
	f.alertSvc.now = clock.Now

	f.engine = NewRuleEngine(f.rules, f.alerts, f.alertSvc, tracer, log)
	f.engine.now = clock.Now

	return f
}

func floatPtr(v float64) *float64 { return &v }
