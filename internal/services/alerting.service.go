package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grcplane/grcplane-core/internal/config"
	"github.com/grcplane/grcplane-core/internal/metrics"
	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
	"github.com/grcplane/grcplane-core/pkg/cache"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// AlertService orchestrates the alert lifecycle: creation (human or engine),
// monotonic status transitions, notification fan-out, and the cascade from
// alert resolution into the attached escalation chain. CRITICAL alerts get
// the default escalation policy attached automatically.
type AlertService struct {
	alerts        repo.AlertStore
	escalations   *EscalationService
	notifier      AlertNotifier
	cache         cache.Valkey
	policies      map[string]config.EscalationPolicy
	defaultPolicy string
	logger        logger.Logger
	cacheTTL      time.Duration
	now           func() time.Time
}

func NewAlertService(
	alerts repo.AlertStore,
	escalations *EscalationService,
	notifier AlertNotifier,
	valkey cache.Valkey,
	policies map[string]config.EscalationPolicy,
	defaultPolicy string,
	logger logger.Logger,
) *AlertService {
	return &AlertService{
		alerts:        alerts,
		escalations:   escalations,
		notifier:      notifier,
		cache:         valkey,
		policies:      policies,
		defaultPolicy: defaultPolicy,
		logger:        logger,
		cacheTTL:      30 * time.Second,
		now:           time.Now,
	}
}

// CreateAlert persists a new ACTIVE alert, fans out notifications, and
// attaches the default escalation chain when the severity is CRITICAL. Both
// side effects are best-effort.
func (s *AlertService) CreateAlert(ctx context.Context, req *models.CreateAlertRequest, actorID string) (*models.Alert, error) {
	now := s.now()
	alert := &models.Alert{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Description:       req.Description,
		Type:              req.Type,
		Severity:          req.Severity,
		Status:            models.AlertStatusActive,
		RelatedEntityID:   req.RelatedEntityID,
		RelatedEntityType: req.RelatedEntityType,
		Metadata:          req.Metadata,
		TenantID:          req.TenantID,
		CreatedBy:         actorID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("persist alert: %w", err)
	}

	source := "user"
	if actorID == SystemActor {
		source = "system"
	}
	metrics.AlertsCreated.WithLabelValues(string(alert.Severity), string(alert.Type), source).Inc()
	s.logger.Info("Alert created", "alertId", alert.ID, "severity", alert.Severity, "source", source)

	sent := s.notifier.Notify(ctx, &models.Notification{
		ID:        fmt.Sprintf("alert-%s", alert.ID),
		Type:      "alert",
		Title:     alert.Title,
		Message:   alert.Description,
		Component: "alerting",
		Severity:  alert.Severity,
		Timestamp: now,
		TenantID:  alert.TenantID,
	})
	if len(sent) > 0 {
		s.logger.Info("Alert notifications dispatched", "alertId", alert.ID, "channels", sent)
	}

	if alert.Severity == models.SeverityCritical {
		s.attachDefaultEscalation(ctx, alert, actorID)
	}

	return alert, nil
}

// attachDefaultEscalation creates an escalation chain from the configured
// default policy. Failure is logged, never propagated: a missing policy or a
// chain persistence error must not fail alert creation.
func (s *AlertService) attachDefaultEscalation(ctx context.Context, alert *models.Alert, actorID string) {
	policy, ok := s.policies[s.defaultPolicy]
	if !ok {
		s.logger.Warn("No default escalation policy configured; critical alert unescalated",
			"alertId", alert.ID, "policy", s.defaultPolicy)
		return
	}

	chain, err := s.escalations.CreateChain(ctx, &models.CreateEscalationChainRequest{
		AlertID: alert.ID,
		Rules:   policy.Levels,
		Notes:   fmt.Sprintf("Auto-attached %s escalation policy", policy.Name),
	}, actorID)
	if err != nil {
		s.logger.Error("Failed to attach default escalation chain", "alertId", alert.ID, "error", err)
		return
	}

	alert.EscalationChainID = chain.ID
	alert.HasEscalation = true
	alert.UpdatedAt = s.now()
	if err := s.alerts.Update(ctx, alert); err != nil {
		s.logger.Error("Failed to link escalation chain on alert", "alertId", alert.ID, "chainId", chain.ID, "error", err)
		return
	}

	s.logger.Info("Attached default escalation chain", "alertId", alert.ID, "chainId", chain.ID)
}

func (s *AlertService) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	return s.alerts.GetByID(ctx, id)
}

// ListAlerts serves filtered alert pages, briefly cached in Valkey keyed by
// the query hash.
func (s *AlertService) ListAlerts(ctx context.Context, q models.AlertQuery) (*models.AlertListResponse, error) {
	hash := cache.QueryHash("alerts:list", q)
	if data, err := s.cache.GetCachedQueryResult(ctx, hash); err == nil {
		var resp models.AlertListResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
	}

	alerts, total, err := s.alerts.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	resp := &models.AlertListResponse{Alerts: alerts, Total: total}
	if err := s.cache.CacheQueryResult(ctx, hash, resp, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache alert list", "error", err)
	}
	return resp, nil
}

// AcknowledgeAlert moves an ACTIVE alert to ACKNOWLEDGED. Transitions are
// monotonic: resolved and dismissed alerts cannot be re-acknowledged.
func (s *AlertService) AcknowledgeAlert(ctx context.Context, id, actorID string) (*models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.AlertStatusActive {
		return nil, fmt.Errorf("cannot acknowledge a %s alert: %w", alert.Status, models.ErrInvalidArgument)
	}

	now := s.now()
	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = actorID
	alert.UpdatedAt = now

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("persist acknowledgement: %w", err)
	}

	metrics.AlertTransitions.WithLabelValues(string(models.AlertStatusAcknowledged)).Inc()
	s.logger.Info("Alert acknowledged", "alertId", id, "actor", actorID)
	return alert, nil
}

// ResolveAlert moves an ACTIVE or ACKNOWLEDGED alert to RESOLVED and cascades
// into the attached escalation chain. The chain cascade is best-effort: a
// chain that already reached a terminal state does not fail the alert
// resolution.
func (s *AlertService) ResolveAlert(ctx context.Context, id, actorID, resolutionNotes string) (*models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.AlertStatusActive && alert.Status != models.AlertStatusAcknowledged {
		return nil, fmt.Errorf("cannot resolve a %s alert: %w", alert.Status, models.ErrInvalidArgument)
	}

	now := s.now()
	alert.Status = models.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = actorID
	alert.ResolutionNotes = resolutionNotes
	alert.UpdatedAt = now

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("persist resolution: %w", err)
	}

	metrics.AlertTransitions.WithLabelValues(string(models.AlertStatusResolved)).Inc()
	s.logger.Info("Alert resolved", "alertId", id, "actor", actorID)

	if alert.HasEscalation && alert.EscalationChainID != "" {
		notes := resolutionNotes
		if notes == "" {
			notes = "Alert resolved"
		}
		if _, err := s.escalations.Resolve(ctx, alert.EscalationChainID, notes, actorID); err != nil {
			s.logger.Warn("Escalation chain cascade resolve failed",
				"alertId", id, "chainId", alert.EscalationChainID, "error", err)
		}
	}

	return alert, nil
}

// DismissAlert is terminal from any non-resolved state; the attached chain is
// cancelled.
func (s *AlertService) DismissAlert(ctx context.Context, id, actorID string) (*models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.AlertStatusResolved || alert.Status == models.AlertStatusDismissed {
		return nil, fmt.Errorf("cannot dismiss a %s alert: %w", alert.Status, models.ErrInvalidArgument)
	}

	now := s.now()
	alert.Status = models.AlertStatusDismissed
	alert.UpdatedAt = now

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("persist dismissal: %w", err)
	}

	metrics.AlertTransitions.WithLabelValues(string(models.AlertStatusDismissed)).Inc()
	s.logger.Info("Alert dismissed", "alertId", id, "actor", actorID)

	if alert.HasEscalation && alert.EscalationChainID != "" {
		if _, err := s.escalations.Cancel(ctx, alert.EscalationChainID, actorID); err != nil {
			s.logger.Warn("Escalation chain cascade cancel failed",
				"alertId", id, "chainId", alert.EscalationChainID, "error", err)
		}
	}

	return alert, nil
}
