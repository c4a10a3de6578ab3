package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grcplane/grcplane-core/internal/metrics"
	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
	"github.com/grcplane/grcplane-core/internal/tracing"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// RuleEngine evaluates detection rules against entity data and synthesizes
// alerts for matches, suppressing duplicates. Evaluation never mutates rules.
type RuleEngine struct {
	rules    repo.AlertRuleStore
	alerts   repo.AlertStore
	alertSvc *AlertService
	tracer   *tracing.EngineTracer
	logger   logger.Logger
	now      func() time.Time
}

func NewRuleEngine(
	rules repo.AlertRuleStore,
	alerts repo.AlertStore,
	alertSvc *AlertService,
	tracer *tracing.EngineTracer,
	logger logger.Logger,
) *RuleEngine {
	return &RuleEngine{
		rules:    rules,
		alerts:   alerts,
		alertSvc: alertSvc,
		tracer:   tracer,
		logger:   logger,
		now:      time.Now,
	}
}

// ----------------------------------------------------------------------------
// Rule management
// ----------------------------------------------------------------------------

func (e *RuleEngine) CreateRule(ctx context.Context, req *models.CreateAlertRuleRequest) (*models.AlertRule, error) {
	now := e.now()
	rule := &models.AlertRule{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		IsActive:       req.IsActive,
		TriggerType:    req.TriggerType,
		EntityType:     req.EntityType,
		FieldName:      req.FieldName,
		Condition:      req.Condition,
		ConditionValue: req.ConditionValue,
		ThresholdValue: req.ThresholdValue,
		SeverityScore:  req.SeverityScore,
		AlertMessage:   req.AlertMessage,
		Filters:        req.Filters,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("persist alert rule: %w", err)
	}
	return rule, nil
}

func (e *RuleEngine) GetRule(ctx context.Context, id string) (*models.AlertRule, error) {
	return e.rules.GetByID(ctx, id)
}

func (e *RuleEngine) UpdateRule(ctx context.Context, id string, req *models.CreateAlertRuleRequest) (*models.AlertRule, error) {
	rule, err := e.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rule.Name = req.Name
	rule.Description = req.Description
	rule.IsActive = req.IsActive
	rule.TriggerType = req.TriggerType
	rule.EntityType = req.EntityType
	rule.FieldName = req.FieldName
	rule.Condition = req.Condition
	rule.ConditionValue = req.ConditionValue
	rule.ThresholdValue = req.ThresholdValue
	rule.SeverityScore = req.SeverityScore
	rule.AlertMessage = req.AlertMessage
	rule.Filters = req.Filters
	rule.UpdatedAt = e.now()

	if err := e.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("persist alert rule update: %w", err)
	}
	return rule, nil
}

func (e *RuleEngine) DeleteRule(ctx context.Context, id string) error {
	return e.rules.Delete(ctx, id)
}

func (e *RuleEngine) ListRules(ctx context.Context, isActive *bool) ([]*models.AlertRule, error) {
	return e.rules.List(ctx, isActive)
}

// ----------------------------------------------------------------------------
// Evaluation
// ----------------------------------------------------------------------------

// EvaluateEntity runs every active rule for the entity type against one
// entity's data. Matched rules synthesize alerts unless an equivalent ACTIVE
// alert already exists, in which case the existing alert is returned
// unchanged.
func (e *RuleEngine) EvaluateEntity(ctx context.Context, entityType, entityID string, entityData map[string]interface{}) ([]*models.Alert, error) {
	e.logger.Info("Evaluating rules", "entityType", entityType, "entityId", entityID)

	rules, err := e.rules.ListActiveByEntityType(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("load rules for %s: %w", entityType, err)
	}

	ctx, span := e.tracer.StartEvaluationSpan(ctx, entityType, entityID, len(rules))
	defer span.End()

	alerts := make([]*models.Alert, 0)
	for _, rule := range rules {
		if !e.evaluateRule(rule, entityData) {
			metrics.RuleEvaluations.WithLabelValues(string(rule.TriggerType), "no_match").Inc()
			continue
		}

		e.logger.Info("Rule matched", "ruleId", rule.ID, "ruleName", rule.Name, "entityId", entityID)

		alert, created, err := e.alertFromRule(ctx, rule, entityID, entityType, entityData)
		if err != nil {
			tracing.RecordError(span, err)
			metrics.RuleEvaluations.WithLabelValues(string(rule.TriggerType), "error").Inc()
			return nil, err
		}
		if created {
			metrics.RuleEvaluations.WithLabelValues(string(rule.TriggerType), "fired").Inc()
		} else {
			metrics.RuleEvaluations.WithLabelValues(string(rule.TriggerType), "suppressed").Inc()
		}
		alerts = append(alerts, alert)
	}

	return alerts, nil
}

// evaluateRule dispatches on the rule's trigger strategy.
func (e *RuleEngine) evaluateRule(rule *models.AlertRule, entityData map[string]interface{}) bool {
	switch rule.TriggerType {
	case models.TriggerTimeBased:
		return e.evaluateTimeBased(rule, entityData)
	case models.TriggerThresholdBased:
		return e.evaluateThresholdBased(rule, entityData)
	case models.TriggerStatusChange:
		return e.evaluateStatusChange(rule, entityData)
	case models.TriggerCustomCondition:
		return e.evaluateCustomCondition(rule, entityData)
	default:
		e.logger.Warn("Unknown trigger type", "ruleId", rule.ID, "triggerType", rule.TriggerType)
		return false
	}
}

// evaluateTimeBased fires when the field's date is overdue. Without a
// threshold any positive overdue value fires; with one the overdue days must
// reach it.
func (e *RuleEngine) evaluateTimeBased(rule *models.AlertRule, entityData map[string]interface{}) bool {
	if rule.FieldName == "" {
		return false
	}
	fieldValue, ok := entityData[rule.FieldName]
	if !ok || isNull(fieldValue) {
		return false
	}

	target, ok := toTime(fieldValue)
	if !ok {
		return false
	}

	daysOverdue := e.now().Sub(target).Hours() / 24
	if daysOverdue <= 0 {
		return false
	}
	if rule.ThresholdValue != nil {
		return daysOverdue >= *rule.ThresholdValue
	}
	return true
}

func (e *RuleEngine) evaluateThresholdBased(rule *models.AlertRule, entityData map[string]interface{}) bool {
	if rule.FieldName == "" || rule.ThresholdValue == nil {
		return false
	}
	fieldValue, ok := entityData[rule.FieldName]
	if !ok || fieldValue == nil {
		return false
	}

	numValue, ok := toFloat(fieldValue)
	if !ok {
		return false
	}
	threshold := *rule.ThresholdValue

	switch rule.Condition {
	case models.ConditionGreaterThan:
		return numValue > threshold
	case models.ConditionLessThan:
		return numValue < threshold
	case models.ConditionEquals:
		return numValue == threshold
	default:
		// Unspecified comparison defaults to "threshold exceeded".
		return numValue >= threshold
	}
}

func (e *RuleEngine) evaluateStatusChange(rule *models.AlertRule, entityData map[string]interface{}) bool {
	if rule.FieldName == "" || rule.ConditionValue == "" {
		return false
	}
	fieldValue, ok := entityData[rule.FieldName]
	if !ok || fieldValue == nil {
		return false
	}
	return strings.EqualFold(stringify(fieldValue), rule.ConditionValue)
}

func (e *RuleEngine) evaluateCustomCondition(rule *models.AlertRule, entityData map[string]interface{}) bool {
	if rule.FieldName == "" {
		return false
	}
	return EvaluateCondition(entityData[rule.FieldName], rule.Condition, rule.ConditionValue, e.now())
}

// ----------------------------------------------------------------------------
// Alert synthesis
// ----------------------------------------------------------------------------

// alertFromRule deduplicates against ACTIVE alerts on the
// (entityID, entityType, alertType) triple before creating a new alert
// through the lifecycle service. The bool result reports whether a new alert
// was created.
func (e *RuleEngine) alertFromRule(ctx context.Context, rule *models.AlertRule, entityID, entityType string, entityData map[string]interface{}) (*models.Alert, bool, error) {
	alertType := inferAlertType(rule.EntityType)

	existing, err := e.alerts.FindActive(ctx, entityID, entityType, alertType)
	if err != nil {
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}
	if existing != nil {
		e.logger.Info("Similar active alert already exists", "alertId", existing.ID, "entityId", entityID)
		return existing, false, nil
	}

	req := &models.CreateAlertRequest{
		Title:             e.generateAlertTitle(rule, entityData),
		Description:       e.generateAlertDescription(rule, entityData),
		Type:              alertType,
		Severity:          severityFromScore(rule.SeverityScore),
		RelatedEntityID:   entityID,
		RelatedEntityType: entityType,
		Metadata: map[string]interface{}{
			"rule_id":          rule.ID,
			"rule_name":        rule.Name,
			"trigger_type":     string(rule.TriggerType),
			"evaluated_fields": entityData,
		},
	}

	alert, err := e.alertSvc.CreateAlert(ctx, req, SystemActor)
	if err != nil {
		return nil, false, fmt.Errorf("create alert from rule %s: %w", rule.ID, err)
	}

	e.logger.Info("Generated alert from rule", "alertId", alert.ID, "ruleId", rule.ID)
	return alert, true, nil
}

func severityFromScore(score int) models.AlertSeverity {
	switch {
	case score >= 4:
		return models.SeverityCritical
	case score == 3:
		return models.SeverityHigh
	case score == 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// inferAlertType maps the rule's entity type to a domain alert category by
// keyword.
func inferAlertType(entityType string) models.AlertType {
	et := strings.ToLower(entityType)

	switch {
	case strings.Contains(et, "policy") || strings.Contains(et, "review"):
		return models.AlertTypePolicyReviewOverdue
	case strings.Contains(et, "control") || strings.Contains(et, "assessment"):
		return models.AlertTypeControlAssessmentPastDue
	case strings.Contains(et, "sop") || strings.Contains(et, "procedure"):
		return models.AlertTypeSOPExecutionFailure
	case strings.Contains(et, "audit") || strings.Contains(et, "finding"):
		return models.AlertTypeAuditFinding
	case strings.Contains(et, "compliance") || strings.Contains(et, "violation"):
		return models.AlertTypeComplianceViolation
	case strings.Contains(et, "risk") || strings.Contains(et, "threat"):
		return models.AlertTypeRiskThresholdExceeded
	default:
		return models.AlertTypeCustom
	}
}

func (e *RuleEngine) generateAlertTitle(rule *models.AlertRule, entityData map[string]interface{}) string {
	if rule.AlertMessage != "" {
		return interpolateMessage(rule.AlertMessage, entityData)
	}

	entityType := strings.ToLower(rule.EntityType)
	if entityType == "" {
		entityType = "item"
	}
	fieldName := rule.FieldName
	if fieldName == "" {
		fieldName = "field"
	}

	switch rule.TriggerType {
	case models.TriggerTimeBased:
		return fmt.Sprintf("%s is overdue (%s)", entityType, fieldName)
	case models.TriggerThresholdBased:
		return fmt.Sprintf("%s threshold exceeded (%s)", entityType, fieldName)
	case models.TriggerStatusChange:
		return fmt.Sprintf("%s status changed to %s", entityType, rule.ConditionValue)
	default:
		return fmt.Sprintf("Alert: %s", rule.Name)
	}
}

func (e *RuleEngine) generateAlertDescription(rule *models.AlertRule, entityData map[string]interface{}) string {
	fieldName := rule.FieldName
	if fieldName == "" {
		fieldName = "field"
	}
	fieldValue := entityData[fieldName]

	switch rule.TriggerType {
	case models.TriggerTimeBased:
		return fmt.Sprintf("This item is overdue by %d days. Please take immediate action.", e.daysOverdue(fieldValue))
	case models.TriggerThresholdBased:
		threshold := ""
		if rule.ThresholdValue != nil {
			threshold = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", *rule.ThresholdValue), "0"), ".")
		}
		return fmt.Sprintf("The threshold has been exceeded. Current value: %v. Threshold: %s", fieldValue, threshold)
	case models.TriggerStatusChange:
		return fmt.Sprintf("%s: Current status is %s", rule.Name, rule.ConditionValue)
	default:
		if rule.Description != "" {
			return rule.Description
		}
		return fmt.Sprintf("Alert triggered: %s", rule.Name)
	}
}

func (e *RuleEngine) daysOverdue(dateValue interface{}) int {
	t, ok := toTime(dateValue)
	if !ok {
		return 0
	}
	days := int(e.now().Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

var messageToken = regexp.MustCompile(`\{\{(\w+)\}\}`)

// interpolateMessage substitutes {{key}} tokens with values from the entity
// data; unknown tokens are left in place.
func interpolateMessage(message string, data map[string]interface{}) string {
	return messageToken.ReplaceAllStringFunc(message, func(match string) string {
		key := messageToken.FindStringSubmatch(match)[1]
		if v, ok := data[key]; ok && v != nil {
			return stringify(v)
		}
		return match
	})
}

// ----------------------------------------------------------------------------
// Batch and maintenance operations
// ----------------------------------------------------------------------------

// EvaluateBatch folds EvaluateEntity over a list of entities. Per-entity
// failures are counted, not propagated: one bad record cannot abort a sweep.
func (e *RuleEngine) EvaluateBatch(ctx context.Context, entityType string, entities []models.EntityRecord) *models.BatchEvaluationResult {
	e.logger.Info("Starting batch evaluation", "entityType", entityType, "entities", len(entities))

	start := e.now()
	defer func() {
		metrics.BatchEvaluationDuration.WithLabelValues(entityType).Observe(time.Since(start).Seconds())
	}()

	result := &models.BatchEvaluationResult{Processed: len(entities)}
	for _, entity := range entities {
		alerts, err := e.EvaluateEntity(ctx, entityType, entity.ID, entity.Data)
		if err != nil {
			e.logger.Error("Entity evaluation failed", "entityId", entity.ID, "error", err)
			result.Errors++
			continue
		}
		result.AlertsGenerated += len(alerts)
	}

	e.logger.Info("Batch evaluation complete",
		"entityType", entityType,
		"alertsGenerated", result.AlertsGenerated,
		"errors", result.Errors,
	)
	return result
}

// AutoResolveAlerts resolves every ACTIVE alert for the entity with a fixed
// system note. The caller decides when the triggering condition has cleared;
// the engine does not re-check it.
func (e *RuleEngine) AutoResolveAlerts(ctx context.Context, entityID, entityType string) (int, error) {
	active, err := e.alerts.ListActiveByEntity(ctx, entityID, entityType)
	if err != nil {
		return 0, fmt.Errorf("list active alerts: %w", err)
	}

	resolved := 0
	for _, alert := range active {
		if _, err := e.alertSvc.ResolveAlert(ctx, alert.ID, SystemActor, "Auto-resolved: triggering condition no longer exists"); err != nil {
			e.logger.Error("Auto-resolve failed", "alertId", alert.ID, "error", err)
			continue
		}
		resolved++
	}

	if resolved > 0 {
		e.logger.Info("Auto-resolved alerts", "entityId", entityID, "count", resolved)
	}
	return resolved, nil
}

// CleanupOldAlerts deletes DISMISSED alerts last touched before the retention
// cutoff.
func (e *RuleEngine) CleanupOldAlerts(ctx context.Context, daysOld int) (int64, error) {
	cutoff := e.now().AddDate(0, 0, -daysOld)
	deleted, err := e.alerts.DeleteDismissedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup dismissed alerts: %w", err)
	}

	e.logger.Info("Cleaned up old dismissed alerts", "deleted", deleted)
	return deleted, nil
}
