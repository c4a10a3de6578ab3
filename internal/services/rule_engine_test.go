package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcplane/grcplane-core/internal/models"
)

func seedRule(t *testing.T, f *engineFixture, req *models.CreateAlertRuleRequest) *models.AlertRule {
	t.Helper()
	rule, err := f.engine.CreateRule(context.Background(), req)
	require.NoError(t, err)
	return rule
}

func TestRuleCRUD(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	rule := seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:        "Overdue policy reviews",
		IsActive:    true,
		TriggerType: models.TriggerTimeBased,
		EntityType:  "policy",
		FieldName:   "reviewDate",
	})

	got, err := f.engine.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Overdue policy reviews", got.Name)

	updated, err := f.engine.UpdateRule(ctx, rule.ID, &models.CreateAlertRuleRequest{
		Name:           "Overdue policy reviews (strict)",
		IsActive:       true,
		TriggerType:    models.TriggerTimeBased,
		EntityType:     "policy",
		FieldName:      "reviewDate",
		ThresholdValue: floatPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "Overdue policy reviews (strict)", updated.Name)
	require.NotNil(t, updated.ThresholdValue)
	assert.Equal(t, 7.0, *updated.ThresholdValue)

	active := true
	rules, err := f.engine.ListRules(ctx, &active)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	require.NoError(t, f.engine.DeleteRule(ctx, rule.ID))
	_, err = f.engine.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = f.engine.DeleteRule(ctx, rule.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEvaluateEntityTimeBased(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:          "Policy review overdue",
		IsActive:      true,
		TriggerType:   models.TriggerTimeBased,
		EntityType:    "policy",
		FieldName:     "reviewDate",
		SeverityScore: 3,
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", map[string]interface{}{
		"reviewDate": "2020-01-01",
		"name":       "Data Retention Policy",
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, models.AlertTypePolicyReviewOverdue, alert.Type)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, "pol-1", alert.RelatedEntityID)
	assert.Equal(t, "policy", alert.RelatedEntityType)
	assert.Equal(t, SystemActor, alert.CreatedBy)
	assert.Contains(t, alert.Description, "overdue by")

	// A future review date does not fire.
	alerts, err = f.engine.EvaluateEntity(ctx, "policy", "pol-2", map[string]interface{}{
		"reviewDate": f.clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEvaluateEntityTimeBasedThresholdBoundary(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:           "Five days past due",
		IsActive:       true,
		TriggerType:    models.TriggerTimeBased,
		EntityType:     "policy",
		FieldName:      "dueDate",
		ThresholdValue: floatPtr(5),
	})

	// Exactly 5.0 days overdue fires.
	alerts, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", map[string]interface{}{
		"dueDate": f.clock.Now().Add(-5 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)

	// Just short of the threshold does not.
	alerts, err = f.engine.EvaluateEntity(ctx, "policy", "pol-2", map[string]interface{}{
		"dueDate": f.clock.Now().Add(-5*24*time.Hour + 15*time.Minute),
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEvaluateEntityDeduplicates(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:        "Policy review overdue",
		IsActive:    true,
		TriggerType: models.TriggerTimeBased,
		EntityType:  "policy",
		FieldName:   "reviewDate",
	})

	data := map[string]interface{}{"reviewDate": "2020-01-01"}

	first, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", data)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", data)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	resp, err := f.alertSvc.ListAlerts(ctx, models.AlertQuery{RelatedEntityID: "pol-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	// Resolving the existing alert lifts the suppression.
	_, err = f.alertSvc.ResolveAlert(ctx, first[0].ID, SystemActor, "reviewed")
	require.NoError(t, err)

	third, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", data)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.NotEqual(t, first[0].ID, third[0].ID)
}

func TestEvaluateEntityThresholdBased(t *testing.T) {
	_ = newEngineFixture(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		condition models.RuleCondition
		value     float64
		fires     bool
	}{
		{"greater_than above", models.ConditionGreaterThan, 80, true},
		{"greater_than at threshold", models.ConditionGreaterThan, 75, false},
		{"less_than below", models.ConditionLessThan, 60, true},
		{"less_than above", models.ConditionLessThan, 90, false},
		{"equals match", models.ConditionEquals, 75, true},
		{"equals mismatch", models.ConditionEquals, 74, false},
		{"default at threshold", "", 75, true},
		{"default below threshold", "", 74.5, false},
	}

	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ff := newEngineFixture(t)
			seedRule(t, ff, &models.CreateAlertRuleRequest{
				Name:           "Risk score threshold",
				IsActive:       true,
				TriggerType:    models.TriggerThresholdBased,
				EntityType:     "risk",
				FieldName:      "score",
				Condition:      tc.condition,
				ThresholdValue: floatPtr(75),
			})

			alerts, err := ff.engine.EvaluateEntity(ctx, "risk", "risk-1", map[string]interface{}{
				"score": tc.value,
			})
			require.NoError(t, err)
			if tc.fires {
				require.Len(t, alerts, 1, "case %d", i)
				assert.Equal(t, models.AlertTypeRiskThresholdExceeded, alerts[0].Type)
			} else {
				assert.Empty(t, alerts, "case %d", i)
			}
		})
	}
}

func TestEvaluateEntityStatusChange(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:           "Audit finding open",
		IsActive:       true,
		TriggerType:    models.TriggerStatusChange,
		EntityType:     "audit",
		FieldName:      "status",
		ConditionValue: "FAILED",
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "audit", "audit-1", map[string]interface{}{
		"status": "failed",
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeAuditFinding, alerts[0].Type)

	alerts, err = f.engine.EvaluateEntity(ctx, "audit", "audit-2", map[string]interface{}{
		"status": "passed",
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEvaluateEntityCustomCondition(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:        "Owner missing",
		IsActive:    true,
		TriggerType: models.TriggerCustomCondition,
		EntityType:  "control",
		FieldName:   "owner",
		Condition:   models.ConditionIsNull,
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "control", "ctl-1", map[string]interface{}{
		"owner": "",
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeControlAssessmentPastDue, alerts[0].Type)

	alerts, err = f.engine.EvaluateEntity(ctx, "control", "ctl-2", map[string]interface{}{
		"owner": "alice",
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestAlertMessageInterpolation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:         "Named policy overdue",
		IsActive:     true,
		TriggerType:  models.TriggerTimeBased,
		EntityType:   "policy",
		FieldName:    "reviewDate",
		AlertMessage: "Policy {{name}} missed its {{cycle}} review ({{missing}})",
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", map[string]interface{}{
		"reviewDate": "2020-01-01",
		"name":       "Access Control",
		"cycle":      "annual",
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Policy Access Control missed its annual review ({{missing}})", alerts[0].Title)
}

func TestSeverityFromScore(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, severityFromScore(5))
	assert.Equal(t, models.SeverityCritical, severityFromScore(4))
	assert.Equal(t, models.SeverityHigh, severityFromScore(3))
	assert.Equal(t, models.SeverityMedium, severityFromScore(2))
	assert.Equal(t, models.SeverityLow, severityFromScore(1))
	assert.Equal(t, models.SeverityLow, severityFromScore(0))
}

func TestInferAlertType(t *testing.T) {
	cases := map[string]models.AlertType{
		"policy":            models.AlertTypePolicyReviewOverdue,
		"policy_review":     models.AlertTypePolicyReviewOverdue,
		"control":           models.AlertTypeControlAssessmentPastDue,
		"risk_assessment":   models.AlertTypeControlAssessmentPastDue,
		"sop":               models.AlertTypeSOPExecutionFailure,
		"audit":             models.AlertTypeAuditFinding,
		"compliance_check":  models.AlertTypeComplianceViolation,
		"risk":              models.AlertTypeRiskThresholdExceeded,
		"vendor_onboarding": models.AlertTypeCustom,
	}
	for entityType, want := range cases {
		assert.Equal(t, want, inferAlertType(entityType), entityType)
	}
}

func TestCriticalRuleAttachesEscalation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:           "Critical compliance violation",
		IsActive:       true,
		TriggerType:    models.TriggerStatusChange,
		EntityType:     "compliance",
		FieldName:      "status",
		ConditionValue: "violated",
		SeverityScore:  4,
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "compliance", "cmp-1", map[string]interface{}{
		"status": "violated",
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert, err := f.alertSvc.GetAlert(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.True(t, alert.HasEscalation)
	require.NotEmpty(t, alert.EscalationChainID)

	chain, err := f.escalations.GetChain(ctx, alert.EscalationChainID)
	require.NoError(t, err)
	assert.Equal(t, alert.ID, chain.AlertID)
	assert.Equal(t, models.EscalationStatusPending, chain.Status)
	assert.True(t, f.sched.Pending(chain.ID))
}

func TestEvaluateBatch(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:        "Policy review overdue",
		IsActive:    true,
		TriggerType: models.TriggerTimeBased,
		EntityType:  "policy",
		FieldName:   "reviewDate",
	})

	result := f.engine.EvaluateBatch(ctx, "policy", []models.EntityRecord{
		{ID: "pol-1", Data: map[string]interface{}{"reviewDate": "2020-01-01"}},
		{ID: "pol-2", Data: map[string]interface{}{"reviewDate": "2020-01-01"}},
		// Duplicate of pol-1: the existing alert is returned, not recreated,
		// and still counts toward the generated total.
		{ID: "pol-1", Data: map[string]interface{}{"reviewDate": "2020-01-01"}},
		{ID: "pol-3", Data: map[string]interface{}{"reviewDate": nil}},
	})

	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, 3, result.AlertsGenerated)
	assert.Equal(t, 0, result.Errors)

	resp, err := f.alertSvc.ListAlerts(ctx, models.AlertQuery{Status: models.AlertStatusActive})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
}

func TestAutoResolveAlerts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:           "Critical compliance violation",
		IsActive:       true,
		TriggerType:    models.TriggerStatusChange,
		EntityType:     "compliance",
		FieldName:      "status",
		ConditionValue: "violated",
		SeverityScore:  4,
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "compliance", "cmp-1", map[string]interface{}{
		"status": "violated",
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	resolved, err := f.engine.AutoResolveAlerts(ctx, "cmp-1", "compliance")
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	alert, err := f.alertSvc.GetAlert(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, alert.Status)
	assert.Equal(t, SystemActor, alert.ResolvedBy)
	assert.Equal(t, "Auto-resolved: triggering condition no longer exists", alert.ResolutionNotes)

	// The attached escalation chain is cascaded closed.
	chain, err := f.escalations.GetChain(ctx, alert.EscalationChainID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationStatusResolved, chain.Status)
	assert.False(t, f.sched.Pending(chain.ID))
}

func TestCleanupOldAlerts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	stale := &models.Alert{
		ID:        "stale",
		Title:     "Stale dismissed alert",
		Type:      models.AlertTypeCustom,
		Severity:  models.SeverityLow,
		Status:    models.AlertStatusDismissed,
		UpdatedAt: f.clock.Now().AddDate(0, 0, -120),
	}
	fresh := &models.Alert{
		ID:        "fresh",
		Title:     "Recently dismissed alert",
		Type:      models.AlertTypeCustom,
		Severity:  models.SeverityLow,
		Status:    models.AlertStatusDismissed,
		UpdatedAt: f.clock.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, f.alerts.Create(ctx, stale))
	require.NoError(t, f.alerts.Create(ctx, fresh))

	deleted, err := f.engine.CleanupOldAlerts(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = f.alertSvc.GetAlert(ctx, "stale")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.alertSvc.GetAlert(ctx, "fresh")
	assert.NoError(t, err)
}

func TestInactiveRulesAreSkipped(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	seedRule(t, f, &models.CreateAlertRuleRequest{
		Name:        "Disabled rule",
		IsActive:    false,
		TriggerType: models.TriggerTimeBased,
		EntityType:  "policy",
		FieldName:   "reviewDate",
	})

	alerts, err := f.engine.EvaluateEntity(ctx, "policy", "pol-1", map[string]interface{}{
		"reviewDate": "2020-01-01",
	})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
