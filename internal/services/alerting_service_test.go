package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcplane/grcplane-core/internal/models"
)

func createAlertReq(severity models.AlertSeverity) *models.CreateAlertRequest {
	return &models.CreateAlertRequest{
		Title:             "Access review overdue",
		Description:       "Quarterly access review has not been completed",
		Type:              models.AlertTypePolicyReviewOverdue,
		Severity:          severity,
		RelatedEntityID:   "pol-7",
		RelatedEntityType: "policy",
	}
}

func TestCreateAlert(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	f.notifier.channels = []string{"slack"}
	ctx := context.Background()

	alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityMedium), "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, "user-1", alert.CreatedBy)
	assert.False(t, alert.HasEscalation)

	notifications := f.notifier.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "alert", notifications[0].Type)
	assert.Equal(t, alert.Title, notifications[0].Title)
	assert.Equal(t, models.SeverityMedium, notifications[0].Severity)
}

func TestCreateCriticalAlertAttachesDefaultPolicy(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	ctx := context.Background()

	alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityCritical), "user-1")
	require.NoError(t, err)

	assert.True(t, alert.HasEscalation)
	require.NotEmpty(t, alert.EscalationChainID)

	chain, err := f.escalations.GetChain(ctx, alert.EscalationChainID)
	require.NoError(t, err)
	assert.Equal(t, alert.ID, chain.AlertID)
	assert.Equal(t, 2, chain.MaxLevels)
	assert.Contains(t, chain.Notes, "critical escalation policy")
	assert.True(t, f.sched.Pending(chain.ID))
}

func TestCreateCriticalAlertSurvivesMissingPolicy(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	f.alertSvc.defaultPolicy = "nonexistent"
	ctx := context.Background()

	alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityCritical), "user-1")
	require.NoError(t, err)
	assert.False(t, alert.HasEscalation)
	assert.Empty(t, alert.EscalationChainID)
}

func TestAlertTransitionsAreMonotonic(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	ctx := context.Background()

	t.Run("acknowledge then resolve", func(t *testing.T) {
		alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityMedium), "user-1")
		require.NoError(t, err)

		acked, err := f.alertSvc.AcknowledgeAlert(ctx, alert.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusAcknowledged, acked.Status)
		assert.Equal(t, "user-1", acked.AcknowledgedBy)
		require.NotNil(t, acked.AcknowledgedAt)

		// Double acknowledge is rejected.
		_, err = f.alertSvc.AcknowledgeAlert(ctx, alert.ID, "user-1")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)

		resolved, err := f.alertSvc.ResolveAlert(ctx, alert.ID, "user-1", "completed the review")
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusResolved, resolved.Status)
		assert.Equal(t, "completed the review", resolved.ResolutionNotes)
	})

	t.Run("resolve directly from active", func(t *testing.T) {
		alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityMedium), "user-1")
		require.NoError(t, err)

		resolved, err := f.alertSvc.ResolveAlert(ctx, alert.ID, "user-1", "")
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusResolved, resolved.Status)
	})

	t.Run("resolved is immutable", func(t *testing.T) {
		alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityMedium), "user-1")
		require.NoError(t, err)
		_, err = f.alertSvc.ResolveAlert(ctx, alert.ID, "user-1", "done")
		require.NoError(t, err)

		_, err = f.alertSvc.ResolveAlert(ctx, alert.ID, "user-1", "again")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		_, err = f.alertSvc.AcknowledgeAlert(ctx, alert.ID, "user-1")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		_, err = f.alertSvc.DismissAlert(ctx, alert.ID, "user-1")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("dismiss from acknowledged", func(t *testing.T) {
		alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityMedium), "user-1")
		require.NoError(t, err)
		_, err = f.alertSvc.AcknowledgeAlert(ctx, alert.ID, "user-1")
		require.NoError(t, err)

		dismissed, err := f.alertSvc.DismissAlert(ctx, alert.ID, "user-1")
		require.NoError(t, err)
		assert.Equal(t, models.AlertStatusDismissed, dismissed.Status)

		// Dismissed is terminal.
		_, err = f.alertSvc.DismissAlert(ctx, alert.ID, "user-1")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestResolveAlertCascadesToChain(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	ctx := context.Background()

	alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityCritical), "user-1")
	require.NoError(t, err)
	require.True(t, alert.HasEscalation)

	_, err = f.alertSvc.ResolveAlert(ctx, alert.ID, "user-1", "patched")
	require.NoError(t, err)

	chain, err := f.escalations.GetChain(ctx, alert.EscalationChainID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationStatusResolved, chain.Status)
	assert.Equal(t, "patched", chain.Notes)
	assert.False(t, f.sched.Pending(chain.ID))
}

func TestDismissAlertCancelsChain(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	ctx := context.Background()

	alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityCritical), "user-1")
	require.NoError(t, err)
	require.True(t, alert.HasEscalation)

	_, err = f.alertSvc.DismissAlert(ctx, alert.ID, "user-1")
	require.NoError(t, err)

	chain, err := f.escalations.GetChain(ctx, alert.EscalationChainID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationStatusCancelled, chain.Status)
	assert.False(t, f.sched.Pending(chain.ID))
}

func TestResolveCascadeSurvivesTerminalChain(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	ctx := context.Background()

	alert, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityCritical), "user-1")
	require.NoError(t, err)

	// Close the chain out of band; resolving the alert must still succeed.
	_, err = f.escalations.Cancel(ctx, alert.EscalationChainID, "user-1")
	require.NoError(t, err)

	resolved, err := f.alertSvc.ResolveAlert(ctx, alert.ID, "user-1", "handled")
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, resolved.Status)
}

func TestListAlertsFilters(t *testing.T) {
	f := newEngineFixture(t, "user-1")
	ctx := context.Background()

	_, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityMedium), "user-1")
	require.NoError(t, err)
	high, err := f.alertSvc.CreateAlert(ctx, createAlertReq(models.SeverityHigh), "user-1")
	require.NoError(t, err)
	_, err = f.alertSvc.ResolveAlert(ctx, high.ID, "user-1", "done")
	require.NoError(t, err)

	all, err := f.alertSvc.ListAlerts(ctx, models.AlertQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	active, err := f.alertSvc.ListAlerts(ctx, models.AlertQuery{Status: models.AlertStatusActive})
	require.NoError(t, err)
	assert.Equal(t, 1, active.Total)

	resolved, err := f.alertSvc.ListAlerts(ctx, models.AlertQuery{Status: models.AlertStatusResolved})
	require.NoError(t, err)
	require.Len(t, resolved.Alerts, 1)
	assert.Equal(t, high.ID, resolved.Alerts[0].ID)

	paged, err := f.alertSvc.ListAlerts(ctx, models.AlertQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, paged.Total)
	assert.Len(t, paged.Alerts, 1)
}

func TestGetAlertNotFound(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.alertSvc.GetAlert(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
