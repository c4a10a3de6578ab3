package services

import (
	"context"

	"github.com/grcplane/grcplane-core/internal/config"
	"github.com/grcplane/grcplane-core/internal/metrics"
	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/pkg/logger"
)

// AlertNotifier dispatches a notification to external channels and reports
// which channels accepted it. Delivery is best-effort: failures are logged by
// the implementation and never surface to the caller.
type AlertNotifier interface {
	Notify(ctx context.Context, notification *models.Notification) []string
}

type NotificationService struct {
	integrations *IntegrationsService
	logger       logger.Logger
}

func NewNotificationService(cfg config.IntegrationsConfig, logger logger.Logger) *NotificationService {
	return &NotificationService{
		integrations: NewIntegrationsService(cfg, logger),
		logger:       logger,
	}
}

// Notify fans the notification out to every configured integration and
// returns the names of the channels that accepted it. Disabled integrations
// are skipped silently; failed ones are logged and omitted from the result.
func (s *NotificationService) Notify(ctx context.Context, notification *models.Notification) []string {
	sent := make([]string, 0, 3)

	if s.integrations.config.Slack.Enabled {
		if err := s.integrations.SendSlackNotification(ctx, notification); err != nil {
			s.logger.Error("Slack notification failed", "error", err)
			metrics.NotificationsSent.WithLabelValues("slack", notification.Type, "false").Inc()
		} else {
			sent = append(sent, "slack")
			metrics.NotificationsSent.WithLabelValues("slack", notification.Type, "true").Inc()
		}
	}

	if s.integrations.config.MSTeams.Enabled {
		if err := s.integrations.SendMSTeamsNotification(ctx, notification); err != nil {
			s.logger.Error("MS Teams notification failed", "error", err)
			metrics.NotificationsSent.WithLabelValues("teams", notification.Type, "false").Inc()
		} else {
			sent = append(sent, "teams")
			metrics.NotificationsSent.WithLabelValues("teams", notification.Type, "true").Inc()
		}
	}

	if s.integrations.config.Email.Enabled {
		if err := s.integrations.SendEmailNotification(ctx, notification); err != nil {
			s.logger.Error("Email notification failed", "error", err)
			metrics.NotificationsSent.WithLabelValues("email", notification.Type, "false").Inc()
		} else {
			sent = append(sent, "email")
			metrics.NotificationsSent.WithLabelValues("email", notification.Type, "true").Inc()
		}
	}

	return sent
}
