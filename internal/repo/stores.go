package repo

import (
	"context"
	"time"

	"github.com/grcplane/grcplane-core/internal/models"
)

// AlertStore persists alerts. Implementations return models.ErrNotFound
// (wrapped) for missing ids.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, q models.AlertQuery) ([]*models.Alert, int, error)

	// FindActive returns the newest ACTIVE alert matching the dedup triple,
	// or nil when none exists.
	FindActive(ctx context.Context, entityID, entityType string, alertType models.AlertType) (*models.Alert, error)

	// ListActiveByEntity returns all ACTIVE alerts for an entity/type pair.
	ListActiveByEntity(ctx context.Context, entityID, entityType string) ([]*models.Alert, error)

	// DeleteDismissedBefore removes dismissed alerts last updated before the
	// cutoff and reports how many were deleted.
	DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertRuleStore persists detection rules.
type AlertRuleStore interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByID(ctx context.Context, id string) (*models.AlertRule, error)
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, isActive *bool) ([]*models.AlertRule, error)

	// ListActiveByEntityType returns active rules targeting an entity type.
	ListActiveByEntityType(ctx context.Context, entityType string) ([]*models.AlertRule, error)
}

// EscalationChainStore persists escalation chains. Chains are never deleted.
type EscalationChainStore interface {
	Create(ctx context.Context, chain *models.EscalationChain) error
	GetByID(ctx context.Context, id string) (*models.EscalationChain, error)
	Update(ctx context.Context, chain *models.EscalationChain) error

	// ListByAlert returns every chain for an alert, newest first.
	ListByAlert(ctx context.Context, alertID string) ([]*models.EscalationChain, error)

	// ListByStatuses returns chains in any of the given statuses, ordered by
	// next escalation time ascending (most urgent first).
	ListByStatuses(ctx context.Context, statuses ...models.EscalationChainStatus) ([]*models.EscalationChain, error)

	CountByStatuses(ctx context.Context, statuses ...models.EscalationChainStatus) (int64, error)

	// ListAll returns every chain regardless of status. Used by the
	// statistics aggregation, which averages over terminal chains too.
	ListAll(ctx context.Context) ([]*models.EscalationChain, error)
}

// UserStore resolves actor ids against the identity directory.
type UserStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}
