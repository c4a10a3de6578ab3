package models

import "time"

type EscalationChainStatus string

const (
	EscalationStatusPending    EscalationChainStatus = "pending"
	EscalationStatusInProgress EscalationChainStatus = "in_progress"
	EscalationStatusEscalated  EscalationChainStatus = "escalated"
	EscalationStatusResolved   EscalationChainStatus = "resolved"
	EscalationStatusCancelled  EscalationChainStatus = "cancelled"
)

// Terminal reports whether the chain can never escalate again.
func (s EscalationChainStatus) Terminal() bool {
	return s == EscalationStatusResolved || s == EscalationStatusCancelled
}

// EscalationLevelRule is one rung of a chain's ladder. DelayMinutes is
// counted from the previous level's fire time (or chain creation for the
// first level), not from chain creation.
type EscalationLevelRule struct {
	Level          int      `json:"level" yaml:"level"`
	DelayMinutes   int      `json:"delay_minutes" yaml:"delay_minutes"`
	Roles          []string `json:"roles" yaml:"roles"`
	WorkflowID     string   `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty"`
	NotifyChannels []string `json:"notify_channels,omitempty" yaml:"notify_channels,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// EscalationHistoryEntry records one fired level. The history is append-only;
// len(history) always equals the chain's current level.
type EscalationHistoryEntry struct {
	Level               int       `json:"level"`
	EscalatedAt         time.Time `json:"escalated_at"`
	EscalatedToRoles    []string  `json:"escalated_to_roles"`
	NotifiedUsers       []string  `json:"notified_users,omitempty"`
	WorkflowExecutionID string    `json:"workflow_execution_id,omitempty"`
	NotificationsSent   []string  `json:"notifications_sent"`
}

// EscalationChain tracks the live escalation state of a single alert.
type EscalationChain struct {
	ID                  string                   `json:"id"`
	AlertID             string                   `json:"alert_id"`
	AlertRuleID         string                   `json:"alert_rule_id,omitempty"`
	Status              EscalationChainStatus    `json:"status"`
	CurrentLevel        int                      `json:"current_level"`
	MaxLevels           int                      `json:"max_levels"`
	Rules               []EscalationLevelRule    `json:"escalation_rules"`
	NextEscalationAt    *time.Time               `json:"next_escalation_at,omitempty"`
	History             []EscalationHistoryEntry `json:"escalation_history"`
	WorkflowExecutionID string                   `json:"workflow_execution_id,omitempty"`
	Notes               string                   `json:"notes,omitempty"`
	ResolvedBy          string                   `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time               `json:"resolved_at,omitempty"`
	CreatedBy           string                   `json:"created_by"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

type CreateEscalationChainRequest struct {
	AlertID     string                `json:"alert_id" binding:"required"`
	AlertRuleID string                `json:"alert_rule_id"`
	Rules       []EscalationLevelRule `json:"escalation_rules" binding:"required"`
	Notes       string                `json:"notes"`
}

type ResolveEscalationRequest struct {
	ResolutionNotes string `json:"resolution_notes" binding:"required"`
}

// EscalationStatistics aggregates chain counts. AverageEscalationLevels is
// computed over every chain ever created, terminal ones included.
type EscalationStatistics struct {
	ActiveChains            int64   `json:"active_chains"`
	PendingEscalations      int64   `json:"pending_escalations"`
	EscalatedAlerts         int64   `json:"escalated_alerts"`
	AverageEscalationLevels float64 `json:"average_escalation_levels"`
}
