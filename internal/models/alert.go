package models

import "time"

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusDismissed    AlertStatus = "dismissed"
)

type AlertType string

const (
	AlertTypePolicyReviewOverdue      AlertType = "policy_review_overdue"
	AlertTypeControlAssessmentPastDue AlertType = "control_assessment_past_due"
	AlertTypeSOPExecutionFailure      AlertType = "sop_execution_failure"
	AlertTypeAuditFinding             AlertType = "audit_finding"
	AlertTypeComplianceViolation      AlertType = "compliance_violation"
	AlertTypeRiskThresholdExceeded    AlertType = "risk_threshold_exceeded"
	AlertTypeCustom                   AlertType = "custom"
)

// Alert is a reported governance/risk/compliance condition requiring
// attention. Alerts move forward through active -> acknowledged -> resolved;
// dismissed is terminal from any non-resolved state.
type Alert struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Type              AlertType              `json:"type"`
	Severity          AlertSeverity          `json:"severity"`
	Status            AlertStatus            `json:"status"`
	RelatedEntityID   string                 `json:"related_entity_id,omitempty"`
	RelatedEntityType string                 `json:"related_entity_type,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	EscalationChainID string                 `json:"escalation_chain_id,omitempty"`
	HasEscalation     bool                   `json:"has_escalation"`
	TenantID          string                 `json:"tenant_id,omitempty"`
	CreatedBy         string                 `json:"created_by,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	AcknowledgedAt    *time.Time             `json:"acknowledged_at,omitempty"`
	AcknowledgedBy    string                 `json:"acknowledged_by,omitempty"`
	ResolvedAt        *time.Time             `json:"resolved_at,omitempty"`
	ResolvedBy        string                 `json:"resolved_by,omitempty"`
	ResolutionNotes   string                 `json:"resolution_notes,omitempty"`
}

// CreateAlertRequest is the payload for creating an alert, either from a
// human caller or from the rule evaluation engine (actor "system").
type CreateAlertRequest struct {
	Title             string                 `json:"title" binding:"required"`
	Description       string                 `json:"description"`
	Type              AlertType              `json:"type" binding:"required"`
	Severity          AlertSeverity          `json:"severity" binding:"required"`
	RelatedEntityID   string                 `json:"related_entity_id"`
	RelatedEntityType string                 `json:"related_entity_type"`
	Metadata          map[string]interface{} `json:"metadata"`
	TenantID          string                 `json:"tenant_id"`
}

// AlertQuery filters alert listings.
type AlertQuery struct {
	Status          AlertStatus   `form:"status" json:"status,omitempty"`
	Severity        AlertSeverity `form:"severity" json:"severity,omitempty"`
	Type            AlertType     `form:"type" json:"type,omitempty"`
	RelatedEntityID string        `form:"related_entity_id" json:"related_entity_id,omitempty"`
	Limit           int           `form:"limit" json:"limit,omitempty"`
	Offset          int           `form:"offset" json:"offset,omitempty"`
}

type AlertListResponse struct {
	Alerts []*Alert `json:"alerts"`
	Total  int      `json:"total"`
}

type ResolveAlertRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// Notification is the payload handed to the notification dispatcher when an
// alert is created or an escalation level fires. Delivery is best-effort.
type Notification struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"` // alert, escalation
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Component string        `json:"component"`
	Severity  AlertSeverity `json:"severity"`
	Roles     []string      `json:"roles,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	TenantID  string        `json:"tenant_id,omitempty"`
}
