package models

import "time"

// RuleTriggerType selects the evaluation strategy for an alert rule.
type RuleTriggerType string

const (
	TriggerTimeBased       RuleTriggerType = "time_based"
	TriggerThresholdBased  RuleTriggerType = "threshold_based"
	TriggerStatusChange    RuleTriggerType = "status_change"
	TriggerCustomCondition RuleTriggerType = "custom_condition"
)

// RuleCondition is the closed set of comparison operators the condition
// evaluator understands. Unknown conditions evaluate to false.
type RuleCondition string

const (
	ConditionEquals       RuleCondition = "equals"
	ConditionNotEquals    RuleCondition = "not_equals"
	ConditionGreaterThan  RuleCondition = "greater_than"
	ConditionLessThan     RuleCondition = "less_than"
	ConditionContains     RuleCondition = "contains"
	ConditionNotContains  RuleCondition = "not_contains"
	ConditionIsNull       RuleCondition = "is_null"
	ConditionIsNotNull    RuleCondition = "is_not_null"
	ConditionDaysOverdue  RuleCondition = "days_overdue"
	ConditionStatusEquals RuleCondition = "status_equals"
)

// AlertRule is a reusable detection definition. Rules are created by
// administrators and evaluated repeatedly; evaluation never mutates them.
type AlertRule struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	IsActive       bool                   `json:"is_active"`
	TriggerType    RuleTriggerType        `json:"trigger_type"`
	EntityType     string                 `json:"entity_type"`
	FieldName      string                 `json:"field_name,omitempty"`
	Condition      RuleCondition          `json:"condition,omitempty"`
	ConditionValue string                 `json:"condition_value,omitempty"`
	ThresholdValue *float64               `json:"threshold_value,omitempty"`
	SeverityScore  int                    `json:"severity_score"`
	AlertMessage   string                 `json:"alert_message,omitempty"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type CreateAlertRuleRequest struct {
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	IsActive       bool                   `json:"is_active"`
	TriggerType    RuleTriggerType        `json:"trigger_type" binding:"required"`
	EntityType     string                 `json:"entity_type" binding:"required"`
	FieldName      string                 `json:"field_name"`
	Condition      RuleCondition          `json:"condition"`
	ConditionValue string                 `json:"condition_value"`
	ThresholdValue *float64               `json:"threshold_value"`
	SeverityScore  int                    `json:"severity_score"`
	AlertMessage   string                 `json:"alert_message"`
	Filters        map[string]interface{} `json:"filters"`
}

// EntityRecord pairs an entity id with the raw field map submitted for rule
// evaluation.
type EntityRecord struct {
	ID   string                 `json:"id" binding:"required"`
	Data map[string]interface{} `json:"data" binding:"required"`
}

type EvaluateEntityRequest struct {
	EntityType string                 `json:"entity_type" binding:"required"`
	EntityID   string                 `json:"entity_id" binding:"required"`
	EntityData map[string]interface{} `json:"entity_data" binding:"required"`
}

type EvaluateBatchRequest struct {
	EntityType string         `json:"entity_type" binding:"required"`
	Entities   []EntityRecord `json:"entities" binding:"required"`
}

// BatchEvaluationResult summarizes one batch run. Per-entity failures are
// counted, not propagated, so a single bad record cannot abort a sweep.
type BatchEvaluationResult struct {
	Processed       int `json:"processed"`
	AlertsGenerated int `json:"alerts_generated"`
	Errors          int `json:"errors"`
}

type AutoResolveRequest struct {
	EntityID   string `json:"entity_id" binding:"required"`
	EntityType string `json:"entity_type" binding:"required"`
}
