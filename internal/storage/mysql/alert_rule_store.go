package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
)

type AlertRuleStore struct {
	db *sql.DB
}

func NewAlertRuleStore(c *Client) *AlertRuleStore { return &AlertRuleStore{db: c.DB} }

var _ repo.AlertRuleStore = (*AlertRuleStore)(nil)

const ruleColumns = "id, name, description, is_active, trigger_type, entity_type, " +
	"field_name, `condition`, condition_value, threshold_value, severity_score, " +
	"alert_message, filters, created_at, updated_at"

func (s *AlertRuleStore) Create(ctx context.Context, rule *models.AlertRule) error {
	filters, err := marshalJSON(rule.Filters)
	if err != nil {
		return fmt.Errorf("encode rule filters: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO alert_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.Description, rule.IsActive,
		string(rule.TriggerType), rule.EntityType,
		nullString(rule.FieldName), nullString(string(rule.Condition)),
		nullString(rule.ConditionValue), nullFloat(rule.ThresholdValue),
		rule.SeverityScore, nullString(rule.AlertMessage), filters,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert rule: %w", err)
	}
	return nil
}

func (s *AlertRuleStore) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM alert_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert rule %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select alert rule: %w", err)
	}
	return rule, nil
}

func (s *AlertRuleStore) Update(ctx context.Context, rule *models.AlertRule) error {
	filters, err := marshalJSON(rule.Filters)
	if err != nil {
		return fmt.Errorf("encode rule filters: %w", err)
	}

	res, err := s.db.ExecContext(ctx, "UPDATE alert_rules SET "+
		"name = ?, description = ?, is_active = ?, trigger_type = ?, entity_type = ?, "+
		"field_name = ?, `condition` = ?, condition_value = ?, threshold_value = ?, "+
		"severity_score = ?, alert_message = ?, filters = ?, updated_at = ? "+
		"WHERE id = ?",
		rule.Name, rule.Description, rule.IsActive, string(rule.TriggerType),
		rule.EntityType, nullString(rule.FieldName), nullString(string(rule.Condition)),
		nullString(rule.ConditionValue), nullFloat(rule.ThresholdValue),
		rule.SeverityScore, nullString(rule.AlertMessage), filters,
		rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetByID(ctx, rule.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *AlertRuleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alert rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert rule %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (s *AlertRuleStore) List(ctx context.Context, isActive *bool) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules`
	args := make([]interface{}, 0, 1)
	if isActive != nil {
		query += ` WHERE is_active = ?`
		args = append(args, *isActive)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select alert rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func (s *AlertRuleStore) ListActiveByEntityType(ctx context.Context, entityType string) ([]*models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM alert_rules
		WHERE entity_type = ? AND is_active = 1 ORDER BY created_at`, entityType)
	if err != nil {
		return nil, fmt.Errorf("select active alert rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func scanRule(row rowScanner) (*models.AlertRule, error) {
	var (
		r           models.AlertRule
		triggerType string
		fieldName   sql.NullString
		condition   sql.NullString
		condValue   sql.NullString
		threshold   sql.NullFloat64
		alertMsg    sql.NullString
		filters     sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &triggerType,
		&r.EntityType, &fieldName, &condition, &condValue, &threshold,
		&r.SeverityScore, &alertMsg, &filters, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.TriggerType = models.RuleTriggerType(triggerType)
	r.FieldName = fieldName.String
	r.Condition = models.RuleCondition(condition.String)
	r.ConditionValue = condValue.String
	r.AlertMessage = alertMsg.String
	if threshold.Valid {
		v := threshold.Float64
		r.ThresholdValue = &v
	}
	if filters.Valid && filters.String != "" {
		if err := json.Unmarshal([]byte(filters.String), &r.Filters); err != nil {
			return nil, fmt.Errorf("decode rule filters: %w", err)
		}
	}
	return &r, nil
}

func collectRules(rows *sql.Rows) ([]*models.AlertRule, error) {
	rules := make([]*models.AlertRule, 0)
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
