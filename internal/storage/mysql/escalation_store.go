package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
)

type EscalationChainStore struct {
	db *sql.DB
}

func NewEscalationChainStore(c *Client) *EscalationChainStore {
	return &EscalationChainStore{db: c.DB}
}

var _ repo.EscalationChainStore = (*EscalationChainStore)(nil)

const chainColumns = `id, alert_id, alert_rule_id, status, current_level, max_levels,
	escalation_rules, next_escalation_at, escalation_history, workflow_execution_id,
	notes, resolved_by, resolved_at, created_by, created_at, updated_at`

func (s *EscalationChainStore) Create(ctx context.Context, chain *models.EscalationChain) error {
	rules, err := json.Marshal(chain.Rules)
	if err != nil {
		return fmt.Errorf("encode escalation rules: %w", err)
	}
	history, err := marshalJSON(chain.History)
	if err != nil {
		return fmt.Errorf("encode escalation history: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO escalation_chains (`+chainColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chain.ID, chain.AlertID, nullString(chain.AlertRuleID), string(chain.Status),
		chain.CurrentLevel, chain.MaxLevels, string(rules),
		nullTime(chain.NextEscalationAt), history,
		nullString(chain.WorkflowExecutionID), nullString(chain.Notes),
		nullString(chain.ResolvedBy), nullTime(chain.ResolvedAt),
		nullString(chain.CreatedBy), chain.CreatedAt, chain.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert escalation chain: %w", err)
	}
	return nil
}

func (s *EscalationChainStore) GetByID(ctx context.Context, id string) (*models.EscalationChain, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chainColumns+` FROM escalation_chains WHERE id = ?`, id)
	chain, err := scanChain(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("escalation chain %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select escalation chain: %w", err)
	}
	return chain, nil
}

func (s *EscalationChainStore) Update(ctx context.Context, chain *models.EscalationChain) error {
	rules, err := json.Marshal(chain.Rules)
	if err != nil {
		return fmt.Errorf("encode escalation rules: %w", err)
	}
	history, err := marshalJSON(chain.History)
	if err != nil {
		return fmt.Errorf("encode escalation history: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE escalation_chains SET
		status = ?, current_level = ?, max_levels = ?, escalation_rules = ?,
		next_escalation_at = ?, escalation_history = ?, workflow_execution_id = ?,
		notes = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ?`,
		string(chain.Status), chain.CurrentLevel, chain.MaxLevels, string(rules),
		nullTime(chain.NextEscalationAt), history,
		nullString(chain.WorkflowExecutionID), nullString(chain.Notes),
		nullString(chain.ResolvedBy), nullTime(chain.ResolvedAt),
		chain.UpdatedAt, chain.ID,
	)
	if err != nil {
		return fmt.Errorf("update escalation chain: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetByID(ctx, chain.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *EscalationChainStore) ListByAlert(ctx context.Context, alertID string) ([]*models.EscalationChain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chainColumns+` FROM escalation_chains
		WHERE alert_id = ? ORDER BY created_at DESC`, alertID)
	if err != nil {
		return nil, fmt.Errorf("select chains by alert: %w", err)
	}
	defer rows.Close()
	return collectChains(rows)
}

func (s *EscalationChainStore) ListByStatuses(ctx context.Context, statuses ...models.EscalationChainStatus) ([]*models.EscalationChain, error) {
	if len(statuses) == 0 {
		return []*models.EscalationChain{}, nil
	}
	clause, args := statusClause(statuses)
	rows, err := s.db.QueryContext(ctx, `SELECT `+chainColumns+` FROM escalation_chains
		WHERE status IN (`+clause+`)
		ORDER BY next_escalation_at IS NULL, next_escalation_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("select chains by status: %w", err)
	}
	defer rows.Close()
	return collectChains(rows)
}

func (s *EscalationChainStore) CountByStatuses(ctx context.Context, statuses ...models.EscalationChainStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	clause, args := statusClause(statuses)
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM escalation_chains
		WHERE status IN (`+clause+`)`, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chains by status: %w", err)
	}
	return count, nil
}

func (s *EscalationChainStore) ListAll(ctx context.Context) ([]*models.EscalationChain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chainColumns+` FROM escalation_chains ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select all chains: %w", err)
	}
	defer rows.Close()
	return collectChains(rows)
}

func statusClause(statuses []models.EscalationChainStatus) (string, []interface{}) {
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}
	return strings.Join(placeholders, ", "), args
}

func scanChain(row rowScanner) (*models.EscalationChain, error) {
	var (
		c           models.EscalationChain
		ruleID      sql.NullString
		status      string
		rules       string
		nextAt      sql.NullTime
		history     sql.NullString
		workflowID  sql.NullString
		notes       sql.NullString
		resolvedBy  sql.NullString
		resolvedAt  sql.NullTime
		createdBy   sql.NullString
	)
	err := row.Scan(&c.ID, &c.AlertID, &ruleID, &status, &c.CurrentLevel, &c.MaxLevels,
		&rules, &nextAt, &history, &workflowID, &notes, &resolvedBy, &resolvedAt,
		&createdBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.AlertRuleID = ruleID.String
	c.Status = models.EscalationChainStatus(status)
	c.WorkflowExecutionID = workflowID.String
	c.Notes = notes.String
	c.ResolvedBy = resolvedBy.String
	c.CreatedBy = createdBy.String
	if nextAt.Valid {
		t := nextAt.Time
		c.NextEscalationAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	if err := json.Unmarshal([]byte(rules), &c.Rules); err != nil {
		return nil, fmt.Errorf("decode escalation rules: %w", err)
	}
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &c.History); err != nil {
			return nil, fmt.Errorf("decode escalation history: %w", err)
		}
	}
	return &c, nil
}

func collectChains(rows *sql.Rows) ([]*models.EscalationChain, error) {
	chains := make([]*models.EscalationChain, 0)
	for rows.Next() {
		c, err := scanChain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation chain: %w", err)
		}
		chains = append(chains, c)
	}
	return chains, rows.Err()
}
