package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/grcplane/grcplane-core/internal/models"
	"github.com/grcplane/grcplane-core/internal/repo"
)

type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(c *Client) *AlertStore { return &AlertStore{db: c.DB} }

var _ repo.AlertStore = (*AlertStore)(nil)

const alertColumns = `id, title, description, type, severity, status,
	related_entity_id, related_entity_type, metadata, escalation_chain_id,
	has_escalation, tenant_id, created_by, created_at, updated_at,
	acknowledged_at, acknowledged_by, resolved_at, resolved_by, resolution_notes`

func (s *AlertStore) Create(ctx context.Context, alert *models.Alert) error {
	metadata, err := marshalJSON(alert.Metadata)
	if err != nil {
		return fmt.Errorf("encode alert metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.Title, alert.Description, string(alert.Type),
		string(alert.Severity), string(alert.Status),
		nullString(alert.RelatedEntityID), nullString(alert.RelatedEntityType),
		metadata, nullString(alert.EscalationChainID), alert.HasEscalation,
		nullString(alert.TenantID), nullString(alert.CreatedBy),
		alert.CreatedAt, alert.UpdatedAt,
		nullTime(alert.AcknowledgedAt), nullString(alert.AcknowledgedBy),
		nullTime(alert.ResolvedAt), nullString(alert.ResolvedBy),
		nullString(alert.ResolutionNotes),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *AlertStore) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select alert: %w", err)
	}
	return alert, nil
}

func (s *AlertStore) Update(ctx context.Context, alert *models.Alert) error {
	metadata, err := marshalJSON(alert.Metadata)
	if err != nil {
		return fmt.Errorf("encode alert metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET
		title = ?, description = ?, type = ?, severity = ?, status = ?,
		related_entity_id = ?, related_entity_type = ?, metadata = ?,
		escalation_chain_id = ?, has_escalation = ?, tenant_id = ?,
		updated_at = ?, acknowledged_at = ?, acknowledged_by = ?,
		resolved_at = ?, resolved_by = ?, resolution_notes = ?
		WHERE id = ?`,
		alert.Title, alert.Description, string(alert.Type),
		string(alert.Severity), string(alert.Status),
		nullString(alert.RelatedEntityID), nullString(alert.RelatedEntityType),
		metadata, nullString(alert.EscalationChainID), alert.HasEscalation,
		nullString(alert.TenantID), alert.UpdatedAt,
		nullTime(alert.AcknowledgedAt), nullString(alert.AcknowledgedBy),
		nullTime(alert.ResolvedAt), nullString(alert.ResolvedBy),
		nullString(alert.ResolutionNotes), alert.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and a no-op update, so
		// confirm existence before reporting not found.
		if _, err := s.GetByID(ctx, alert.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *AlertStore) List(ctx context.Context, q models.AlertQuery) ([]*models.Alert, int, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(q.Severity))
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.RelatedEntityID != "" {
		where = append(where, "related_entity_id = ?")
		args = append(args, q.RelatedEntityID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts`+clause+
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := collectAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (s *AlertStore) FindActive(ctx context.Context, entityID, entityType string, alertType models.AlertType) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts
		WHERE related_entity_id = ? AND related_entity_type = ? AND type = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		entityID, entityType, string(alertType), string(models.AlertStatusActive))
	alert, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select active alert: %w", err)
	}
	return alert, nil
}

func (s *AlertStore) ListActiveByEntity(ctx context.Context, entityID, entityType string) ([]*models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+alertColumns+` FROM alerts
		WHERE related_entity_id = ? AND related_entity_type = ? AND status = ?
		ORDER BY created_at DESC`,
		entityID, entityType, string(models.AlertStatusActive))
	if err != nil {
		return nil, fmt.Errorf("select active alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func (s *AlertStore) DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE status = ? AND updated_at < ?`,
		string(models.AlertStatusDismissed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete dismissed alerts: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a                models.Alert
		alertType        string
		severity         string
		status           string
		relEntityID      sql.NullString
		relEntityType    sql.NullString
		metadata         sql.NullString
		chainID          sql.NullString
		tenantID         sql.NullString
		createdBy        sql.NullString
		acknowledgedAt   sql.NullTime
		acknowledgedBy   sql.NullString
		resolvedAt       sql.NullTime
		resolvedBy       sql.NullString
		resolutionNotes  sql.NullString
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &alertType, &severity, &status,
		&relEntityID, &relEntityType, &metadata, &chainID, &a.HasEscalation,
		&tenantID, &createdBy, &a.CreatedAt, &a.UpdatedAt,
		&acknowledgedAt, &acknowledgedBy, &resolvedAt, &resolvedBy, &resolutionNotes)
	if err != nil {
		return nil, err
	}

	a.Type = models.AlertType(alertType)
	a.Severity = models.AlertSeverity(severity)
	a.Status = models.AlertStatus(status)
	a.RelatedEntityID = relEntityID.String
	a.RelatedEntityType = relEntityType.String
	a.EscalationChainID = chainID.String
	a.TenantID = tenantID.String
	a.CreatedBy = createdBy.String
	a.AcknowledgedBy = acknowledgedBy.String
	a.ResolvedBy = resolvedBy.String
	a.ResolutionNotes = resolutionNotes.String
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		a.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode alert metadata: %w", err)
		}
	}
	return &a, nil
}

func collectAlerts(rows *sql.Rows) ([]*models.Alert, error) {
	alerts := make([]*models.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func marshalJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
