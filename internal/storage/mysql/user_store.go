package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grcplane/grcplane-core/internal/repo"
)

// UserStore resolves actor ids against the users table. Escalation and alert
// operations record actors but never require a full profile, so existence is
// the only lookup.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(c *Client) *UserStore { return &UserStore{db: c.DB} }

var _ repo.UserStore = (*UserStore)(nil)

func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select user: %w", err)
	}
	return true, nil
}
