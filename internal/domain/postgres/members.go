// Package postgres implements the domain storage contracts on PostgreSQL
// through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/planbot/internal/domain"
)

// MemberRepo implements domain.MemberStore.
type MemberRepo struct {
	db *sqlx.DB
}

// NewMemberRepo builds a member repository.
func NewMemberRepo(db *sqlx.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// GetByTelegramID finds a member by their Telegram account id.
func (r *MemberRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Member, error) {
	var m domain.Member
	err := r.db.GetContext(ctx, &m,
		`SELECT id, telegram_id, first_name, last_name, username, is_admin, created_at
		   FROM members WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("members: get by telegram id: %w", err)
	}
	return &m, nil
}

// Upsert inserts the member or refreshes their profile fields, keyed by
// telegram_id. Admin status is never downgraded by an upsert.
func (r *MemberRepo) Upsert(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	var out domain.Member
	err := r.db.GetContext(ctx, &out,
		`INSERT INTO members (telegram_id, first_name, last_name, username, is_admin)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (telegram_id) DO UPDATE SET
		   first_name = EXCLUDED.first_name,
		   last_name  = EXCLUDED.last_name,
		   username   = EXCLUDED.username,
		   is_admin   = members.is_admin OR EXCLUDED.is_admin
		 RETURNING id, telegram_id, first_name, last_name, username, is_admin, created_at`,
		m.TelegramID, m.FirstName, m.LastName, m.Username, m.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("members: upsert: %w", err)
	}
	return &out, nil
}
