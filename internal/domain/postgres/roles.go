package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/planbot/core/logger"
	"github.com/m3rciful/planbot/internal/domain"
)

// RoleRepo implements domain.RoleStore.
type RoleRepo struct {
	db *sqlx.DB
}

// NewRoleRepo builds a role repository.
func NewRoleRepo(db *sqlx.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// ListRoles returns all serving roles alphabetically.
func (r *RoleRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var out []domain.Role
	err := r.db.SelectContext(ctx, &out, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	return out, nil
}

// GetRole finds a role by id.
func (r *RoleRepo) GetRole(ctx context.Context, id int64) (*domain.Role, error) {
	var role domain.Role
	err := r.db.GetContext(ctx, &role, `SELECT id, name FROM roles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roles: get %d: %w", id, err)
	}
	return &role, nil
}

// RenameRole updates a role's display name.
func (r *RoleRepo) RenameRole(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE roles SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("roles: rename: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	logger.SVCRoles.LogAttrs(ctx, slog.LevelInfo, "role renamed",
		slog.String("event", "role.rename"),
		slog.Int64("role_id", id),
	)
	return nil
}
