package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/planbot/internal/domain"
)

// ReferenceRepo serves the wizard's static pick lists: event templates and
// known locations. It implements domain.TemplateStore and
// domain.LocationStore.
type ReferenceRepo struct {
	db *sqlx.DB
}

// NewReferenceRepo builds a reference data repository.
func NewReferenceRepo(db *sqlx.DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

// ListTemplates returns all event templates in declaration order.
func (r *ReferenceRepo) ListTemplates(ctx context.Context) ([]domain.EventTemplate, error) {
	var out []domain.EventTemplate
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, code, title_key, weekday FROM event_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("templates: list: %w", err)
	}
	return out, nil
}

// GetTemplate finds a template by its stable code.
func (r *ReferenceRepo) GetTemplate(ctx context.Context, code string) (*domain.EventTemplate, error) {
	var t domain.EventTemplate
	err := r.db.GetContext(ctx, &t,
		`SELECT id, code, title_key, weekday FROM event_templates WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("templates: get %q: %w", code, err)
	}
	return &t, nil
}

// ListLocations returns all known venues alphabetically.
func (r *ReferenceRepo) ListLocations(ctx context.Context) ([]domain.Location, error) {
	var out []domain.Location
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, name FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("locations: list: %w", err)
	}
	return out, nil
}
