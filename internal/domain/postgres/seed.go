package postgres

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/planbot/core/logger"
)

// SeedReferenceData inserts the default event templates, locations, and
// serving roles. It is idempotent: existing rows are left untouched, so it
// is safe to run on every boot.
func SeedReferenceData(ctx context.Context, db *sqlx.DB) error {
	templates := []struct {
		code     string
		titleKey string
		weekday  int
	}{
		{"sunday", "template.sunday", 0},
		{"midweek", "template.midweek", 3},
		{"rehearsal", "template.rehearsal", 5},
		{"special", "template.special", -1},
	}
	for _, t := range templates {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO event_templates (code, title_key, weekday)
			 VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`,
			t.code, t.titleKey, t.weekday); err != nil {
			return fmt.Errorf("seed: template %q: %w", t.code, err)
		}
	}

	for _, name := range []string{"Main Hall", "Youth Room", "Studio"} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO locations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			name); err != nil {
			return fmt.Errorf("seed: location %q: %w", name, err)
		}
	}

	for _, name := range []string{"Vocals", "Guitar", "Keys", "Drums", "Sound", "Projection"} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			name); err != nil {
			return fmt.Errorf("seed: role %q: %w", name, err)
		}
	}

	logger.SEED.LogAttrs(ctx, slog.LevelInfo, "reference data seeded",
		slog.String("event", "seed.done"),
	)
	return nil
}
