package postgres

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/planbot/core/logger"
	"github.com/m3rciful/planbot/internal/domain"
)

// EventRepo implements domain.EventStore.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo builds an event repository.
func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Create inserts the event, its setlist, and one open role slot per role id
// in one transaction. Setlist positions follow the order of songIDs.
func (r *EventRepo) Create(ctx context.Context, e *domain.Event, songIDs, roleIDs []int64) (int64, error) {
	start := time.Now()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("events: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var eventID int64
	err = tx.GetContext(ctx, &eventID,
		`INSERT INTO events (template_code, title, starts_at, location, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.TemplateCode, e.Title, e.StartsAt, e.Location, e.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("events: insert: %w", err)
	}

	for pos, songID := range songIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO setlist_entries (event_id, song_id, position) VALUES ($1, $2, $3)`,
			eventID, songID, pos+1); err != nil {
			return 0, fmt.Errorf("events: insert setlist entry %d: %w", songID, err)
		}
	}

	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (event_id, role_id) VALUES ($1, $2)`,
			eventID, roleID); err != nil {
			return 0, fmt.Errorf("events: open role slot %d: %w", roleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("events: commit: %w", err)
	}

	logger.SVCEvents.LogAttrs(ctx, slog.LevelInfo, "event created",
		slog.String("event", "event.create"),
		slog.Int64("event_id", eventID),
		slog.Int("songs", len(songIDs)),
		slog.Int("role_slots", len(roleIDs)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return eventID, nil
}

// Assignments lists the event's role slots with role and member names.
func (r *EventRepo) Assignments(ctx context.Context, eventID int64) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := r.db.SelectContext(ctx, &out,
		`SELECT a.id, a.event_id, a.role_id, a.member_id,
		        r.name AS role_name,
		        COALESCE(TRIM(m.first_name || ' ' || m.last_name), '') AS member_name
		   FROM assignments a
		   JOIN roles r ON r.id = a.role_id
		   LEFT JOIN members m ON m.id = a.member_id
		  WHERE a.event_id = $1
		  ORDER BY r.name`, eventID)
	if err != nil {
		return nil, fmt.Errorf("events: assignments: %w", err)
	}
	return out, nil
}

// AssignMember fills the event's slot for the role.
func (r *EventRepo) AssignMember(ctx context.Context, eventID, roleID, memberID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assignments SET member_id = $3 WHERE event_id = $1 AND role_id = $2`,
		eventID, roleID, memberID)
	if err != nil {
		return fmt.Errorf("events: assign member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	logger.SVCEvents.LogAttrs(ctx, slog.LevelInfo, "role slot filled",
		slog.String("event", "event.assign"),
		slog.Int64("event_id", eventID),
		slog.Int64("role_id", roleID),
		slog.Int64("member_id", memberID),
	)
	return nil
}

// Upcoming lists events starting now or later, earliest first.
func (r *EventRepo) Upcoming(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.Event
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, template_code, title, starts_at, location, created_by, created_at
		   FROM events
		  WHERE starts_at >= NOW()
		  ORDER BY starts_at
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("events: upcoming: %w", err)
	}
	return out, nil
}

// Setlist returns the event's songs in setlist order.
func (r *EventRepo) Setlist(ctx context.Context, eventID int64) ([]domain.Song, error) {
	var out []domain.Song
	err := r.db.SelectContext(ctx, &out,
		`SELECT s.id, s.title, s.author, s.song_key, s.tempo, s.chords, s.created_at
		   FROM setlist_entries se
		   JOIN songs s ON s.id = se.song_id
		  WHERE se.event_id = $1
		  ORDER BY se.position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("events: setlist: %w", err)
	}
	return out, nil
}
