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

// SongRepo implements domain.SongStore.
type SongRepo struct {
	db *sqlx.DB
}

// NewSongRepo builds a song repository.
func NewSongRepo(db *sqlx.DB) *SongRepo {
	return &SongRepo{db: db}
}

// ListSongs returns the whole repertoire alphabetically.
func (r *SongRepo) ListSongs(ctx context.Context) ([]domain.Song, error) {
	var out []domain.Song
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, title, author, song_key, tempo, chords, created_at
		   FROM songs ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("songs: list: %w", err)
	}
	return out, nil
}

// GetSong finds a song by id.
func (r *SongRepo) GetSong(ctx context.Context, id int64) (*domain.Song, error) {
	var s domain.Song
	err := r.db.GetContext(ctx, &s,
		`SELECT id, title, author, song_key, tempo, chords, created_at
		   FROM songs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("songs: get %d: %w", id, err)
	}
	return &s, nil
}

// CreateSong adds a new repertoire entry with just a title.
func (r *SongRepo) CreateSong(ctx context.Context, title string) (*domain.Song, error) {
	var s domain.Song
	err := r.db.GetContext(ctx, &s,
		`INSERT INTO songs (title) VALUES ($1)
		 RETURNING id, title, author, song_key, tempo, chords, created_at`, title)
	if err != nil {
		return nil, fmt.Errorf("songs: create: %w", err)
	}
	logger.SVCSongs.LogAttrs(ctx, slog.LevelInfo, "song created",
		slog.String("event", "song.create"),
		slog.Int64("song_id", s.ID),
	)
	return &s, nil
}

// UpdateSongField writes one editable attribute. The field name is mapped
// to a fixed column, never interpolated from input.
func (r *SongRepo) UpdateSongField(ctx context.Context, id int64, field domain.SongField, value string) error {
	var query string
	switch field {
	case domain.FieldTitle:
		query = `UPDATE songs SET title = $1 WHERE id = $2`
	case domain.FieldAuthor:
		query = `UPDATE songs SET author = $1 WHERE id = $2`
	case domain.FieldKey:
		query = `UPDATE songs SET song_key = $1 WHERE id = $2`
	case domain.FieldTempo:
		query = `UPDATE songs SET tempo = $1::int WHERE id = $2`
	default:
		return fmt.Errorf("songs: unknown field %q", field)
	}

	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("songs: update %s: %w", field, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	logger.SVCSongs.LogAttrs(ctx, slog.LevelInfo, "song updated",
		slog.String("event", "song.update"),
		slog.Int64("song_id", id),
		slog.String("field", string(field)),
	)
	return nil
}

// SetChords replaces the chord sheet of a song.
func (r *SongRepo) SetChords(ctx context.Context, id int64, chords string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE songs SET chords = $1 WHERE id = $2`, chords, id)
	if err != nil {
		return fmt.Errorf("songs: set chords: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	logger.SVCSongs.LogAttrs(ctx, slog.LevelInfo, "chords updated",
		slog.String("event", "song.chords"),
		slog.Int64("song_id", id),
	)
	return nil
}
