package postgres

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/planbot/core/logger"
	"github.com/m3rciful/planbot/internal/domain"
)

// AttendanceRepo implements domain.AttendanceStore.
type AttendanceRepo struct {
	db *sqlx.DB
}

// NewAttendanceRepo builds an attendance repository.
func NewAttendanceRepo(db *sqlx.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

// SetResponse records the member's answer, overwriting any previous one.
func (r *AttendanceRepo) SetResponse(ctx context.Context, eventID, memberID int64, resp domain.Response) error {
	if !resp.Valid() {
		return fmt.Errorf("attendance: invalid response %q", resp)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (event_id, member_id, response, responded_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (event_id, member_id) DO UPDATE SET
		   response = EXCLUDED.response,
		   responded_at = EXCLUDED.responded_at`,
		eventID, memberID, resp)
	if err != nil {
		return fmt.Errorf("attendance: set response: %w", err)
	}
	logger.SVCAttendance.LogAttrs(ctx, slog.LevelInfo, "attendance recorded",
		slog.String("event", "attendance.set"),
		slog.Int64("event_id", eventID),
		slog.Int64("member_id", memberID),
		slog.String("response", string(resp)),
	)
	return nil
}

// ForEvent lists all answers recorded for an event.
func (r *AttendanceRepo) ForEvent(ctx context.Context, eventID int64) ([]domain.Attendance, error) {
	var out []domain.Attendance
	err := r.db.SelectContext(ctx, &out,
		`SELECT event_id, member_id, response, responded_at
		   FROM attendance WHERE event_id = $1 ORDER BY responded_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("attendance: for event: %w", err)
	}
	return out, nil
}
