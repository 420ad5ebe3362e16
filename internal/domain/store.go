package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced record does not exist. Flows
// treat it as a recoverable condition (stale button, deleted record), never
// as a crash.
var ErrNotFound = errors.New("domain: not found")

// MemberStore manages team members.
type MemberStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
	Upsert(ctx context.Context, m *Member) (*Member, error)
}

// TemplateStore exposes the event blueprints offered by the wizard.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]EventTemplate, error)
	GetTemplate(ctx context.Context, code string) (*EventTemplate, error)
}

// LocationStore exposes known venues.
type LocationStore interface {
	ListLocations(ctx context.Context) ([]Location, error)
}

// EventStore persists events with their setlists and role slots.
type EventStore interface {
	// Create inserts the event, its setlist entries in the given song
	// order, and one open role slot per role id, all in one transaction.
	// Either everything is written or nothing is.
	Create(ctx context.Context, e *Event, songIDs, roleIDs []int64) (int64, error)
	Upcoming(ctx context.Context, limit int) ([]Event, error)
	Setlist(ctx context.Context, eventID int64) ([]Song, error)
	// Assignments returns the event's role slots, open ones included.
	Assignments(ctx context.Context, eventID int64) ([]Assignment, error)
	// AssignMember fills the event's slot for the role. ErrNotFound means
	// the slot does not exist.
	AssignMember(ctx context.Context, eventID, roleID, memberID int64) error
}

// SongStore manages the repertoire.
type SongStore interface {
	ListSongs(ctx context.Context) ([]Song, error)
	GetSong(ctx context.Context, id int64) (*Song, error)
	CreateSong(ctx context.Context, title string) (*Song, error)
	UpdateSongField(ctx context.Context, id int64, field SongField, value string) error
	SetChords(ctx context.Context, id int64, chords string) error
}

// RoleStore manages serving roles.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	RenameRole(ctx context.Context, id int64, name string) error
}

// AttendanceStore records attendance answers. Repeat answers overwrite.
type AttendanceStore interface {
	SetResponse(ctx context.Context, eventID, memberID int64, r Response) error
	ForEvent(ctx context.Context, eventID int64) ([]Attendance, error)
}
