// Package domain defines the planning data model and the storage contracts
// the dialog flows commit against.
package domain

import (
	"time"
)

// Member is a registered team participant mapped to a Telegram account.
type Member struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	Username   string    `db:"username"`
	IsAdmin    bool      `db:"is_admin"`
	CreatedAt  time.Time `db:"created_at"`
}

// DisplayName returns the best human label available for the member.
func (m *Member) DisplayName() string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	case m.Username != "":
		return "@" + m.Username
	default:
		return "—"
	}
}

// EventTemplate is a reusable event blueprint selectable at the start of
// the event wizard. TitleKey points into the message catalog so templates
// render localized.
type EventTemplate struct {
	ID       int64  `db:"id"`
	Code     string `db:"code"`
	TitleKey string `db:"title_key"`
	Weekday  int    `db:"weekday"`
}

// Location is a known venue offered as a quick pick in the wizard.
type Location struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Event is one scheduled gathering with its setlist and role assignments.
type Event struct {
	ID           int64     `db:"id"`
	TemplateCode string    `db:"template_code"`
	Title        string    `db:"title"`
	StartsAt     time.Time `db:"starts_at"`
	Location     string    `db:"location"`
	CreatedBy    int64     `db:"created_by"`
	CreatedAt    time.Time `db:"created_at"`
}

// Song is a repertoire entry.
type Song struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Author    string    `db:"author"`
	SongKey   string    `db:"song_key"`
	Tempo     int       `db:"tempo"`
	Chords    string    `db:"chords"`
	CreatedAt time.Time `db:"created_at"`
}

// SetlistEntry binds a song to an event at a position. Positions reflect
// the order songs were picked.
type SetlistEntry struct {
	EventID  int64 `db:"event_id"`
	SongID   int64 `db:"song_id"`
	Position int   `db:"position"`
}

// Role is a serving position that members get assigned to per event.
type Role struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Assignment is one role slot on an event. A nil MemberID means the slot is
// still open. RoleName and MemberName are filled by reads that join the
// reference tables.
type Assignment struct {
	ID         int64  `db:"id"`
	EventID    int64  `db:"event_id"`
	RoleID     int64  `db:"role_id"`
	MemberID   *int64 `db:"member_id"`
	RoleName   string `db:"role_name"`
	MemberName string `db:"member_name"`
}

// Filled reports whether the slot has a member.
func (a *Assignment) Filled() bool { return a.MemberID != nil }

// Response is a member's attendance answer for an event.
type Response string

// Attendance responses.
const (
	ResponseYes   Response = "yes"
	ResponseNo    Response = "no"
	ResponseMaybe Response = "maybe"
)

// Valid reports whether r is one of the known responses.
func (r Response) Valid() bool {
	switch r {
	case ResponseYes, ResponseNo, ResponseMaybe:
		return true
	}
	return false
}

// Attendance is one member's latest answer for one event.
type Attendance struct {
	EventID     int64     `db:"event_id"`
	MemberID    int64     `db:"member_id"`
	Response    Response  `db:"response"`
	RespondedAt time.Time `db:"responded_at"`
}

// SongField names an editable song attribute.
type SongField string

// Editable song fields.
const (
	FieldTitle  SongField = "title"
	FieldAuthor SongField = "author"
	FieldKey    SongField = "key"
	FieldTempo  SongField = "tempo"
)

// Valid reports whether f is an editable song field.
func (f SongField) Valid() bool {
	switch f {
	case FieldTitle, FieldAuthor, FieldKey, FieldTempo:
		return true
	}
	return false
}
