package dialog

import (
	"time"
)

// Kind identifies which step graph a session is running.
type Kind string

// Step names one stage of a dialog kind.
type Step string

// Payload is the dialog-kind-specific record accumulating answers so far.
// Each Kind has exactly one concrete payload type; implementations must be
// JSON round-trippable so the Redis store can persist them.
type Payload interface {
	DialogKind() Kind
}

// Session represents one in-progress dialog for one chat participant.
// At most one session exists per owner at any time.
type Session struct {
	OwnerID   int64
	Kind      Kind
	Step      Step
	Payload   Payload
	CreatedAt time.Time
}

// Expired reports whether the session is past its ttl at the given instant.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if s == nil {
		return true
	}
	return now.Sub(s.CreatedAt) > ttl
}

// Modality is the set of input kinds a step accepts.
type Modality uint8

const (
	// ModButton accepts inline button callbacks.
	ModButton Modality = 1 << iota
	// ModText accepts free-text messages.
	ModText
)

// Has reports whether m includes the given modality.
func (m Modality) Has(other Modality) bool {
	return m&other != 0
}

// Inbound is the normalized representation of one incoming event scoped to
// one owner: either a button press (Token set) or a typed message (Text set).
type Inbound struct {
	OwnerID int64
	Token   *Token
	Text    string
}

// IsButton reports whether the event is a button callback.
func (in Inbound) IsButton() bool {
	return in.Token != nil
}

// TextInbound builds a free-text inbound event.
func TextInbound(ownerID int64, text string) Inbound {
	return Inbound{OwnerID: ownerID, Text: text}
}

// ButtonInbound builds a button-press inbound event.
func ButtonInbound(ownerID int64, t Token) Inbound {
	return Inbound{OwnerID: ownerID, Token: &t}
}
