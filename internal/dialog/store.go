package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"
)

// ErrNoSession is returned by Get when the owner has no live session,
// including the case where a stored session was found expired.
var ErrNoSession = errors.New("dialog: no active session")

// DefaultTTL is the session inactivity window applied when a store is built
// with a non-positive ttl.
const DefaultTTL = 10 * time.Minute

// Store persists at most one session per owner. Set replaces any previous
// session for the same owner and stamps CreatedAt; Get never returns an
// expired session.
type Store interface {
	Set(ctx context.Context, s *Session) error
	Get(ctx context.Context, ownerID int64) (*Session, error)
	Clear(ctx context.Context, ownerID int64) error
}

// Sweeper is optionally implemented by stores that support batch eviction
// of expired sessions. Stores with server-side expiry need not implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// MemoryStore keeps sessions in process memory guarded by a RWMutex.
// Expiry is passive: expired entries are evicted when touched by Get,
// or in bulk by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore builds an in-memory store with the given ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Set stores the session for its owner, replacing any previous one.
func (m *MemoryStore) Set(_ context.Context, s *Session) error {
	if s == nil {
		return errors.New("dialog: nil session")
	}
	cp := *s
	cp.CreatedAt = m.now()
	payload, err := clonePayload(s.Payload)
	if err != nil {
		return err
	}
	cp.Payload = payload

	m.mu.Lock()
	m.sessions[cp.OwnerID] = &cp
	m.mu.Unlock()
	return nil
}

// Get returns the owner's live session, evicting it first if expired.
func (m *MemoryStore) Get(_ context.Context, ownerID int64) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[ownerID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	if s.Expired(m.now(), m.ttl) {
		m.mu.Lock()
		// Re-check under the write lock: the entry may have been replaced.
		if cur, ok := m.sessions[ownerID]; ok && cur.Expired(m.now(), m.ttl) {
			delete(m.sessions, ownerID)
		}
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	cp := *s
	payload, err := clonePayload(s.Payload)
	if err != nil {
		return nil, err
	}
	cp.Payload = payload
	return &cp, nil
}

// clonePayload returns an independent copy of the payload so nothing stored
// is reachable through a returned Session. Handler mutations only land in
// the store through an explicit Set, matching the Redis store. Payloads must
// already round-trip through JSON for Redis persistence.
func clonePayload(p Payload) (Payload, error) {
	if p == nil {
		return nil, nil
	}
	t := reflect.TypeOf(p)
	if t.Kind() != reflect.Pointer {
		return nil, errors.New("dialog: payload must be a pointer")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	cp := reflect.New(t.Elem()).Interface().(Payload)
	if err := json.Unmarshal(raw, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Clear removes the owner's session if present.
func (m *MemoryStore) Clear(_ context.Context, ownerID int64) error {
	m.mu.Lock()
	delete(m.sessions, ownerID)
	m.mu.Unlock()
	return nil
}

// Sweep evicts every expired session and reports how many were removed.
func (m *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := m.now()
	evicted := 0

	m.mu.Lock()
	for owner, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			delete(m.sessions, owner)
			evicted++
		}
	}
	m.mu.Unlock()
	return evicted, nil
}

// Len reports the number of stored sessions, expired entries included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
