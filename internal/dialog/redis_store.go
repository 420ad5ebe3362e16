package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dialog:session:"

// PayloadFactory produces an empty payload for one dialog kind so stored
// JSON can be decoded back into its concrete type.
type PayloadFactory func() Payload

// RedisStore persists sessions in Redis with a server-side TTL, so expiry
// needs no sweeping. Payloads are stored as a JSON envelope tagged with the
// dialog kind and decoded through registered factories.
type RedisStore struct {
	client    redis.UniversalClient
	ttl       time.Duration
	factories map[Kind]PayloadFactory
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:    client,
		ttl:       ttl,
		factories: make(map[Kind]PayloadFactory),
	}
}

// RegisterPayload associates a dialog kind with its payload constructor.
// Sessions of unregistered kinds cannot be decoded.
func (r *RedisStore) RegisterPayload(kind Kind, f PayloadFactory) {
	r.factories[kind] = f
}

type sessionEnvelope struct {
	Kind      Kind            `json:"kind"`
	Step      Step            `json:"step"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

func redisKey(ownerID int64) string {
	return redisKeyPrefix + strconv.FormatInt(ownerID, 10)
}

// Set stores the session under the owner's key and refreshes the TTL.
func (r *RedisStore) Set(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("dialog: nil session")
	}
	raw, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("dialog: encode payload: %w", err)
	}
	env := sessionEnvelope{
		Kind:      s.Kind,
		Step:      s.Step,
		CreatedAt: time.Now().UTC(),
		Payload:   raw,
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("dialog: encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.OwnerID), blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("dialog: redis set: %w", err)
	}
	return nil
}

// Get loads the owner's session. Redis handles expiry server-side, so a
// missing key simply means no session.
func (r *RedisStore) Get(ctx context.Context, ownerID int64) (*Session, error) {
	blob, err := r.client.Get(ctx, redisKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("dialog: redis get: %w", err)
	}

	var env sessionEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, fmt.Errorf("dialog: decode session: %w", err)
	}
	factory, ok := r.factories[env.Kind]
	if !ok {
		return nil, fmt.Errorf("dialog: no payload factory for kind %q", env.Kind)
	}
	payload := factory()
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return nil, fmt.Errorf("dialog: decode payload: %w", err)
	}

	return &Session{
		OwnerID:   ownerID,
		Kind:      env.Kind,
		Step:      env.Step,
		Payload:   payload,
		CreatedAt: env.CreatedAt,
	}, nil
}

// Clear removes the owner's session key.
func (r *RedisStore) Clear(ctx context.Context, ownerID int64) error {
	if err := r.client.Del(ctx, redisKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("dialog: redis del: %w", err)
	}
	return nil
}
