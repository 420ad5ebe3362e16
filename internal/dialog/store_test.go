package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type notePayload struct {
	Text string `json:"text"`
}

func (*notePayload) DialogKind() Kind { return "note" }

func TestMemoryStoreSetGetClear(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)

	if _, err := st.Get(ctx, 1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	s := &Session{OwnerID: 1, Kind: "note", Step: "text", Payload: &notePayload{Text: "hi"}}
	if err := st.Set(ctx, s); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := st.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != "note" || got.Step != "text" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}
	if got.Payload.(*notePayload).Text != "hi" {
		t.Fatalf("payload lost: %+v", got.Payload)
	}

	if err := st.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := st.Get(ctx, 1); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestMemoryStoreReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)

	if err := st.Set(ctx, &Session{OwnerID: 7, Kind: "note", Step: "a", Payload: &notePayload{}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, &Session{OwnerID: 7, Kind: "other", Step: "b", Payload: &notePayload{}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := st.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != "other" || got.Step != "b" {
		t.Fatalf("expected replacement to win, got %+v", got)
	}
	if st.Len() != 1 {
		t.Fatalf("expected a single stored session, got %d", st.Len())
	}
}

func TestMemoryStoreExpiryEvictsOnGet(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(10 * time.Minute)

	base := time.Date(2025, 1, 25, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	if err := st.Set(ctx, &Session{OwnerID: 3, Kind: "note", Step: "text", Payload: &notePayload{}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Just inside the window.
	st.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, err := st.Get(ctx, 3); err != nil {
		t.Fatalf("session should still be live: %v", err)
	}

	// Past the window: Get must report no session and evict the entry.
	st.now = func() time.Time { return base.Add(10*time.Minute + time.Second) }
	if _, err := st.Get(ctx, 3); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("expected eviction, %d sessions remain", st.Len())
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(10 * time.Minute)

	base := time.Date(2025, 1, 25, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	for i := int64(1); i <= 3; i++ {
		if err := st.Set(ctx, &Session{OwnerID: i, Kind: "note", Step: "text", Payload: &notePayload{}}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	st.now = func() time.Time { return base.Add(5 * time.Minute) }
	if err := st.Set(ctx, &Session{OwnerID: 4, Kind: "note", Step: "text", Payload: &notePayload{}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	st.now = func() time.Time { return base.Add(12 * time.Minute) }
	evicted, err := st.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if evicted != 3 {
		t.Fatalf("expected 3 evictions, got %d", evicted)
	}
	if st.Len() != 1 {
		t.Fatalf("expected 1 survivor, got %d", st.Len())
	}
}

func TestMemoryStoreConcurrentOwners(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = st.Set(ctx, &Session{OwnerID: owner, Kind: "note", Step: "text", Payload: &notePayload{}})
				_, _ = st.Get(ctx, owner)
				if j%5 == 0 {
					_ = st.Clear(ctx, owner)
				}
			}
		}(int64(i))
	}
	wg.Wait()
}

func TestSessionGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)

	if err := st.Set(ctx, &Session{OwnerID: 9, Kind: "note", Step: "text", Payload: &notePayload{}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	a, _ := st.Get(ctx, 9)
	a.Step = "mutated"

	b, _ := st.Get(ctx, 9)
	if b.Step != "text" {
		t.Fatalf("stored session mutated through returned copy: %q", b.Step)
	}
}

func TestMemoryStoreGetIsolatesPayload(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)

	if err := st.Set(ctx, &Session{OwnerID: 9, Kind: "note", Step: "text", Payload: &notePayload{Text: "draft"}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A handler that mutates the payload and then fails must not leak the
	// partial mutation into the store without a Set.
	a, _ := st.Get(ctx, 9)
	a.Payload.(*notePayload).Text = "half-written"

	b, _ := st.Get(ctx, 9)
	if got := b.Payload.(*notePayload).Text; got != "draft" {
		t.Fatalf("stored payload mutated through returned copy: %q", got)
	}

	// The caller's payload stays theirs after Set, too.
	seed := &notePayload{Text: "original"}
	if err := st.Set(ctx, &Session{OwnerID: 10, Kind: "note", Step: "text", Payload: seed}); err != nil {
		t.Fatalf("set: %v", err)
	}
	seed.Text = "changed after set"
	c, _ := st.Get(ctx, 10)
	if got := c.Payload.(*notePayload).Text; got != "original" {
		t.Fatalf("stored payload aliased the caller's record: %q", got)
	}
}
