package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/m3rciful/planbot/core/logger"
)

// Engine is the dialog coordinator. It looks up the owner's session,
// classifies the inbound event against the active step graph, runs the
// matched handler, and persists the outcome. Events of the same owner are
// strictly serialized; different owners proceed independently.
type Engine struct {
	store       Store
	graphs      map[Kind]*Graph
	cancelWords []string
	locks       ownerLocks
}

// Options tune engine behaviour.
type Options struct {
	// CancelWords overrides the free-text cancel vocabulary.
	CancelWords []string
}

// New builds an engine over the given session store.
func New(store Store, opts Options) *Engine {
	words := opts.CancelWords
	if len(words) == 0 {
		words = defaultCancelWords
	}
	return &Engine{
		store:       store,
		graphs:      make(map[Kind]*Graph),
		cancelWords: words,
		locks:       ownerLocks{held: make(map[int64]*ownerLock)},
	}
}

// Register validates a graph and adds it to the engine. Registering a kind
// twice is a programming error.
func (e *Engine) Register(g *Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if _, dup := e.graphs[g.Kind]; dup {
		return fmt.Errorf("dialog: kind %q already registered", g.Kind)
	}
	e.graphs[g.Kind] = g
	if rs, ok := e.store.(*RedisStore); ok {
		rs.RegisterPayload(g.Kind, g.NewPayload)
	}
	return nil
}

// Start creates a fresh session of the given kind for the owner, replacing
// any dialog already in progress, and returns the first step's prompt.
// Seed functions may pre-fill the payload before it is stored.
func (e *Engine) Start(ctx context.Context, ownerID int64, kind Kind, seed ...func(Payload)) (Directive, error) {
	g, ok := e.graphs[kind]
	if !ok {
		return Directive{}, fmt.Errorf("dialog: unknown kind %q", kind)
	}

	unlock := e.locks.lock(ownerID)
	defer unlock()

	payload := g.NewPayload()
	for _, fn := range seed {
		fn(payload)
	}
	s := &Session{
		OwnerID: ownerID,
		Kind:    kind,
		Step:    g.Start,
		Payload: payload,
	}
	if err := e.store.Set(ctx, s); err != nil {
		return Directive{}, err
	}

	logger.Dialog.LogAttrs(ctx, slog.LevelInfo, "dialog started",
		slog.String("event", "session.start"),
		slog.String("kind", string(kind)),
		slog.String("step", string(g.Start)),
		slog.Int64("user_id", ownerID),
	)

	sp, _ := g.step(g.Start)
	return sp.Prompt(ctx, s)
}

// Handle processes one inbound event for its owner. It returns ErrNoSession
// when the owner has no live dialog so the caller can fall back to
// non-dialog handling.
func (e *Engine) Handle(ctx context.Context, in Inbound) (Directive, error) {
	unlock := e.locks.lock(in.OwnerID)
	defer unlock()

	s, err := e.store.Get(ctx, in.OwnerID)
	if err != nil {
		return Directive{}, err
	}
	g, ok := e.graphs[s.Kind]
	if !ok {
		// A stored session of an unregistered kind is unrecoverable.
		_ = e.store.Clear(ctx, in.OwnerID)
		return Directive{}, fmt.Errorf("dialog: session kind %q has no graph", s.Kind)
	}
	sp, ok := g.step(s.Step)
	if !ok {
		_ = e.store.Clear(ctx, in.OwnerID)
		return Directive{}, fmt.Errorf("dialog: session step %q not in graph %q", s.Step, s.Kind)
	}

	switch classify(g, sp, in, e.cancelWords) {
	case routeCancel:
		if err := e.store.Clear(ctx, in.OwnerID); err != nil {
			return Directive{}, err
		}
		logger.Dialog.LogAttrs(ctx, slog.LevelInfo, "dialog cancelled",
			slog.String("event", "session.cancel"),
			slog.String("kind", string(s.Kind)),
			slog.String("step", string(s.Step)),
			slog.Int64("user_id", in.OwnerID),
		)
		return Msg("dialog.cancelled"), nil

	case routeBack:
		return e.rewind(ctx, g, s, sp.Prev)

	case routeCross:
		handler := g.CrossStep[in.Token.Family]
		res, err := handler(ctx, s, in)
		if err != nil {
			return Directive{}, err
		}
		// Cross-step handlers never move the session.
		res.Action = ActionStay
		return e.apply(ctx, g, s, res)

	case routeStep:
		res, err := sp.Handler(ctx, s, in)
		if err != nil {
			return Directive{}, err
		}
		return e.apply(ctx, g, s, res)

	default:
		logger.Dialog.LogAttrs(ctx, slog.LevelDebug, "routing miss",
			slog.String("event", "session.miss"),
			slog.String("kind", string(s.Kind)),
			slog.String("step", string(s.Step)),
			slog.Int64("user_id", in.OwnerID),
		)
		return Toast("dialog.not_understood"), nil
	}
}

// rewind moves the session to the declared predecessor and re-prompts it.
// Field values already written by later steps stay in the payload; forward
// handlers overwrite them on the next pass.
func (e *Engine) rewind(ctx context.Context, g *Graph, s *Session, prev Step) (Directive, error) {
	sp, ok := g.step(prev)
	if !ok {
		return Directive{}, fmt.Errorf("dialog: rewind target %q not in graph %q", prev, g.Kind)
	}
	s.Step = prev
	if err := e.store.Set(ctx, s); err != nil {
		return Directive{}, err
	}
	d, err := sp.Prompt(ctx, s)
	if err != nil {
		return Directive{}, err
	}
	return d.AsEdit(), nil
}

// apply persists the handler outcome and resolves the directive to present.
func (e *Engine) apply(ctx context.Context, g *Graph, s *Session, res Result) (Directive, error) {
	switch res.Action {
	case ActionTerminate:
		if err := e.store.Clear(ctx, s.OwnerID); err != nil {
			return Directive{}, err
		}
		logger.Dialog.LogAttrs(ctx, slog.LevelInfo, "dialog finished",
			slog.String("event", "session.done"),
			slog.String("kind", string(s.Kind)),
			slog.Int64("user_id", s.OwnerID),
		)
		return res.Directive, nil

	case ActionGoto:
		sp, ok := g.step(res.Next)
		if !ok {
			return Directive{}, fmt.Errorf("dialog: handler moved to undeclared step %q in graph %q", res.Next, g.Kind)
		}
		s.Step = res.Next
		if err := e.store.Set(ctx, s); err != nil {
			return Directive{}, err
		}
		if res.Directive.IsZero() {
			return sp.Prompt(ctx, s)
		}
		return res.Directive, nil

	default:
		// Stay: persist payload mutations without moving.
		if err := e.store.Set(ctx, s); err != nil {
			return Directive{}, err
		}
		return res.Directive, nil
	}
}

// InProgress reports whether the owner has a live dialog.
func (e *Engine) InProgress(ctx context.Context, ownerID int64) bool {
	_, err := e.store.Get(ctx, ownerID)
	return err == nil
}

// ActiveKind returns the kind of the owner's live dialog, if any.
func (e *Engine) ActiveKind(ctx context.Context, ownerID int64) (Kind, bool) {
	s, err := e.store.Get(ctx, ownerID)
	if err != nil {
		return "", false
	}
	return s.Kind, true
}

// Cancel terminates the owner's dialog if one is active. It reports whether
// there was anything to cancel.
func (e *Engine) Cancel(ctx context.Context, ownerID int64) (bool, error) {
	unlock := e.locks.lock(ownerID)
	defer unlock()

	if _, err := e.store.Get(ctx, ownerID); err != nil {
		if errors.Is(err, ErrNoSession) {
			return false, nil
		}
		return false, err
	}
	if err := e.store.Clear(ctx, ownerID); err != nil {
		return false, err
	}
	return true, nil
}

// OwnsFamily reports whether the engine claims the given token family:
// either a cross-kind control or part of any registered graph's vocabulary.
func (e *Engine) OwnsFamily(f Family) bool {
	if ControlFamily(f) {
		return true
	}
	for _, g := range e.graphs {
		if g.owns(f) {
			return true
		}
	}
	return false
}

// RunSweeper periodically evicts expired sessions until ctx is done. It is
// a no-op for stores without sweep support.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	sw, ok := e.store.(Sweeper)
	if !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := sw.Sweep(ctx)
			if err != nil {
				logger.Dialog.Warn("session sweep failed",
					slog.String("event", "session.sweep"),
					slog.String("err", err.Error()),
				)
				continue
			}
			if evicted > 0 {
				logger.Dialog.Debug("sessions evicted",
					slog.String("event", "session.sweep"),
					slog.Int("evicted", evicted),
				)
			}
		}
	}
}

// ownerLocks hands out one mutex per owner on demand and reclaims it once
// no goroutine holds or waits for it.
type ownerLocks struct {
	mu   sync.Mutex
	held map[int64]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func (l *ownerLocks) lock(ownerID int64) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.held[ownerID]
	if !ok {
		entry = &ownerLock{}
		l.held[ownerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, ownerID)
		}
		l.mu.Unlock()
	}
}
