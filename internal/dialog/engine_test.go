package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// quizPayload exercises the engine with a three step flow: pick a color by
// button, type a note, confirm. A cross-step pin toggle mutates the payload
// from any step.
type quizPayload struct {
	Color  string `json:"color"`
	Note   string `json:"note"`
	Pinned bool   `json:"pinned"`
	Steps  int    `json:"steps"`
}

func (*quizPayload) DialogKind() Kind { return "quiz" }

const (
	famColor Family = "quiz_color"
	famPin   Family = "quiz_pin"
)

type quizCommits struct {
	mu    sync.Mutex
	count int
	fail  bool
}

func quizGraph(commits *quizCommits) *Graph {
	return &Graph{
		Kind:  "quiz",
		Start: "color",
		Steps: map[Step]StepSpec{
			"color": {
				Modality: ModButton,
				Accepts:  []Family{famColor},
				Prompt: func(context.Context, *Session) (Directive, error) {
					return Msg("quiz.pick_color"), nil
				},
				Handler: func(_ context.Context, s *Session, in Inbound) (Result, error) {
					p := s.Payload.(*quizPayload)
					p.Color = in.Token.Arg
					p.Steps++
					return Goto("note"), nil
				},
			},
			"note": {
				Modality: ModText,
				Prompt: func(context.Context, *Session) (Directive, error) {
					return Msg("quiz.type_note"), nil
				},
				Handler: func(_ context.Context, s *Session, in Inbound) (Result, error) {
					if in.Text == "" {
						return Stay(Msg("quiz.note_empty")), nil
					}
					p := s.Payload.(*quizPayload)
					p.Note = in.Text
					p.Steps++
					return Goto("confirm"), nil
				},
				Prev: "color",
			},
			"confirm": {
				Modality: ModButton,
				Accepts:  []Family{FamConfirm, FamEdit},
				Prompt: func(_ context.Context, s *Session) (Directive, error) {
					p := s.Payload.(*quizPayload)
					return Msg("quiz.confirm", p.Color, p.Note), nil
				},
				Handler: func(_ context.Context, s *Session, in Inbound) (Result, error) {
					if in.Token.Family == FamEdit {
						*s.Payload.(*quizPayload) = quizPayload{}
						return Goto("color"), nil
					}
					commits.mu.Lock()
					defer commits.mu.Unlock()
					if commits.fail {
						return Stay(Msg("quiz.commit_failed")), nil
					}
					commits.count++
					return Terminate(Msg("quiz.done")), nil
				},
				Prev: "note",
			},
		},
		CrossStep: map[Family]HandlerFunc{
			famPin: func(_ context.Context, s *Session, _ Inbound) (Result, error) {
				p := s.Payload.(*quizPayload)
				p.Pinned = !p.Pinned
				return Stay(Toast("quiz.pinned")), nil
			},
		},
		NewPayload: func() Payload { return &quizPayload{} },
	}
}

func newQuizEngine(t *testing.T) (*Engine, *quizCommits, *MemoryStore) {
	t.Helper()
	st := NewMemoryStore(time.Minute)
	eng := New(st, Options{})
	commits := &quizCommits{}
	if err := eng.Register(quizGraph(commits)); err != nil {
		t.Fatalf("register: %v", err)
	}
	return eng, commits, st
}

func press(f Family, arg string) Inbound {
	return ButtonInbound(42, NewToken(f, arg))
}

func say(text string) Inbound {
	return TextInbound(42, text)
}

func TestEngineHappyPath(t *testing.T) {
	ctx := context.Background()
	eng, commits, _ := newQuizEngine(t)

	d, err := eng.Start(ctx, 42, "quiz")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if d.Key != "quiz.pick_color" {
		t.Fatalf("expected start prompt, got %+v", d)
	}
	if !eng.InProgress(ctx, 42) {
		t.Fatal("expected dialog in progress")
	}
	if kind, ok := eng.ActiveKind(ctx, 42); !ok || kind != "quiz" {
		t.Fatalf("active kind: %v %v", kind, ok)
	}

	d, err = eng.Handle(ctx, press(famColor, "blue"))
	if err != nil {
		t.Fatalf("color: %v", err)
	}
	if d.Key != "quiz.type_note" {
		t.Fatalf("expected note prompt, got %+v", d)
	}

	d, err = eng.Handle(ctx, say("remember this"))
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	if d.Key != "quiz.confirm" {
		t.Fatalf("expected confirm prompt, got %+v", d)
	}
	if len(d.Args) != 2 || d.Args[0] != "blue" || d.Args[1] != "remember this" {
		t.Fatalf("confirm args: %+v", d.Args)
	}

	d, err = eng.Handle(ctx, press(FamConfirm, ""))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if d.Key != "quiz.done" {
		t.Fatalf("expected done, got %+v", d)
	}
	if commits.count != 1 {
		t.Fatalf("expected one commit, got %d", commits.count)
	}
	if eng.InProgress(ctx, 42) {
		t.Fatal("session should be cleared after commit")
	}
}

func TestEngineNoSession(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newQuizEngine(t)

	if _, err := eng.Handle(ctx, press(famColor, "red")); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestEngineCancelButtonAndText(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	d, err := eng.Handle(ctx, press(FamCancel, ""))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if d.Key != "dialog.cancelled" {
		t.Fatalf("expected cancel ack, got %+v", d)
	}
	if eng.InProgress(ctx, 42) {
		t.Fatal("session should be gone")
	}

	// Stale button after cancel is a plain no-session event.
	if _, err := eng.Handle(ctx, press(famColor, "red")); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for stale token, got %v", err)
	}

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	d, err = eng.Handle(ctx, say("  CANCEL "))
	if err != nil {
		t.Fatalf("text cancel: %v", err)
	}
	if d.Key != "dialog.cancelled" || eng.InProgress(ctx, 42) {
		t.Fatalf("text cancel did not clear: %+v", d)
	}
}

func TestEngineRoutingMiss(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Text at a button-only step.
	d, err := eng.Handle(ctx, say("blue"))
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
	if d.Notice != "dialog.not_understood" {
		t.Fatalf("expected miss toast, got %+v", d)
	}

	// Unknown family at any step.
	d, err = eng.Handle(ctx, press("alien_family", "x"))
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
	if d.Notice != "dialog.not_understood" {
		t.Fatalf("expected miss toast, got %+v", d)
	}

	// The session survives misses untouched.
	if kind, ok := eng.ActiveKind(ctx, 42); !ok || kind != "quiz" {
		t.Fatalf("session disturbed by miss: %v %v", kind, ok)
	}
}

func TestEngineBackRewinds(t *testing.T) {
	ctx := context.Background()
	eng, _, st := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := eng.Handle(ctx, press(famColor, "blue")); err != nil {
		t.Fatalf("color: %v", err)
	}
	if _, err := eng.Handle(ctx, say("first note")); err != nil {
		t.Fatalf("note: %v", err)
	}

	// Back from confirm lands on note and re-prompts as an edit.
	d, err := eng.Handle(ctx, press(FamBack, ""))
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if d.Key != "quiz.type_note" || !d.Edit {
		t.Fatalf("expected note re-prompt as edit, got %+v", d)
	}

	// Back is refused on the first step.
	d, err = eng.Handle(ctx, press(FamBack, ""))
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if d.Key != "quiz.pick_color" {
		t.Fatalf("expected color prompt, got %+v", d)
	}
	d, err = eng.Handle(ctx, press(FamBack, ""))
	if err != nil {
		t.Fatalf("back at start: %v", err)
	}
	if d.Notice != "dialog.not_understood" {
		t.Fatalf("back at first step should miss, got %+v", d)
	}

	// Moving forward again overwrites prior answers and reaches confirm
	// with the same shape as the first pass.
	if _, err := eng.Handle(ctx, press(famColor, "green")); err != nil {
		t.Fatalf("recolor: %v", err)
	}
	d, err = eng.Handle(ctx, say("second note"))
	if err != nil {
		t.Fatalf("renote: %v", err)
	}
	if d.Key != "quiz.confirm" || d.Args[0] != "green" || d.Args[1] != "second note" {
		t.Fatalf("confirm after rewind: %+v", d)
	}

	s, err := st.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Payload.(*quizPayload).Note != "second note" {
		t.Fatalf("later answer should win: %+v", s.Payload)
	}
}

func TestEngineEditRestartsFromScratch(t *testing.T) {
	ctx := context.Background()
	eng, _, st := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := eng.Handle(ctx, press(famColor, "blue")); err != nil {
		t.Fatalf("color: %v", err)
	}
	if _, err := eng.Handle(ctx, say("note")); err != nil {
		t.Fatalf("note: %v", err)
	}

	d, err := eng.Handle(ctx, press(FamEdit, ""))
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if d.Key != "quiz.pick_color" {
		t.Fatalf("expected restart prompt, got %+v", d)
	}

	s, err := st.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	p := s.Payload.(*quizPayload)
	if p.Color != "" || p.Note != "" || p.Steps != 0 {
		t.Fatalf("payload should be reset, got %+v", p)
	}
}

func TestEngineCommitFailurePreservesSession(t *testing.T) {
	ctx := context.Background()
	eng, commits, _ := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := eng.Handle(ctx, press(famColor, "blue")); err != nil {
		t.Fatalf("color: %v", err)
	}
	if _, err := eng.Handle(ctx, say("note")); err != nil {
		t.Fatalf("note: %v", err)
	}

	commits.fail = true
	d, err := eng.Handle(ctx, press(FamConfirm, ""))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if d.Key != "quiz.commit_failed" {
		t.Fatalf("expected failure message, got %+v", d)
	}
	if !eng.InProgress(ctx, 42) {
		t.Fatal("session must survive a failed commit")
	}

	// A retry after the outage succeeds.
	commits.fail = false
	d, err = eng.Handle(ctx, press(FamConfirm, ""))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if d.Key != "quiz.done" || commits.count != 1 {
		t.Fatalf("retry outcome: %+v commits=%d", d, commits.count)
	}
}

func TestEngineCrossStepTokenStays(t *testing.T) {
	ctx := context.Background()
	eng, _, st := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := eng.Handle(ctx, press(famColor, "blue")); err != nil {
		t.Fatalf("color: %v", err)
	}

	// Pin toggle belongs to no step but is recognized mid-dialog.
	d, err := eng.Handle(ctx, press(famPin, ""))
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if d.Notice != "quiz.pinned" {
		t.Fatalf("expected pin toast, got %+v", d)
	}

	s, err := st.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Step != "note" {
		t.Fatalf("cross-step token must not move the session, at %q", s.Step)
	}
	if !s.Payload.(*quizPayload).Pinned {
		t.Fatal("payload mutation lost")
	}
}

func TestEngineStartReplacesActiveDialog(t *testing.T) {
	ctx := context.Background()
	eng, _, st := newQuizEngine(t)

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := eng.Handle(ctx, press(famColor, "blue")); err != nil {
		t.Fatalf("color: %v", err)
	}

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s, err := st.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Step != "color" || s.Payload.(*quizPayload).Color != "" {
		t.Fatalf("restart should discard prior progress: %+v", s)
	}
}

func TestEngineStartSeedsPayload(t *testing.T) {
	ctx := context.Background()
	eng, _, st := newQuizEngine(t)

	_, err := eng.Start(ctx, 42, "quiz", func(p Payload) {
		p.(*quizPayload).Color = "preset"
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	s, err := st.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Payload.(*quizPayload).Color != "preset" {
		t.Fatalf("seed not applied: %+v", s.Payload)
	}
}

func TestEngineOwnsFamily(t *testing.T) {
	eng, _, _ := newQuizEngine(t)

	for _, f := range []Family{famColor, famPin, FamBack, FamCancel, FamConfirm, FamEdit} {
		if !eng.OwnsFamily(f) {
			t.Fatalf("engine should own %s", f)
		}
	}
	if eng.OwnsFamily("att_yes") {
		t.Fatal("attendance callbacks are not dialog vocabulary")
	}
}

func TestEngineCancelHelper(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newQuizEngine(t)

	cancelled, err := eng.Cancel(ctx, 42)
	if err != nil || cancelled {
		t.Fatalf("nothing to cancel: %v %v", cancelled, err)
	}

	if _, err := eng.Start(ctx, 42, "quiz"); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancelled, err = eng.Cancel(ctx, 42)
	if err != nil || !cancelled {
		t.Fatalf("expected cancel: %v %v", cancelled, err)
	}
	if eng.InProgress(ctx, 42) {
		t.Fatal("session should be gone")
	}
}

func TestEnginePerOwnerSerialization(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)
	eng := New(st, Options{})

	// A single text step that increments a counter non-atomically; only
	// per-owner serialization keeps the count exact.
	g := &Graph{
		Kind:  "counter",
		Start: "tick",
		Steps: map[Step]StepSpec{
			"tick": {
				Modality: ModText,
				Prompt: func(context.Context, *Session) (Directive, error) {
					return Msg("tick"), nil
				},
				Handler: func(_ context.Context, s *Session, _ Inbound) (Result, error) {
					p := s.Payload.(*quizPayload)
					n := p.Steps
					time.Sleep(time.Microsecond)
					p.Steps = n + 1
					return Stay(Msg("ticked")), nil
				},
			},
		},
		NewPayload: func() Payload { return &quizPayload{} },
	}
	if err := eng.Register(g); err != nil {
		t.Fatalf("register: %v", err)
	}

	const owners = 8
	const events = 25
	for o := int64(1); o <= owners; o++ {
		if _, err := eng.Start(ctx, o, "counter"); err != nil {
			t.Fatalf("start %d: %v", o, err)
		}
	}

	var wg sync.WaitGroup
	for o := int64(1); o <= owners; o++ {
		for i := 0; i < events; i++ {
			wg.Add(1)
			go func(owner int64, i int) {
				defer wg.Done()
				if _, err := eng.Handle(ctx, TextInbound(owner, fmt.Sprintf("tick %d", i))); err != nil {
					t.Errorf("handle owner=%d: %v", owner, err)
				}
			}(o, i)
		}
	}
	wg.Wait()

	for o := int64(1); o <= owners; o++ {
		s, err := st.Get(ctx, o)
		if err != nil {
			t.Fatalf("get %d: %v", o, err)
		}
		if got := s.Payload.(*quizPayload).Steps; got != events {
			t.Fatalf("owner %d: expected %d serialized ticks, got %d", o, events, got)
		}
	}
}
