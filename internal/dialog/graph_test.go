package dialog

import (
	"context"
	"strings"
	"testing"
)

func noopPrompt(context.Context, *Session) (Directive, error) {
	return Msg("prompt"), nil
}

func noopHandler(context.Context, *Session, Inbound) (Result, error) {
	return Stay(Directive{}), nil
}

func validGraph() *Graph {
	return &Graph{
		Kind:  "note",
		Start: "text",
		Steps: map[Step]StepSpec{
			"text": {
				Modality: ModText,
				Prompt:   noopPrompt,
				Handler:  noopHandler,
			},
			"confirm": {
				Modality: ModButton,
				Accepts:  []Family{FamConfirm, FamEdit},
				Prompt:   noopPrompt,
				Handler:  noopHandler,
				Prev:     "text",
			},
		},
		NewPayload: func() Payload { return &notePayload{} },
	}
}

func TestGraphValidateAcceptsWellFormed(t *testing.T) {
	if err := validGraph().Validate(); err != nil {
		t.Fatalf("expected valid graph, got %v", err)
	}
}

func TestGraphValidateRejectsBroken(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Graph)
		wantSub string
	}{
		{"missing start", func(g *Graph) { g.Start = "nope" }, "start step"},
		{"no payload factory", func(g *Graph) { g.NewPayload = nil }, "payload factory"},
		{"no prompt", func(g *Graph) {
			sp := g.Steps["text"]
			sp.Prompt = nil
			g.Steps["text"] = sp
		}, "no prompt"},
		{"no handler", func(g *Graph) {
			sp := g.Steps["text"]
			sp.Handler = nil
			g.Steps["text"] = sp
		}, "no handler"},
		{"zero modality", func(g *Graph) {
			sp := g.Steps["text"]
			sp.Modality = 0
			g.Steps["text"] = sp
		}, "no modality"},
		{"button step without families", func(g *Graph) {
			sp := g.Steps["confirm"]
			sp.Accepts = nil
			g.Steps["confirm"] = sp
		}, "declares no families"},
		{"dangling prev", func(g *Graph) {
			sp := g.Steps["confirm"]
			sp.Prev = "ghost"
			g.Steps["confirm"] = sp
		}, "undeclared step"},
		{"coordinator family declared", func(g *Graph) {
			sp := g.Steps["confirm"]
			sp.Accepts = []Family{FamCancel}
			g.Steps["confirm"] = sp
		}, "coordinator family"},
		{"control family cross-step", func(g *Graph) {
			g.CrossStep = map[Family]HandlerFunc{FamEdit: noopHandler}
		}, "control family"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := validGraph()
			tc.mutate(g)
			err := g.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestGraphOwnsVocabulary(t *testing.T) {
	g := validGraph()
	g.CrossStep = map[Family]HandlerFunc{"note_pin": noopHandler}

	if !g.owns(FamConfirm) {
		t.Fatal("confirm is declared by the confirm step")
	}
	if !g.owns("note_pin") {
		t.Fatal("cross-step family should be owned")
	}
	if g.owns("alien") {
		t.Fatal("unknown family should not be owned")
	}
}
