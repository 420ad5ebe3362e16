package dialog

import (
	"context"
	"fmt"
)

// HandlerFunc processes one inbound event for one step. It may mutate the
// session payload; the coordinator persists the session afterwards according
// to the returned Result.
type HandlerFunc func(ctx context.Context, s *Session, in Inbound) (Result, error)

// PromptFunc renders the question a step asks, including its keyboard.
// Prompts are used when a step is entered, re-entered via back, or restarted.
type PromptFunc func(ctx context.Context, s *Session) (Directive, error)

// StepSpec declares one step of a graph: which input modalities it accepts,
// which token families its handler understands, how it is presented, and
// where back leads.
type StepSpec struct {
	Modality Modality
	Accepts  []Family
	Prompt   PromptFunc
	Handler  HandlerFunc

	// Prev is the rewind target for the shared back control. Empty means
	// back is not offered on this step.
	Prev Step
}

func (sp StepSpec) accepts(f Family) bool {
	for _, a := range sp.Accepts {
		if a == f {
			return true
		}
	}
	return false
}

// Graph is the static step table of one dialog kind. All transitions are
// declared up front; handlers choose among declared steps at runtime but
// never invent new ones.
type Graph struct {
	Kind  Kind
	Start Step
	Steps map[Step]StepSpec

	// CrossStep maps token families that remain actionable regardless of
	// the current step (sub-flow controls rendered on earlier keyboards)
	// to the handler processing them. Cross-step handlers mutate payload
	// without moving the session.
	CrossStep map[Family]HandlerFunc

	// NewPayload constructs an empty payload for this kind. Used when a
	// dialog starts and when a stored payload must be decoded.
	NewPayload PayloadFactory
}

// Validate checks the structural integrity of the graph: the start step
// exists, every step has a prompt, every non-terminal exit points at a
// declared step, and modality masks are consistent with declared families.
func (g *Graph) Validate() error {
	if g.Kind == "" {
		return fmt.Errorf("dialog: graph has empty kind")
	}
	if g.NewPayload == nil {
		return fmt.Errorf("dialog: graph %q has no payload factory", g.Kind)
	}
	if len(g.Steps) == 0 {
		return fmt.Errorf("dialog: graph %q has no steps", g.Kind)
	}
	if _, ok := g.Steps[g.Start]; !ok {
		return fmt.Errorf("dialog: graph %q start step %q not declared", g.Kind, g.Start)
	}

	for name, sp := range g.Steps {
		if sp.Prompt == nil {
			return fmt.Errorf("dialog: graph %q step %q has no prompt", g.Kind, name)
		}
		if sp.Handler == nil {
			return fmt.Errorf("dialog: graph %q step %q has no handler", g.Kind, name)
		}
		if sp.Modality == 0 {
			return fmt.Errorf("dialog: graph %q step %q accepts no modality", g.Kind, name)
		}
		if sp.Modality.Has(ModButton) && len(sp.Accepts) == 0 {
			return fmt.Errorf("dialog: graph %q step %q accepts buttons but declares no families", g.Kind, name)
		}
		if sp.Prev != "" {
			if _, ok := g.Steps[sp.Prev]; !ok {
				return fmt.Errorf("dialog: graph %q step %q rewinds to undeclared step %q", g.Kind, name, sp.Prev)
			}
		}
		for _, f := range sp.Accepts {
			if f == FamBack || f == FamCancel {
				return fmt.Errorf("dialog: graph %q step %q declares coordinator family %q", g.Kind, name, f)
			}
		}
	}

	for f := range g.CrossStep {
		if ControlFamily(f) {
			return fmt.Errorf("dialog: graph %q cross-step family %q is a control family", g.Kind, f)
		}
	}
	return nil
}

// owns reports whether the given family belongs to this graph's vocabulary.
func (g *Graph) owns(f Family) bool {
	if _, ok := g.CrossStep[f]; ok {
		return true
	}
	for _, sp := range g.Steps {
		if sp.accepts(f) {
			return true
		}
	}
	return false
}

// step returns the spec for a declared step.
func (g *Graph) step(name Step) (StepSpec, bool) {
	sp, ok := g.Steps[name]
	return sp, ok
}
