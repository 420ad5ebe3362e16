package dialog

import (
	"strings"
)

// route is the classification outcome for one inbound event against one
// live session. Classification is pure: it inspects the event, the session
// step, and the graph tables, and never touches storage.
type route uint8

const (
	// routeCancel terminates the dialog regardless of step.
	routeCancel route = iota
	// routeBack rewinds to the step's declared predecessor.
	routeBack
	// routeStep dispatches to the current step's handler.
	routeStep
	// routeCross dispatches to a cross-step sub-flow handler.
	routeCross
	// routeMiss means the event matched nothing the step understands.
	routeMiss
)

// defaultCancelWords are the free-text phrases treated as a cancel request
// while a dialog is active. Matching is case-insensitive.
var defaultCancelWords = []string{"/cancel", "cancel"}

func isCancelText(text string, words []string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, w := range words {
		if t == w {
			return true
		}
	}
	return false
}

// classify decides, in priority order, how the event relates to the active
// step: cancel intent first, then the current step's declared vocabulary,
// then the graph's cross-step families, and finally a routing miss.
func classify(g *Graph, sp StepSpec, in Inbound, cancelWords []string) route {
	if in.IsButton() {
		switch in.Token.Family {
		case FamCancel:
			return routeCancel
		case FamBack:
			if sp.Prev != "" {
				return routeBack
			}
			return routeMiss
		}
		if sp.Modality.Has(ModButton) && sp.accepts(in.Token.Family) {
			return routeStep
		}
		if _, ok := g.CrossStep[in.Token.Family]; ok {
			return routeCross
		}
		return routeMiss
	}

	if isCancelText(in.Text, cancelWords) {
		return routeCancel
	}
	if sp.Modality.Has(ModText) {
		return routeStep
	}
	return routeMiss
}
