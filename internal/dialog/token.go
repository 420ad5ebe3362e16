package dialog

import (
	"strings"
)

// Family is the stable callback namespace of an action token. The family is
// what gets embedded into inline button unique keys; the argument rides in
// the callback payload.
type Family string

// Shared control families recognized across all dialog kinds.
const (
	// FamBack rewinds to the previous step of the active graph.
	FamBack Family = "dlg_back"
	// FamCancel terminates the active dialog without committing.
	FamCancel Family = "dlg_cancel"
	// FamConfirm commits the accumulated payload on a confirmation step.
	FamConfirm Family = "dlg_confirm"
	// FamEdit restarts the dialog from its first step with a fresh payload.
	FamEdit Family = "dlg_edit"
)

// Token is a decoded button action: a family plus an optional argument.
// Tokens are decoded exactly once at the transport boundary; everything
// past the classifier works with the typed form.
type Token struct {
	Family Family
	Arg    string
}

// NewToken builds a token for the given family and argument.
func NewToken(f Family, arg string) Token {
	return Token{Family: f, Arg: arg}
}

// Encode returns the callback unique key and payload for an inline button.
func (t Token) Encode() (unique, data string) {
	return string(t.Family), t.Arg
}

// DecodeToken rebuilds a token from a parsed callback key and payload.
// The caller is expected to have split the raw callback data already;
// DecodeToken only normalizes the parts.
func DecodeToken(key, payload string) Token {
	return Token{
		Family: Family(strings.TrimSpace(key)),
		Arg:    strings.TrimSpace(payload),
	}
}

// controlFamilies are claimed by the engine for every graph. Back and cancel
// are handled by the coordinator itself; confirm and edit reach the step
// handler like ordinary families but share one callback namespace.
var controlFamilies = map[Family]struct{}{
	FamBack:    {},
	FamCancel:  {},
	FamConfirm: {},
	FamEdit:    {},
}

// ControlFamily reports whether f is one of the cross-kind control families.
func ControlFamily(f Family) bool {
	_, ok := controlFamilies[f]
	return ok
}
