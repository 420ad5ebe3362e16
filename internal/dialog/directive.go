package dialog

// Button describes one inline keyboard button of a directive. Either Label
// holds a literal caption (dynamic data such as song titles) or LabelKey
// names a message-catalog entry.
type Button struct {
	Label    string
	LabelKey string
	Token    Token
}

// LabelBtn builds a button with a literal caption.
func LabelBtn(label string, t Token) Button {
	return Button{Label: label, Token: t}
}

// KeyBtn builds a button whose caption comes from the message catalog.
func KeyBtn(key string, t Token) Button {
	return Button{LabelKey: key, Token: t}
}

// KeyArg marks a directive argument as a message-catalog key that must be
// localized before the directive text is formatted.
type KeyArg string

// Directive tells the transport layer what to present next. Key names a
// message-catalog entry formatted with Args; Rows lay out inline buttons.
// Notice is an optional transient acknowledgement (a callback toast) shown
// instead of, or in addition to, a message.
type Directive struct {
	Key    string
	Args   []any
	Rows   [][]Button
	Notice string
	Edit   bool
}

// IsZero reports whether the directive carries nothing to present.
func (d Directive) IsZero() bool {
	return d.Key == "" && d.Notice == "" && len(d.Rows) == 0
}

// Msg builds a plain message directive.
func Msg(key string, args ...any) Directive {
	return Directive{Key: key, Args: args}
}

// Toast builds a notice-only directive.
func Toast(key string) Directive {
	return Directive{Notice: key}
}

// WithRows attaches button rows to the directive.
func (d Directive) WithRows(rows ...[]Button) Directive {
	d.Rows = rows
	return d
}

// AsEdit marks the directive as preferring an in-place message edit.
func (d Directive) AsEdit() Directive {
	d.Edit = true
	return d
}

// Action describes what the coordinator should do with the session after a
// step handler ran.
type Action uint8

const (
	// ActionStay keeps the session on the current step.
	ActionStay Action = iota
	// ActionGoto advances (or rewinds) the session to Result.Next.
	ActionGoto
	// ActionTerminate clears the session.
	ActionTerminate
)

// Result is the outcome of one step handler invocation. When Directive is
// zero and the action moved to another step, the coordinator falls back to
// that step's prompt.
type Result struct {
	Action    Action
	Next      Step
	Directive Directive
}

// Stay keeps the current step and shows the given directive.
func Stay(d Directive) Result {
	return Result{Action: ActionStay, Directive: d}
}

// Goto moves the session to the given step.
func Goto(next Step) Result {
	return Result{Action: ActionGoto, Next: next}
}

// GotoWith moves the session and overrides the destination prompt.
func GotoWith(next Step, d Directive) Result {
	return Result{Action: ActionGoto, Next: next, Directive: d}
}

// Terminate clears the session and shows the given directive.
func Terminate(d Directive) Result {
	return Result{Action: ActionTerminate, Directive: d}
}
