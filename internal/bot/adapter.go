package bot

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/planbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/planbot/core/telegram/helpers"
	"github.com/m3rciful/planbot/internal/dialog"
)

// dialogAdapter bridges the transport-facing router.Dialog interface to the
// engine: it normalizes telebot updates into Inbound events and renders the
// resulting directives.
type dialogAdapter struct {
	eng    *dialog.Engine
	render *renderer
}

func newDialogAdapter(eng *dialog.Engine, render *renderer) *dialogAdapter {
	return &dialogAdapter{eng: eng, render: render}
}

func (a *dialogAdapter) InProgress(userID int64) bool {
	return a.eng.InProgress(context.Background(), userID)
}

func (a *dialogAdapter) OwnsCallback(key string) bool {
	return a.eng.OwnsFamily(dialog.Family(key))
}

func (a *dialogAdapter) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return nil
	}
	key, payload := callbacks.ParseCallbackData(cb)
	in := dialog.ButtonInbound(c.Sender().ID, dialog.DecodeToken(key, payload))
	return a.dispatch(c, in)
}

func (a *dialogAdapter) HandleText(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return a.dispatch(c, dialog.TextInbound(c.Sender().ID, c.Text()))
}

func (a *dialogAdapter) dispatch(c tele.Context, in dialog.Inbound) error {
	ctx := tghelpers.BuildContext(c)
	d, err := a.eng.Handle(ctx, in)
	if errors.Is(err, dialog.ErrNoSession) {
		// A press on a keyboard of an expired or cancelled dialog.
		return a.render.Render(c, dialog.Msg("dialog.expired"))
	}
	if err != nil {
		return err
	}
	return a.render.Render(c, d)
}
