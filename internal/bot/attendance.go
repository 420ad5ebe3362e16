package bot

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/planbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/planbot/core/telegram/helpers"
	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
)

// currentMember resolves the sender to a member row, registering them on
// first contact.
func (a *App) currentMember(ctx context.Context, sender *tele.User) (*domain.Member, error) {
	if sender == nil {
		return nil, domain.ErrNotFound
	}
	m, err := a.members.GetByTelegramID(ctx, sender.ID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return a.members.Upsert(ctx, &domain.Member{
		TelegramID: sender.ID,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
		Username:   sender.Username,
	})
}

// attendanceCallback records the sender's answer for the event carried in
// the callback payload.
func (a *App) attendanceCallback(resp domain.Response) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)

		eventID, err := callbacks.PayloadInt64(c)
		if err != nil {
			return a.render.Render(c, dialog.Toast("attendance.gone"))
		}

		member, err := a.currentMember(ctx, c.Sender())
		if err != nil {
			return err
		}

		if err := a.attendance.SetResponse(ctx, eventID, member.ID, resp); err != nil {
			return err
		}

		lang := a.render.langFor(c)
		label := a.catalog.T(lang, "agenda.att_"+string(resp))
		return c.Respond(&tele.CallbackResponse{
			Text: a.catalog.T(lang, "attendance.saved", label),
		})
	}
}

// cbClaimRole fills an open role slot with the sender. The payload carries
// "eventID:roleID" since a slot is addressed by both.
func (a *App) cbClaimRole(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	eventID, roleID, err := callbacks.PayloadTwoInt64(c, ":")
	if err != nil {
		return a.render.Render(c, dialog.Toast("roles.slot_gone"))
	}
	member, err := a.currentMember(ctx, c.Sender())
	if err != nil {
		return err
	}
	if err := a.events.AssignMember(ctx, eventID, roleID, member.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return a.render.Render(c, dialog.Toast("roles.slot_gone"))
		}
		return err
	}

	lang := a.render.langFor(c)
	return c.Respond(&tele.CallbackResponse{
		Text: a.catalog.T(lang, "roles.claimed"),
	})
}
