package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/planbot/core/telegram/keyboard"
	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/i18n"
)

// renderer turns engine directives into Telegram messages: it localizes the
// message key and button captions, lays out the inline keyboard, and decides
// between sending and editing in place.
type renderer struct {
	catalog *i18n.Catalog
}

func newRenderer(catalog *i18n.Catalog) *renderer {
	return &renderer{catalog: catalog}
}

// langFor picks the catalog language for a sender, falling back to the
// team's default.
func (r *renderer) langFor(c tele.Context) string {
	if s := c.Sender(); s != nil && r.catalog.Has(s.LanguageCode) {
		return s.LanguageCode
	}
	return r.catalog.DefaultLang()
}

// resolveArgs localizes KeyArg arguments; everything else passes through.
func (r *renderer) resolveArgs(lang string, args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if key, ok := a.(dialog.KeyArg); ok {
			out[i] = r.catalog.T(lang, string(key))
			continue
		}
		out[i] = a
	}
	return out
}

func (r *renderer) markup(lang string, rows [][]dialog.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	kbRows := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		btns := make([]keyboard.InlineBtn, len(row))
		for j, b := range row {
			label := b.Label
			if b.LabelKey != "" {
				label = r.catalog.T(lang, b.LabelKey)
			}
			unique, data := b.Token.Encode()
			btns[j] = keyboard.InlineBtn{Text: label, Unique: unique, Data: data}
		}
		kbRows[i] = btns
	}
	return keyboard.InlineButtonsRows(kbRows...)
}

// Render presents one directive to the user.
func (r *renderer) Render(c tele.Context, d dialog.Directive) error {
	lang := r.langFor(c)

	if d.Notice != "" {
		resp := &tele.CallbackResponse{Text: r.catalog.T(lang, d.Notice)}
		if err := c.Respond(resp); err != nil && d.Key == "" {
			return err
		}
	}
	if d.Key == "" {
		return nil
	}

	text := r.catalog.T(lang, d.Key, r.resolveArgs(lang, d.Args)...)
	rm := r.markup(lang, d.Rows)
	opts := &tele.SendOptions{ReplyMarkup: rm}

	// Button-driven turns edit the originating message to keep the chat
	// tidy; text-driven turns always produce a fresh message.
	if c.Callback() != nil && (d.Edit || len(d.Rows) > 0) {
		return c.EditOrSend(text, opts)
	}
	return c.Send(text, opts)
}

// Text is a convenience for non-dialog replies.
func (r *renderer) Text(c tele.Context, key string, args ...any) error {
	lang := r.langFor(c)
	return c.Send(r.catalog.T(lang, key, r.resolveArgs(lang, args)...))
}
