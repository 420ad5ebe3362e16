package router

import (
	"time"

	tg "github.com/m3rciful/planbot/core/telegram"
	"github.com/m3rciful/planbot/core/telegram/callbacks"
	"github.com/m3rciful/planbot/core/telegram/middleware"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Dialog is the minimal interface routers need from the conversational
// workflow engine. Callback keys owned by the engine are routed to it even
// when no session is live, so that stale-session presses get an explicit
// "session expired" response instead of the generic not-found fallback.
type Dialog interface {
	InProgress(userID int64) bool
	OwnsCallback(key string) bool
	HandleCallback(c tele.Context) error
	HandleText(c tele.Context) error
}

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the dialog
// engine first and then the registry.
func CallbackRoute(dlg Dialog, reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		if dlg != nil && dlg.OwnsCallback(key) {
			return handleWithSummary(c, name, start, func() error {
				return dlg.HandleCallback(c)
			}, extras...)
		}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
