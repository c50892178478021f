package router

import (
	"time"

	tg "github.com/kingspeech/leadbot/core/telegram"
	"github.com/kingspeech/leadbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialog is the minimal surface the router needs from the dialog engine.
type Dialog interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
	HandleContact(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/contact updates.
type TextOptions struct {
	UnknownText    tele.HandlerFunc
	UnknownContact tele.HandlerFunc
}

// TextRoutes builds handlers that feed text and contact updates into the
// dialog engine and fall back to command lookup for free text.
func TextRoutes(dlg Dialog, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if dlg != nil && dlg.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "dialog", start, "", "", func() error {
				return dlg.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	contactHandler := func(c tele.Context) error {
		start := time.Now()
		if dlg != nil && dlg.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "dialog_contact", start, "", "", func() error {
				return dlg.HandleContact(c)
			})
		}
		if opts.UnknownContact != nil {
			return handleWithSummary(c, "unexpected_contact", start, "", "", func() error {
				return opts.UnknownContact(c)
			})
		}
		logHandlerSummary(c, "unexpected_contact", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnContact,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(contactHandler)),
		},
	}
}
