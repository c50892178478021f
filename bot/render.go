package bot

import (
	"strconv"
	"strings"

	tghelpers "github.com/kingspeech/leadbot/core/telegram/helpers"
	"github.com/kingspeech/leadbot/core/telegram/keyboard"
	"github.com/kingspeech/leadbot/dialog"

	tele "gopkg.in/telebot.v4"
)

// renderStep sends a dialog render back to the chat.
//
// Contact-widget steps are always sent fresh with a one-time reply keyboard.
// Option steps arriving via a callback edit the message in place so the
// question does not duplicate on multi-select toggles; text-triggered
// renders and terminal steps are sent as new messages. A nil render means
// the event was dropped and nothing is sent.
func (a *App) renderStep(c tele.Context, r *dialog.Render, viaCallback bool) error {
	if r == nil {
		return nil
	}
	userID := c.Sender().ID

	if r.Widget == dialog.WidgetContact {
		a.forgetOptions(userID)
		return tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: contactKeyboard(r.Options)})
	}

	if r.Terminal {
		a.forgetOptions(userID)
		return tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
	}

	if len(r.Options) > 0 {
		a.rememberOptions(userID, r.Options)
		markup := optionKeyboard(r.Options)
		if viaCallback {
			err := c.Edit(r.Text, &tele.SendOptions{ReplyMarkup: markup})
			if err == nil || isNotModified(err) {
				return nil
			}
			// Original message may be gone; fall through to a fresh send.
		}
		return tghelpers.SendText(c, r.Text, &tele.SendOptions{ReplyMarkup: markup})
	}

	a.forgetOptions(userID)
	return tghelpers.SendText(c, r.Text)
}

func (a *App) rememberOptions(userID int64, options []string) {
	a.optMu.Lock()
	a.lastOptions[userID] = append([]string(nil), options...)
	a.optMu.Unlock()
}

func (a *App) forgetOptions(userID int64) {
	a.optMu.Lock()
	delete(a.lastOptions, userID)
	a.optMu.Unlock()
}

// optionLabel resolves a button index from callback data against the last
// rendered step. Stale or malformed payloads report false.
func (a *App) optionLabel(userID int64, payload string) (string, bool) {
	idx, err := strconv.Atoi(payload)
	if err != nil {
		return "", false
	}
	a.optMu.Lock()
	defer a.optMu.Unlock()
	options := a.lastOptions[userID]
	if idx < 0 || idx >= len(options) {
		return "", false
	}
	return options[idx], true
}

func optionKeyboard(options []string) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(options))
	for i, o := range options {
		buttons = append(buttons, keyboard.InlineBtn{Text: o, Unique: cbDialog, Data: strconv.Itoa(i)})
	}
	return keyboard.InlineButtons(buttons)
}

func contactKeyboard(options []string) *tele.ReplyMarkup {
	label := "📱"
	if len(options) > 0 {
		label = options[0]
	}
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Contact(label)))
	return markup
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
