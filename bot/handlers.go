package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kingspeech/leadbot/core/logger"
	"github.com/kingspeech/leadbot/core/telegram/callbacks"
	"github.com/kingspeech/leadbot/core/telegram/commands"
	tghelpers "github.com/kingspeech/leadbot/core/telegram/helpers"
	"github.com/kingspeech/leadbot/core/telegram/keyboard"
	"github.com/kingspeech/leadbot/dialog"
	"github.com/kingspeech/leadbot/dialog/survey"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

const (
	cbSetLang     = "set_lang"
	cbStartBranch = "start_branch"
	cbDialog      = "dlg"
)

func (a *App) registerHandlers() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Начать диалог",
	})
	a.registry.RegisterCommand("/restart", commands.Command{
		Handler:     a.handleRestart,
		Description: "Начать заново",
	})
	a.registry.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "Помощь",
	})
	a.registry.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleStats,
		Description: "Статистика заявок",
		AdminOnly:   true,
		Hidden:      true,
	})

	mustRegisterCallback(a.registry, cbSetLang, a.handleSetLang)
	mustRegisterCallback(a.registry, cbStartBranch, a.handleStartBranch)
	mustRegisterCallback(a.registry, cbDialog, a.handleDialogChoice)

	a.registry.SetCallbackNotFound(a.handleUnknown)
}

type callbackRegistrar interface {
	RegisterCallback(key string, handler tele.HandlerFunc) error
}

func mustRegisterCallback(reg callbackRegistrar, key string, h tele.HandlerFunc) {
	if err := reg.RegisterCallback(key, h); err != nil {
		panic(fmt.Sprintf("bot: callback %s: %v", key, err))
	}
}

// handleStart shows the language picker. The survey itself is started from
// the start_branch callback once the locale is chosen.
func (a *App) handleStart(c tele.Context) error {
	userID := c.Sender().ID
	a.touchUsername(c)
	lang := a.dialogs.Language(userID)

	markup := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "🇷🇺 Русский", Unique: cbSetLang, Data: "ru"},
		{Text: "🇬🇧 English", Unique: cbSetLang, Data: "en"},
	})
	return tghelpers.SendText(c, a.msgs.T("choose_language", lang), &tele.SendOptions{ReplyMarkup: markup})
}

func (a *App) handleRestart(c tele.Context) error {
	userID := c.Sender().ID
	lang := a.dialogs.Language(userID)

	a.dialogs.ResetUser(userID)
	a.limiters.Reset(userID)
	a.forgetOptions(userID)
	logger.Info(tghelpers.BuildContext(c), "bot", "user.restarted",
		slog.Int64("user_id", userID),
	)

	if err := tghelpers.SendText(c, a.msgs.T("dialog_restarted", lang), &tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()}); err != nil {
		return err
	}
	return a.handleStart(c)
}

func (a *App) handleHelp(c tele.Context) error {
	lang := a.dialogs.Language(c.Sender().ID)
	return tghelpers.SendText(c, a.msgs.T("help_text", lang))
}

// handleStats is admin-only: lead counts from the archive when enabled.
func (a *App) handleStats(c tele.Context) error {
	if a.archive == nil {
		return tghelpers.SendText(c, "Архив заявок отключён.")
	}
	ctx := tghelpers.BuildContext(c)
	day, err := a.archive.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	week, err := a.archive.CountSince(ctx, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		return err
	}
	return tghelpers.SendText(c, fmt.Sprintf("Заявки: %d за сутки, %d за неделю.", day, week))
}

func (a *App) handleSetLang(c tele.Context) error {
	userID := c.Sender().ID
	a.touchUsername(c)

	lang := strings.TrimSpace(callbacks.CallbackPayload(c))
	switch lang {
	case "ru", "en":
	default:
		lang = a.cfg.Survey.DefaultLocale
	}
	a.dialogs.SetLanguage(userID, lang)

	render, err := a.dialogs.StartBranch(tghelpers.BuildContext(c), userID, survey.BranchName)
	if err != nil {
		return a.apologize(c, err)
	}
	return a.renderStep(c, render, true)
}

// handleStartBranch starts an arbitrary registered branch by name.
func (a *App) handleStartBranch(c tele.Context) error {
	userID := c.Sender().ID
	a.touchUsername(c)

	name := strings.TrimSpace(callbacks.CallbackPayload(c))
	if name == "" {
		return a.handleUnknown(c)
	}
	render, err := a.dialogs.StartBranch(tghelpers.BuildContext(c), userID, name)
	if err != nil {
		if errors.Is(err, dialog.ErrUnknownBranch) || errors.Is(err, dialog.ErrBranchDisabled) {
			return a.handleUnknown(c)
		}
		return a.apologize(c, err)
	}
	return a.renderStep(c, render, true)
}

// handleDialogChoice feeds an option button press into the active branch.
func (a *App) handleDialogChoice(c tele.Context) error {
	choice, ok := a.optionLabel(c.Sender().ID, callbacks.CallbackPayload(c))
	if !ok {
		// Stale keyboard from a finished or restarted dialog.
		return nil
	}
	render, err := a.dialogs.Advance(tghelpers.BuildContext(c), c.Sender().ID, dialog.Input{Choice: choice})
	if err != nil {
		return a.apologize(c, err)
	}
	return a.renderStep(c, render, true)
}

func (g *dialogGateway) HandleText(c tele.Context) error {
	a := g.app
	render, err := a.dialogs.Advance(tghelpers.BuildContext(c), c.Sender().ID, dialog.Input{Text: c.Text()})
	if err != nil {
		return a.apologize(c, err)
	}
	return a.renderStep(c, render, false)
}

func (g *dialogGateway) HandleContact(c tele.Context) error {
	a := g.app
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return a.handleUnknown(c)
	}
	in := dialog.Input{ContactPhone: msg.Contact.PhoneNumber}
	render, err := a.dialogs.Advance(tghelpers.BuildContext(c), c.Sender().ID, in)
	if err != nil {
		return a.apologize(c, err)
	}
	return a.renderStep(c, render, false)
}

func (a *App) handleUnknown(c tele.Context) error {
	lang := a.dialogs.Language(c.Sender().ID)
	return tghelpers.SendText(c, a.msgs.T("unknown_action", lang))
}

// apologize reports a handler failure to the user without leaking details.
func (a *App) apologize(c tele.Context, err error) error {
	lang := a.dialogs.Language(c.Sender().ID)
	if sendErr := tghelpers.SendText(c, a.msgs.T("generic_error", lang)); sendErr != nil {
		return sendErr
	}
	return err
}

func (a *App) onLimited(c tele.Context, retryIn time.Duration) error {
	lang := a.dialogs.Language(c.Sender().ID)
	seconds := int(retryIn / time.Second)
	if retryIn%time.Second > 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	return c.Send(a.msgs.T("rate_limited", lang, "seconds", strconv.Itoa(seconds)))
}

func (a *App) touchUsername(c tele.Context) {
	if sender := c.Sender(); sender != nil {
		a.dialogs.Session(sender.ID).Username = sender.Username
	}
}
