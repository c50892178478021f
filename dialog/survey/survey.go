// Package survey implements the main lead-qualification branch: a linear
// seven-question flow collecting name, level, goal, format, expectations,
// start date and phone, finished by the spreadsheet and notifier sinks.
package survey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingspeech/leadbot/core/logger"
	"github.com/kingspeech/leadbot/dialog"
	"github.com/kingspeech/leadbot/i18n"
	"github.com/kingspeech/leadbot/leads"
	"github.com/kingspeech/leadbot/sheets"
	"github.com/kingspeech/leadbot/validate"
	"log/slog"
)

// BranchName is the registration key of the main survey.
const BranchName = "main_survey"

const totalQuestions = 7

const (
	stepGreeting     dialog.StepID = "greeting"
	stepName         dialog.StepID = "name"
	stepLevel        dialog.StepID = "level"
	stepGoal         dialog.StepID = "goal"
	stepFormat       dialog.StepID = "format"
	stepExpectations dialog.StepID = "expectations"
	stepStartDate    dialog.StepID = "start_date"
	stepPhone        dialog.StepID = "phone"
)

// Answer field names, also the keys of Session.Answers.
const (
	FieldName         = "user_name"
	FieldLevel        = "level"
	FieldGoal         = "goals"
	FieldFormat       = "format"
	FieldExpectations = "expectations"
	FieldStartDate    = "start_date"
	FieldPhone        = "phone"
)

// Notifier forwards a completed lead to the workgroup chat.
type Notifier interface {
	Send(ctx context.Context, lead leads.Lead) error
}

// Archiver persists a completed lead to the optional local store.
type Archiver interface {
	Save(ctx context.Context, lead leads.Lead) error
}

// Survey builds and runs the main questionnaire branch.
type Survey struct {
	msgs     *i18n.Bundle
	sheet    sheets.RowAppender
	notifier Notifier
	archive  Archiver
	now      func() time.Time
}

// Option customises a Survey.
type Option func(*Survey)

// WithClock replaces the timestamp source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Survey) { s.now = now }
}

// WithArchive enables the optional lead archive sink.
func WithArchive(a Archiver) Option {
	return func(s *Survey) { s.archive = a }
}

// New wires the survey against its sinks. sheet and notifier are required;
// the archive is optional.
func New(msgs *i18n.Bundle, sheet sheets.RowAppender, notifier Notifier, opts ...Option) *Survey {
	s := &Survey{
		msgs:     msgs,
		sheet:    sheet,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Branch returns the registrable branch definition.
func (s *Survey) Branch() *dialog.Branch {
	return &dialog.Branch{
		Name:     BranchName,
		Priority: 100,
		Enabled:  true,
		Entry:    s.entry,
		Handlers: map[dialog.StepID]dialog.HandlerFunc{
			stepGreeting:     s.processGreeting,
			stepName:         s.processName,
			stepLevel:        s.processLevel,
			stepGoal:         s.processGoal,
			stepFormat:       s.processFormat,
			stepExpectations: s.processExpectations,
			stepStartDate:    s.processStartDate,
			stepPhone:        s.processPhone,
		},
		Complete: s.complete,
	}
}

func (s *Survey) entry(_ context.Context, sess *dialog.Session, _ dialog.Input) (dialog.Step, error) {
	return dialog.Step{
		Text:    s.msgs.T("start_greeting", sess.Lang),
		Options: []string{s.msgs.T("start_button", sess.Lang)},
		Next:    stepGreeting,
	}, nil
}

func (s *Survey) processGreeting(ctx context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	if in.Value() == "" {
		return s.entry(ctx, sess, in)
	}
	return s.nameStep(sess, ""), nil
}

func (s *Survey) nameStep(sess *dialog.Session, errKey string) dialog.Step {
	return s.prompt(sess, 1, "ask_name", errKey, dialog.Step{Next: stepName})
}

func (s *Survey) processName(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	res := validate.Name(in.Value())
	if !res.OK {
		return s.nameStep(sess, res.ErrorKey), nil
	}
	sess.SetAnswer(FieldName, res.Value)
	return s.levelStep(sess, ""), nil
}

func (s *Survey) levelStep(sess *dialog.Session, errKey string) dialog.Step {
	return s.prompt(sess, 2, "ask_level", errKey, dialog.Step{
		Options: levelOptions(sess.Lang),
		Next:    stepLevel,
	})
}

func (s *Survey) processLevel(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	res := validate.Choice(in.Value(), levelOptions(sess.Lang))
	if !res.OK {
		return s.levelStep(sess, res.ErrorKey), nil
	}
	sess.SetAnswer(FieldLevel, res.Value)
	return s.goalStep(sess, ""), nil
}

func (s *Survey) goalStep(sess *dialog.Session, errKey string) dialog.Step {
	return s.prompt(sess, 3, "ask_goal", errKey, dialog.Step{
		Options: goalOptions(sess.Lang),
		Next:    stepGoal,
	})
}

func (s *Survey) processGoal(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	res := validate.Choice(in.Value(), goalOptions(sess.Lang))
	if !res.OK {
		return s.goalStep(sess, res.ErrorKey), nil
	}
	sess.SetAnswer(FieldGoal, res.Value)
	return s.formatStep(sess, ""), nil
}

func (s *Survey) formatStep(sess *dialog.Session, errKey string) dialog.Step {
	return s.prompt(sess, 4, "ask_format", errKey, dialog.Step{
		Options: formatOptions(sess.Lang),
		Next:    stepFormat,
	})
}

func (s *Survey) processFormat(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	res := validate.Choice(in.Value(), formatOptions(sess.Lang))
	if !res.OK {
		return s.formatStep(sess, res.ErrorKey), nil
	}
	sess.SetAnswer(FieldFormat, res.Value)
	return s.expectationsStep(sess), nil
}

// expectationsStep renders the multi-select checklist. Every option carries
// a leading mark reflecting current membership; the Done sentinel closes
// the set and advances the branch.
func (s *Survey) expectationsStep(sess *dialog.Session) dialog.Step {
	base := expectationOptions(sess.Lang)
	options := make([]string, 0, len(base)+1)
	for _, opt := range base {
		mark := uncheckedMark
		if sess.Selected(FieldExpectations, opt) {
			mark = checkedMark
		}
		options = append(options, mark+" "+opt)
	}
	options = append(options, s.msgs.T("done", sess.Lang))
	return s.prompt(sess, 5, "ask_expectations", "", dialog.Step{
		Options: options,
		Next:    stepExpectations,
	})
}

func (s *Survey) processExpectations(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	choice := stripMark(in.Value())
	if choice == s.msgs.T("done", sess.Lang) {
		sess.SetAnswer(FieldExpectations, strings.Join(sess.Selections(FieldExpectations), ", "))
		sess.ClearSelections(FieldExpectations)
		return s.startDateStep(sess, ""), nil
	}
	for _, opt := range expectationOptions(sess.Lang) {
		if choice == opt {
			sess.Toggle(FieldExpectations, choice)
			break
		}
	}
	return s.expectationsStep(sess), nil
}

func (s *Survey) startDateStep(sess *dialog.Session, errKey string) dialog.Step {
	return s.prompt(sess, 6, "ask_start_date", errKey, dialog.Step{
		Options: startDateOptions(sess.Lang),
		Next:    stepStartDate,
	})
}

func (s *Survey) processStartDate(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	res := validate.Choice(in.Value(), startDateOptions(sess.Lang))
	if !res.OK {
		return s.startDateStep(sess, res.ErrorKey), nil
	}
	sess.SetAnswer(FieldStartDate, res.Value)
	return s.phoneStep(sess, ""), nil
}

// phoneStep requests the phone via a contact-sharing keyboard; typed
// numbers are accepted too. The widget forces a fresh outbound message.
func (s *Survey) phoneStep(sess *dialog.Session, errKey string) dialog.Step {
	return s.prompt(sess, 7, "ask_phone", errKey, dialog.Step{
		Options: []string{s.msgs.T("send_phone", sess.Lang)},
		Widget:  dialog.WidgetContact,
		Next:    stepPhone,
	})
}

func (s *Survey) processPhone(_ context.Context, sess *dialog.Session, in dialog.Input) (dialog.Step, error) {
	phone := in.ContactPhone
	if phone == "" {
		phone = in.Text
	}
	res := validate.Phone(phone)
	if !res.OK {
		return s.phoneStep(sess, res.ErrorKey), nil
	}
	sess.SetAnswer(FieldPhone, res.Value)

	return dialog.Step{
		Text: s.msgs.T("completion_message", sess.Lang, "name", sess.Answer(FieldName)),
	}, nil
}

// complete runs the sink side effects. There is no cross-sink transaction:
// a failing sink is logged and reported while the others keep their result.
func (s *Survey) complete(ctx context.Context, sess *dialog.Session) error {
	lead := s.buildLead(sess)

	var errs []error
	if err := s.sheet.AppendLead(ctx, lead.SheetRow()); err != nil {
		logger.Error(ctx, "dialog.survey", "sink.sheet_failed",
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
		errs = append(errs, fmt.Errorf("sheet append: %w", err))
	}
	if err := s.notifier.Send(ctx, lead); err != nil {
		logger.Error(ctx, "dialog.survey", "sink.notify_failed",
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
		errs = append(errs, fmt.Errorf("lead notify: %w", err))
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, lead); err != nil {
			logger.Error(ctx, "dialog.survey", "sink.archive_failed",
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			errs = append(errs, fmt.Errorf("lead archive: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Survey) buildLead(sess *dialog.Session) leads.Lead {
	return leads.Lead{
		Name:             sess.Answer(FieldName),
		Phone:            sess.Answer(FieldPhone),
		Language:         "English",
		Level:            sess.Answer(FieldLevel),
		Goal:             sess.Answer(FieldGoal),
		Format:           sess.Answer(FieldFormat),
		Expectations:     sess.Answer(FieldExpectations),
		StartDate:        sess.Answer(FieldStartDate),
		TelegramID:       sess.UserID,
		TelegramUsername: sess.Username,
		CreatedAt:        s.now(),
	}
}

// prompt assembles a step text as progress bar, optional localized error,
// then the question itself.
func (s *Survey) prompt(sess *dialog.Session, question int, key, errKey string, step dialog.Step) dialog.Step {
	var b strings.Builder
	b.WriteString(progressBar(question, totalQuestions))
	b.WriteString("\n")
	if errKey != "" {
		b.WriteString(s.msgs.T(errKey, sess.Lang))
		b.WriteString("\n\n")
	}
	b.WriteString(s.msgs.T(key, sess.Lang))
	step.Text = b.String()
	return step
}

const (
	checkedMark   = "✅"
	uncheckedMark = "❌"
)

func stripMark(choice string) string {
	choice = strings.TrimPrefix(choice, checkedMark+" ")
	choice = strings.TrimPrefix(choice, uncheckedMark+" ")
	return strings.TrimSpace(choice)
}

func progressBar(current, total int) string {
	return strings.Repeat("▓", current) +
		strings.Repeat("░", total-current) +
		fmt.Sprintf(" %d/%d", current, total)
}
