package survey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kingspeech/leadbot/dialog"
	"github.com/kingspeech/leadbot/i18n"
	"github.com/kingspeech/leadbot/leads"
)

type fakeSheet struct {
	rows [][]string
	err  error
}

func (f *fakeSheet) AppendLead(_ context.Context, row []string) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

type fakeNotifier struct {
	sent []leads.Lead
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, lead leads.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, lead)
	return nil
}

func testBundle() *i18n.Bundle {
	return i18n.NewBundle("ru", map[string]map[string]string{
		"ru": {
			"start_greeting":     "Привет!",
			"start_button":       "Начать",
			"ask_name":           "Как вас зовут?",
			"ask_level":          "Уровень?",
			"ask_goal":           "Цель?",
			"ask_format":         "Формат?",
			"ask_expectations":   "Ожидания?",
			"done":               "Готово ✔️",
			"ask_start_date":     "Когда начать?",
			"ask_phone":          "Телефон?",
			"send_phone":         "📱 Отправить номер",
			"completion_message": "Спасибо, {name}!",
			"err_name_charset":   "Только буквы",
		},
	})
}

func newTestSurvey(t *testing.T) (*Survey, *dialog.Manager, *fakeSheet, *fakeNotifier) {
	t.Helper()
	sheet := &fakeSheet{}
	notifier := &fakeNotifier{}
	sv := New(testBundle(), sheet, notifier,
		WithClock(func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) }))
	mgr := dialog.NewManager(dialog.Options{DefaultLang: "ru"})
	if err := mgr.RegisterBranch(sv.Branch()); err != nil {
		t.Fatalf("register branch: %v", err)
	}
	return sv, mgr, sheet, notifier
}

func advance(t *testing.T, mgr *dialog.Manager, userID int64, in dialog.Input) *dialog.Render {
	t.Helper()
	r, err := mgr.Advance(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("advance %+v: %v", in, err)
	}
	return r
}

func TestFullSurveyFlow(t *testing.T) {
	ctx := context.Background()
	_, mgr, sheet, notifier := newTestSurvey(t)
	mgr.Session(10).Username = "student"

	r, err := mgr.StartBranch(ctx, 10, BranchName)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(r.Options) != 1 || r.Options[0] != "Начать" {
		t.Fatalf("greeting render = %+v", r)
	}

	r = advance(t, mgr, 10, dialog.Input{Choice: "Начать"})
	if !strings.Contains(r.Text, "▓░░░░░░ 1/7") || !strings.Contains(r.Text, "Как вас зовут?") {
		t.Fatalf("name prompt = %q", r.Text)
	}

	r = advance(t, mgr, 10, dialog.Input{Text: "Анна"})
	if !strings.Contains(r.Text, "2/7") {
		t.Fatalf("level prompt = %q", r.Text)
	}

	r = advance(t, mgr, 10, dialog.Input{Choice: "Средний (B1–B2) 🟡"})
	if !strings.Contains(r.Text, "3/7") {
		t.Fatalf("goal prompt = %q", r.Text)
	}

	r = advance(t, mgr, 10, dialog.Input{Choice: "Разговорный 🗣️"})
	if !strings.Contains(r.Text, "4/7") {
		t.Fatalf("format prompt = %q", r.Text)
	}

	r = advance(t, mgr, 10, dialog.Input{Choice: "Онлайн"})
	if !strings.Contains(r.Text, "5/7") {
		t.Fatalf("expectations prompt = %q", r.Text)
	}

	// Pick one expectation, then finish the multi-select.
	r = advance(t, mgr, 10, dialog.Input{Choice: "❌ Обратную связь 💬"})
	if !strings.Contains(strings.Join(r.Options, "\n"), "✅ Обратную связь 💬") {
		t.Fatalf("toggle not reflected: %v", r.Options)
	}
	r = advance(t, mgr, 10, dialog.Input{Choice: "Готово ✔️"})
	if !strings.Contains(r.Text, "6/7") {
		t.Fatalf("start date prompt = %q", r.Text)
	}

	r = advance(t, mgr, 10, dialog.Input{Choice: "Прямо сейчас 🚀"})
	if !strings.Contains(r.Text, "7/7") || r.Widget != dialog.WidgetContact {
		t.Fatalf("phone prompt = %+v", r)
	}

	r = advance(t, mgr, 10, dialog.Input{ContactPhone: "89001234567"})
	if !r.Terminal || !strings.Contains(r.Text, "Спасибо, Анна!") {
		t.Fatalf("completion render = %+v", r)
	}

	if got := mgr.GetActiveBranch(10); got != "" {
		t.Fatalf("branch still active: %q", got)
	}
	if len(sheet.rows) != 1 {
		t.Fatalf("sheet rows = %d", len(sheet.rows))
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("notifier sends = %d", len(notifier.sent))
	}

	lead := notifier.sent[0]
	if lead.Name != "Анна" || lead.Phone != "+79001234567" {
		t.Fatalf("lead = %+v", lead)
	}
	if lead.Expectations != "Обратную связь 💬" {
		t.Fatalf("expectations = %q", lead.Expectations)
	}
	if lead.TelegramID != 10 || lead.TelegramUsername != "student" {
		t.Fatalf("telegram identity = %+v", lead)
	}

	row := sheet.rows[0]
	if row[0] != "10" || row[2] != "+79001234567" || row[3] != "Анна" || row[4] != "English" {
		t.Fatalf("sheet row = %v", row)
	}

	// Duplicate of the final event after completion is fully ignored.
	if r := advance(t, mgr, 10, dialog.Input{ContactPhone: "89001234567"}); r != nil {
		t.Fatalf("duplicate event rendered: %+v", r)
	}
	if len(sheet.rows) != 1 || len(notifier.sent) != 1 {
		t.Fatal("sinks ran twice")
	}
}

func TestInvalidNameReprompts(t *testing.T) {
	ctx := context.Background()
	_, mgr, _, _ := newTestSurvey(t)

	if _, err := mgr.StartBranch(ctx, 20, BranchName); err != nil {
		t.Fatalf("start: %v", err)
	}
	advance(t, mgr, 20, dialog.Input{Choice: "Начать"})

	r := advance(t, mgr, 20, dialog.Input{Text: "John123"})
	if !strings.Contains(r.Text, "Только буквы") || !strings.Contains(r.Text, "1/7") {
		t.Fatalf("reprompt = %q", r.Text)
	}
	if got := mgr.Session(20).Answer(FieldName); got != "" {
		t.Fatalf("invalid name stored: %q", got)
	}

	// The same step accepts a corrected answer.
	r = advance(t, mgr, 20, dialog.Input{Text: "John"})
	if !strings.Contains(r.Text, "2/7") {
		t.Fatalf("level prompt after retry = %q", r.Text)
	}
}

func TestExpectationsToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, mgr, _, _ := newTestSurvey(t)

	if _, err := mgr.StartBranch(ctx, 30, BranchName); err != nil {
		t.Fatalf("start: %v", err)
	}
	advance(t, mgr, 30, dialog.Input{Choice: "Начать"})
	advance(t, mgr, 30, dialog.Input{Text: "Анна"})
	advance(t, mgr, 30, dialog.Input{Choice: "С нуля 🆕"})
	advance(t, mgr, 30, dialog.Input{Choice: "Другое 📝"})
	advance(t, mgr, 30, dialog.Input{Choice: "Онлайн"})

	r := advance(t, mgr, 30, dialog.Input{Choice: "❌ Интересные задания 🎲"})
	joined := strings.Join(r.Options, "\n")
	if !strings.Contains(joined, "✅ Интересные задания 🎲") {
		t.Fatalf("option not selected: %v", r.Options)
	}

	// Toggling again deselects.
	r = advance(t, mgr, 30, dialog.Input{Choice: "✅ Интересные задания 🎲"})
	if strings.Contains(strings.Join(r.Options, "\n"), "✅ Интересные задания 🎲") {
		t.Fatalf("option still selected: %v", r.Options)
	}

	advance(t, mgr, 30, dialog.Input{Choice: "❌ Обратную связь 💬"})
	advance(t, mgr, 30, dialog.Input{Choice: "❌ Лёгкость в общении 💡"})
	advance(t, mgr, 30, dialog.Input{Choice: "Готово ✔️"})

	if got := mgr.Session(30).Answer(FieldExpectations); got != "Обратную связь 💬, Лёгкость в общении 💡" {
		t.Fatalf("expectations joined = %q", got)
	}
}

func TestSinkFailureReportedAfterTeardown(t *testing.T) {
	ctx := context.Background()
	sheet := &fakeSheet{err: errors.New("quota exceeded")}
	notifier := &fakeNotifier{}
	sv := New(testBundle(), sheet, notifier)
	mgr := dialog.NewManager(dialog.Options{DefaultLang: "ru"})
	if err := mgr.RegisterBranch(sv.Branch()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := mgr.StartBranch(ctx, 40, BranchName); err != nil {
		t.Fatalf("start: %v", err)
	}
	advance(t, mgr, 40, dialog.Input{Choice: "Начать"})
	advance(t, mgr, 40, dialog.Input{Text: "Анна"})
	advance(t, mgr, 40, dialog.Input{Choice: "С нуля 🆕"})
	advance(t, mgr, 40, dialog.Input{Choice: "Другое 📝"})
	advance(t, mgr, 40, dialog.Input{Choice: "Онлайн"})
	advance(t, mgr, 40, dialog.Input{Choice: "Готово ✔️"})
	advance(t, mgr, 40, dialog.Input{Choice: "Прямо сейчас 🚀"})

	_, err := mgr.Advance(ctx, 40, dialog.Input{Text: "+79001234567"})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("sink failure not surfaced: %v", err)
	}
	// The healthy sink still ran and the branch is torn down.
	if len(notifier.sent) != 1 {
		t.Fatalf("notifier sends = %d", len(notifier.sent))
	}
	if got := mgr.GetActiveBranch(40); got != "" {
		t.Fatalf("branch survived: %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(3, 7); got != "▓▓▓░░░░ 3/7" {
		t.Fatalf("progressBar = %q", got)
	}
}
