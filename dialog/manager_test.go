package dialog

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testBranch is a two-question sequence ending in a terminal thank-you step.
func testBranch(name string, completed *int, completeErr error) *Branch {
	return &Branch{
		Name:    name,
		Enabled: true,
		Entry: func(_ context.Context, s *Session, _ Input) (Step, error) {
			return Step{Text: "first?", Next: "first"}, nil
		},
		Handlers: map[StepID]HandlerFunc{
			"first": func(_ context.Context, s *Session, in Input) (Step, error) {
				s.SetAnswer("first", in.Value())
				return Step{Text: "second?", Next: "second"}, nil
			},
			"second": func(_ context.Context, s *Session, in Input) (Step, error) {
				s.SetAnswer("second", in.Value())
				return Step{Text: "done"}, nil
			},
		},
		Complete: func(_ context.Context, s *Session) error {
			if completed != nil {
				*completed++
			}
			return completeErr
		},
	}
}

func TestRegisterBranchDuplicate(t *testing.T) {
	m := NewManager(Options{})
	if err := m.RegisterBranch(testBranch("b", nil, nil)); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	err := m.RegisterBranch(testBranch("b", nil, nil))
	if !errors.Is(err, ErrDuplicateBranch) {
		t.Fatalf("duplicate registration error = %v, want ErrDuplicateBranch", err)
	}
}

func TestStartBranchUnknownAndDisabled(t *testing.T) {
	m := NewManager(Options{})
	if _, err := m.StartBranch(context.Background(), 1, "missing"); !errors.Is(err, ErrUnknownBranch) {
		t.Fatalf("unknown branch error = %v", err)
	}

	b := testBranch("off", nil, nil)
	b.Enabled = false
	if err := m.RegisterBranch(b); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.StartBranch(context.Background(), 1, "off"); !errors.Is(err, ErrBranchDisabled) {
		t.Fatalf("disabled branch error = %v", err)
	}
}

func TestFullFlowCompletesOnce(t *testing.T) {
	ctx := context.Background()
	completed := 0
	m := NewManager(Options{})
	if err := m.RegisterBranch(testBranch("b", &completed, nil)); err != nil {
		t.Fatalf("register: %v", err)
	}

	r, err := m.StartBranch(ctx, 7, "b")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.Text != "first?" || r.Terminal {
		t.Fatalf("entry render = %+v", r)
	}
	if got := m.GetActiveBranch(7); got != "b" {
		t.Fatalf("active branch = %q", got)
	}

	if r, err = m.Advance(ctx, 7, Input{Text: "one"}); err != nil || r.Text != "second?" {
		t.Fatalf("first advance: %+v, %v", r, err)
	}
	r, err = m.Advance(ctx, 7, Input{Text: "two"})
	if err != nil {
		t.Fatalf("terminal advance: %v", err)
	}
	if !r.Terminal || r.Text != "done" {
		t.Fatalf("terminal render = %+v", r)
	}
	if completed != 1 {
		t.Fatalf("complete ran %d times", completed)
	}
	if got := m.GetActiveBranch(7); got != "" {
		t.Fatalf("branch still active: %q", got)
	}

	// Answers survive teardown on the session shell.
	s := m.Session(7)
	if s.Answer("first") != "one" || s.Answer("second") != "two" {
		t.Fatalf("answers lost: %+v", s.Answers)
	}

	// A duplicate of the final event is dropped without rerunning completion.
	r, err = m.Advance(ctx, 7, Input{Text: "two"})
	if r != nil || err != nil {
		t.Fatalf("duplicate advance = %+v, %v", r, err)
	}
	if completed != 1 {
		t.Fatalf("complete reran: %d", completed)
	}
}

func TestCompletionErrorStillTearsDown(t *testing.T) {
	ctx := context.Background()
	completed := 0
	sinkErr := errors.New("sheet down")
	m := NewManager(Options{})
	if err := m.RegisterBranch(testBranch("b", &completed, sinkErr)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := m.StartBranch(ctx, 3, "b"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Advance(ctx, 3, Input{Text: "one"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	r, err := m.Advance(ctx, 3, Input{Text: "two"})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("completion error = %v", err)
	}
	if r == nil || !r.Terminal {
		t.Fatalf("terminal render lost on sink failure: %+v", r)
	}
	if got := m.GetActiveBranch(3); got != "" {
		t.Fatalf("branch survived failed completion: %q", got)
	}
}

func TestStartBranchOverwritesProgress(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Options{})
	if err := m.RegisterBranch(testBranch("b", nil, nil)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := m.StartBranch(ctx, 5, "b"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Advance(ctx, 5, Input{Text: "partial"}); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if _, err := m.StartBranch(ctx, 5, "b"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s := m.Session(5)
	if s.Answer("first") != "" {
		t.Fatalf("stale answer kept: %q", s.Answer("first"))
	}
	if len(m.History(5)) != 2 {
		t.Fatalf("history = %v", m.History(5))
	}
}

func TestResetUser(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Options{})
	if err := m.RegisterBranch(testBranch("b", nil, nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.StartBranch(ctx, 9, "b"); err != nil {
		t.Fatalf("start: %v", err)
	}

	m.ResetUser(9)
	if got := m.GetActiveBranch(9); got != "" {
		t.Fatalf("active branch after reset: %q", got)
	}
	if h := m.History(9); len(h) != 0 {
		t.Fatalf("history after reset: %v", h)
	}
}

func TestAdvanceWithoutBranchIsDropped(t *testing.T) {
	m := NewManager(Options{})
	r, err := m.Advance(context.Background(), 42, Input{Text: "hello"})
	if r != nil || err != nil {
		t.Fatalf("stray event = %+v, %v", r, err)
	}
}

func TestExpireSweepsIdleSessions(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := NewManager(Options{SessionTTL: time.Hour, Clock: clock})

	m.Session(1)
	now = now.Add(30 * time.Minute)
	m.Session(2)

	now = now.Add(45 * time.Minute)
	if removed := m.Expire(); removed != 1 {
		t.Fatalf("expired %d sessions, want 1", removed)
	}
	if got := m.Language(2); got == "" {
		t.Fatal("fresh session lost")
	}
}

func TestSetLanguage(t *testing.T) {
	m := NewManager(Options{DefaultLang: "ru"})
	if got := m.Language(1); got != "ru" {
		t.Fatalf("default language = %q", got)
	}
	m.SetLanguage(1, "en")
	if got := m.Language(1); got != "en" {
		t.Fatalf("language = %q", got)
	}
}
