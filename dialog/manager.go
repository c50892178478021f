package dialog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kingspeech/leadbot/core/logger"
	"log/slog"
)

var (
	// ErrDuplicateBranch is returned when a branch name is registered twice.
	ErrDuplicateBranch = errors.New("dialog: branch already registered")
	// ErrUnknownBranch is the soft failure for starting an unregistered branch.
	ErrUnknownBranch = errors.New("dialog: unknown branch")
	// ErrBranchDisabled is the soft failure for starting a disabled branch.
	ErrBranchDisabled = errors.New("dialog: branch disabled")
)

// Options configures a Manager.
type Options struct {
	// DefaultLang is the locale assigned to fresh sessions.
	DefaultLang string
	// SessionTTL expires idle sessions; zero disables expiry.
	SessionTTL time.Duration
	// Clock overrides the time source, used by tests.
	Clock func() time.Time
}

// Manager owns the branch registry and per-user sessions and drives step
// progression. It is constructed explicitly and passed by reference; there
// are no package-level registries.
type Manager struct {
	mu       sync.RWMutex
	branches map[string]*Branch
	sessions map[int64]*Session
	history  map[int64][]string

	defaultLang string
	ttl         time.Duration
	now         func() time.Time
}

// NewManager creates an empty manager.
func NewManager(opts Options) *Manager {
	if opts.DefaultLang == "" {
		opts.DefaultLang = "ru"
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Manager{
		branches:    make(map[string]*Branch),
		sessions:    make(map[int64]*Session),
		history:     make(map[int64][]string),
		defaultLang: opts.DefaultLang,
		ttl:         opts.SessionTTL,
		now:         now,
	}
}

// RegisterBranch adds a branch to the registry. Re-registering a name is an
// error rather than a silent overwrite.
func (m *Manager) RegisterBranch(b *Branch) error {
	if b == nil || b.Name == "" || b.Entry == nil {
		return fmt.Errorf("dialog: invalid branch registration")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.branches[b.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBranch, b.Name)
	}
	m.branches[b.Name] = b
	logger.Info(context.Background(), "dialog", "branch.registered",
		slog.String("branch", b.Name),
		slog.Int("priority", b.Priority),
		slog.Bool("enabled", b.Enabled),
	)
	return nil
}

// Branches returns enabled branches ordered by priority, highest first.
func (m *Manager) Branches() []*Branch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Branch, 0, len(m.branches))
	for _, b := range m.branches {
		if b.Enabled {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// Session returns the user's session, creating an idle one if absent.
func (m *Manager) Session(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionLocked(userID)
}

func (m *Manager) sessionLocked(userID int64) *Session {
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := newSession(userID, m.defaultLang, m.now())
	m.sessions[userID] = s
	return s
}

// SetLanguage stores the interface locale on the user's session shell.
func (m *Manager) SetLanguage(userID int64, lang string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionLocked(userID).Lang = lang
}

// Language returns the user's locale, or the default when no session exists.
func (m *Manager) Language(userID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok && s.Lang != "" {
		return s.Lang
	}
	return m.defaultLang
}

// StartBranch makes the branch active for the user and renders its first
// step. An in-progress branch is silently overwritten: prior answers are
// abandoned. Unknown or disabled branches fail soft.
func (m *Manager) StartBranch(ctx context.Context, userID int64, name string) (*Render, error) {
	m.mu.Lock()
	b, ok := m.branches[name]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBranch, name)
	}
	if !b.Enabled {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBranchDisabled, name)
	}

	s := m.sessionLocked(userID)
	if s.Branch != "" {
		logger.Warn(ctx, "dialog", "branch.overwrite",
			slog.Int64("user_id", userID),
			slog.String("branch", s.Branch),
			slog.String("next_branch", name),
		)
	}
	s.resetProgress()
	s.Branch = name
	s.LastSeen = m.now()
	m.history[userID] = append(m.history[userID], name)
	m.mu.Unlock()

	step, err := b.Entry(ctx, s, Input{})
	if err != nil {
		m.EndBranch(userID)
		return nil, fmt.Errorf("dialog: entry of %s: %w", name, err)
	}

	m.mu.Lock()
	s.Pending = step.Next
	m.mu.Unlock()

	logger.Info(ctx, "dialog", "branch.started",
		slog.Int64("user_id", userID),
		slog.String("branch", name),
	)
	return renderOf(step), nil
}

// GetActiveBranch returns the active branch name for a user, empty if none.
func (m *Manager) GetActiveBranch(userID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Branch
	}
	return ""
}

// EndBranch clears the active-branch association. Accumulated answers stay
// in memory on the session shell; history is retained.
func (m *Manager) EndBranch(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok && s.Branch != "" {
		logger.Info(context.Background(), "dialog", "branch.ended",
			slog.Int64("user_id", userID),
			slog.String("branch", s.Branch),
		)
		s.Branch = ""
		s.Pending = ""
	}
}

// ResetUser removes the session and its history, used by a full restart.
func (m *Manager) ResetUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	delete(m.history, userID)
}

// History returns branch names the user has started, oldest first.
func (m *Manager) History(userID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.history[userID]...)
}

// Advance routes an inbound event to the pending handler of the user's
// active branch and returns the resulting render. Events for users without
// an active branch are dropped (nil, nil): a completed or never-started
// dialog ignores stray and duplicate deliveries entirely.
func (m *Manager) Advance(ctx context.Context, userID int64, in Input) (*Render, error) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	if !ok || s.Branch == "" {
		m.mu.RUnlock()
		logger.Debug(ctx, "dialog", "advance.drop",
			slog.Int64("user_id", userID),
		)
		return nil, nil
	}
	b := m.branches[s.Branch]
	pending := s.Pending
	m.mu.RUnlock()

	if b == nil || pending == "" {
		return nil, nil
	}
	handler, ok := b.Handlers[pending]
	if !ok {
		logger.Error(ctx, "dialog", "advance.no_handler",
			slog.Int64("user_id", userID),
			slog.String("branch", b.Name),
			slog.String("step", string(pending)),
		)
		return nil, nil
	}

	step, err := handler(ctx, s, in)
	if err != nil {
		return nil, fmt.Errorf("dialog: step %s of %s: %w", pending, b.Name, err)
	}

	if step.Terminal() {
		// Teardown happens eagerly so a duplicate delivery of the final
		// event finds no active branch and falls into the drop path.
		var completeErr error
		if b.Complete != nil {
			completeErr = b.Complete(ctx, s)
		}
		m.EndBranch(userID)
		logger.Info(ctx, "dialog", "branch.completed",
			slog.Int64("user_id", userID),
			slog.String("branch", b.Name),
			slog.String("status", logger.Status(completeErr)),
		)
		if completeErr != nil {
			return renderOf(step), fmt.Errorf("dialog: completion of %s: %w", b.Name, completeErr)
		}
		return renderOf(step), nil
	}

	m.mu.Lock()
	s.Pending = step.Next
	s.LastSeen = m.now()
	m.mu.Unlock()
	return renderOf(step), nil
}

// Expire removes sessions idle longer than the configured TTL and returns
// how many were dropped. A zero TTL disables expiry.
func (m *Manager) Expire() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Info(context.Background(), "dialog", "sessions.expired",
			slog.Int("count", removed),
			slog.Int("active", len(m.sessions)),
		)
	}
	return removed
}

// RunExpiry sweeps idle sessions on the interval until ctx is done.
func (m *Manager) RunExpiry(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Expire()
		}
	}
}
