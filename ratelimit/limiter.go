// Package ratelimit implements per-user sliding-window admission control
// with an optional cooldown after the limit is exceeded.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/kingspeech/leadbot/core/logger"
	"log/slog"
)

// Config holds the limits for a single traffic class.
type Config struct {
	MaxRequests int
	Window      time.Duration
	Cooldown    time.Duration
}

type userState struct {
	requests     []time.Time
	blockedSince time.Time
	blocked      bool
}

// Limiter admits or rejects requests per user. The window is approximate:
// timestamps older than Window are dropped on each check before counting.
type Limiter struct {
	cfg   Config
	class string
	now   func() time.Time

	mu    sync.Mutex
	users map[int64]*userState
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter for one traffic class ("message", "callback", "command").
func New(class string, cfg Config, opts ...Option) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	l := &Limiter{
		cfg:   cfg,
		class: class,
		now:   time.Now,
		users: make(map[int64]*userState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for the user and reports whether it is admitted.
func (l *Limiter) Allow(userID int64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.users[userID]
	if !ok {
		st = &userState{}
		l.users[userID] = st
	}
	st.requests = trimWindow(st.requests, now, l.cfg.Window)

	if st.blocked {
		if now.Sub(st.blockedSince) < l.cfg.Cooldown {
			return false
		}
		// cooldown elapsed, start a fresh window
		st.blocked = false
		st.requests = st.requests[:0]
	}

	if len(st.requests) >= l.cfg.MaxRequests {
		if l.cfg.Cooldown > 0 {
			st.blocked = true
			st.blockedSince = now
		}
		logger.Warn(context.Background(), "limiter", "limit.exceeded",
			slog.String("class", l.class),
			slog.Int64("user_id", userID),
			slog.Int("requests", len(st.requests)),
		)
		return false
	}

	st.requests = append(st.requests, now)
	return true
}

// Remaining returns how many requests the user may still make in the window.
func (l *Limiter) Remaining(userID int64) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.users[userID]
	if !ok {
		return l.cfg.MaxRequests
	}
	st.requests = trimWindow(st.requests, now, l.cfg.Window)
	remaining := l.cfg.MaxRequests - len(st.requests)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CooldownRemaining reports how long the user stays blocked, zero if not blocked.
func (l *Limiter) CooldownRemaining(userID int64) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.users[userID]
	if !ok || !st.blocked {
		return 0
	}
	remaining := l.cfg.Cooldown - now.Sub(st.blockedSince)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears all limiter state for the user.
func (l *Limiter) Reset(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.users, userID)
}

// Cleanup removes users whose latest activity is older than
// max(window, cooldown), bounding memory for abandoned chats.
func (l *Limiter) Cleanup() {
	now := l.now()
	keep := l.cfg.Window
	if l.cfg.Cooldown > keep {
		keep = l.cfg.Cooldown
	}
	cutoff := now.Add(-keep)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, st := range l.users {
		st.requests = trimAfter(st.requests, cutoff)
		stale := len(st.requests) == 0 && (!st.blocked || st.blockedSince.Before(cutoff))
		if stale {
			delete(l.users, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Debug(context.Background(), "limiter", "cleanup",
			slog.String("class", l.class),
			slog.Int("removed", removed),
			slog.Int("tracked", len(l.users)),
		)
	}
}

// RunCleanup sweeps state on the given interval until ctx is done.
func (l *Limiter) RunCleanup(ctx context.Context, interval time.Duration) {
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
			l.Cleanup()
		}
	}
}

func trimWindow(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	return trimAfter(ts, now.Add(-window))
}

func trimAfter(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
