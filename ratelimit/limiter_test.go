package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	return New("message", cfg, WithClock(clock.now)), clock
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if l.Allow(1) {
		t.Fatal("request over limit admitted")
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxRequests: 2, Window: time.Minute})

	if !l.Allow(1) || !l.Allow(1) {
		t.Fatal("initial requests denied")
	}
	if l.Allow(1) {
		t.Fatal("third request admitted")
	}

	clock.advance(61 * time.Second)
	if !l.Allow(1) {
		t.Fatal("request denied after window slid")
	}
}

func TestCooldownBlocksUntilElapsed(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxRequests: 1, Window: time.Minute, Cooldown: 5 * time.Minute})

	if !l.Allow(1) {
		t.Fatal("first request denied")
	}
	if l.Allow(1) {
		t.Fatal("second request admitted")
	}

	// Inside cooldown even though the window itself has slid.
	clock.advance(2 * time.Minute)
	if l.Allow(1) {
		t.Fatal("request admitted during cooldown")
	}
	if got := l.CooldownRemaining(1); got != 3*time.Minute {
		t.Fatalf("CooldownRemaining = %v, want 3m", got)
	}

	clock.advance(3 * time.Minute)
	if !l.Allow(1) {
		t.Fatal("request denied after cooldown elapsed")
	}
}

func TestUsersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 1, Window: time.Minute})

	if !l.Allow(1) {
		t.Fatal("user 1 first request denied")
	}
	if l.Allow(1) {
		t.Fatal("user 1 second request admitted")
	}
	if !l.Allow(2) {
		t.Fatal("user 2 affected by user 1 limit")
	}
}

func TestResetClearsState(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 1, Window: time.Minute, Cooldown: time.Hour})

	l.Allow(1)
	if l.Allow(1) {
		t.Fatal("second request admitted")
	}
	l.Reset(1)
	if !l.Allow(1) {
		t.Fatal("request denied after reset")
	}
}

func TestRemaining(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxRequests: 3, Window: time.Minute})

	if got := l.Remaining(1); got != 3 {
		t.Fatalf("Remaining fresh = %d, want 3", got)
	}
	l.Allow(1)
	l.Allow(1)
	if got := l.Remaining(1); got != 1 {
		t.Fatalf("Remaining after two = %d, want 1", got)
	}
	clock.advance(2 * time.Minute)
	if got := l.Remaining(1); got != 3 {
		t.Fatalf("Remaining after window = %d, want 3", got)
	}
}

func TestCleanupDropsIdleUsers(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxRequests: 5, Window: time.Minute})

	l.Allow(1)
	l.Allow(2)

	clock.advance(2 * time.Minute)
	l.Allow(2) // keeps user 2 fresh
	l.Cleanup()

	l.mu.Lock()
	_, idlePresent := l.users[1]
	_, activePresent := l.users[2]
	l.mu.Unlock()
	if idlePresent {
		t.Fatal("idle user not removed")
	}
	if !activePresent {
		t.Fatal("active user removed")
	}
}

func TestZeroCooldownDeniesUntilWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxRequests: 1, Window: time.Minute})

	l.Allow(1)
	if l.Allow(1) {
		t.Fatal("over-limit request admitted")
	}
	// No cooldown: a few seconds later still denied, window not yet slid.
	clock.advance(10 * time.Second)
	if l.Allow(1) {
		t.Fatal("request admitted before window slid")
	}
	clock.advance(55 * time.Second)
	if !l.Allow(1) {
		t.Fatal("request denied after window slid")
	}
}
