package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter bounds request volume per client identifier. Implementations use a
// fixed window: a counter and window-reset timestamp per key, reset
// atomically at window boundaries.
type Limiter interface {
	// Allow reports whether the identifier may proceed. An error means the
	// limiter backend itself failed; the caller decides the policy for that.
	Allow(ctx context.Context, identifier string) (bool, error)
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// FixedWindow is a process-local fixed-window limiter. Each service instance
// enforces limits independently; use RedisFixedWindow when multiple
// instances must share one view of request volume.
type FixedWindow struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	entries map[string]*windowEntry
}

// NewFixedWindow creates a limiter allowing max requests per window.
func NewFixedWindow(max int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*windowEntry),
	}
}

// Allow increments the identifier's counter, starting a fresh window on the
// first request or after the previous window elapsed.
func (l *FixedWindow) Allow(_ context.Context, identifier string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]
	if !ok || !now.Before(e.resetAt) {
		l.entries[identifier] = &windowEntry{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	e.count++
	return e.count <= l.max, nil
}
