// Package flow provides the keyed timer used for delayed follow-up messages.
package flow

import (
	"log/slog"
	"sync"
	"time"
)

// UserTimer implements the Timer interface using Go's standard time package.
// Timers are keyed (by user id in practice); scheduling for an existing key
// replaces the pending timer, so a stale follow-up never fires after the
// user's state has moved on.
type UserTimer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewUserTimer creates a new UserTimer.
func NewUserTimer() *UserTimer {
	slog.Debug("Creating UserTimer")
	return &UserTimer{timers: make(map[string]*time.Timer)}
}

// ScheduleAfter schedules fn to run after delay, replacing any pending timer
// for the same key.
func (t *UserTimer) ScheduleAfter(key string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.timers[key]; ok {
		prev.Stop()
		slog.Debug("UserTimer.ScheduleAfter: replaced pending timer", "key", key)
	}

	t.timers[key] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
		slog.Debug("UserTimer executing scheduled function", "key", key)
		fn()
	})
	slog.Debug("UserTimer.ScheduleAfter: timer scheduled", "key", key, "delay", delay)
}

// Cancel discards the pending timer for a key, if any.
func (t *UserTimer) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
		slog.Debug("UserTimer.Cancel: timer cancelled", "key", key)
	}
}

// Stop cancels all pending timers.
func (t *UserTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	slog.Debug("UserTimer stopping all timers", "count", len(t.timers))
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
