package scheduler

import (
	"sync"
	"time"
)

// expiryRegistry tracks the pending grace-window deletion timer per
// reminder id so a snooze or acknowledge can cancel it, and so shutdown
// does not orphan timers.
type expiryRegistry struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func newExpiryRegistry() *expiryRegistry {
	return &expiryRegistry{timers: make(map[int64]*time.Timer)}
}

func (e *expiryRegistry) arm(reminderID int64, d time.Duration, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[reminderID]; ok {
		t.Stop()
	}
	e.timers[reminderID] = time.AfterFunc(d, func() {
		e.mu.Lock()
		delete(e.timers, reminderID)
		e.mu.Unlock()
		fn()
	})
}

func (e *expiryRegistry) cancel(reminderID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.timers[reminderID]
	if !ok {
		return false
	}
	delete(e.timers, reminderID)
	return t.Stop()
}

func (e *expiryRegistry) pending(reminderID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[reminderID]
	return ok
}

func (e *expiryRegistry) shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}
