package island

import (
	"sync"
	"time"
)

// timerSet holds at most one pending scheduled task per notification key.
// Scheduling for a key cancels whatever was pending for it, so the latest
// update always supersedes earlier timeouts.
type timerSet struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[string]*time.Timer)}
}

// Schedule arms fn to run after d, replacing any pending task for the key.
func (t *timerSet) Schedule(key string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[key]; ok {
		old.Stop()
	}
	var tm *time.Timer
	tm = time.AfterFunc(d, func() {
		t.mu.Lock()
		// A replacement may have been scheduled while this callback was
		// starting; only remove the entry if it is still ours.
		if t.timers[key] == tm {
			delete(t.timers, key)
		}
		t.mu.Unlock()
		fn()
	})
	t.timers[key] = tm
}

// Cancel stops any pending task for the key.
func (t *timerSet) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[key]; ok {
		old.Stop()
		delete(t.timers, key)
	}
}

// CancelAll stops every pending task.
func (t *timerSet) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}

// Pending reports whether a task is armed for the key.
func (t *timerSet) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[key]
	return ok
}
