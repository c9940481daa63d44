// Package schedule provides keyed, cancellable delayed actions. Scheduling
// under a key cancels any action previously scheduled under the same key, so
// each key is a single-slot timer track. The editor uses three tracks: the
// save debounce, the save retry, and the navigation auto-hide.
package schedule

import (
	"sync"
	"time"
)

// Scheduler schedules one pending action per key.
type Scheduler interface {
	// Schedule runs fn after d, cancelling any action pending under key.
	Schedule(key string, d time.Duration, fn func())
	// Cancel drops the pending action under key, if any.
	Cancel(key string)
	// Stop cancels every pending action.
	Stop()
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *TimerScheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	// Stop can miss a callback that already left the runtime's timer queue.
	// The callback checks it still owns the slot before firing, so a stale
	// one can neither run nor evict its replacement's entry.
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[key] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = t
}

func (s *TimerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
}

// ManualScheduler is a test Scheduler: nothing fires until the test calls
// Fire. It records the delay each key was last scheduled with.
type ManualScheduler struct {
	mu      sync.Mutex
	pending map[string]func()
	Delays  map[string]time.Duration
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		pending: make(map[string]func()),
		Delays:  make(map[string]time.Duration),
	}
}

func (s *ManualScheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = fn
	s.Delays[key] = d
}

func (s *ManualScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[string]func())
}

// Pending reports whether an action is scheduled under key.
func (s *ManualScheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Fire runs and clears the action under key. It reports whether one was
// pending.
func (s *ManualScheduler) Fire(key string) bool {
	s.mu.Lock()
	fn, ok := s.pending[key]
	delete(s.pending, key)
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}
