package testutil

import (
	"context"
	"sync"
	"time"
)

// EventLog is a shared, ordered record of test double activity.
// Spy transports and sleepers append to it so tests can assert interleaving.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type EventLog struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event.
func (l *EventLog) Add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// RecordingSleeper records requested sleeps without blocking.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration

	// Log, when set, receives "sleep:<duration>" per call.
	Log *EventLog

	// OnSleep, when set, runs after each recorded sleep with the 1-based
	// sleep count. Tests use it to cancel a context mid-poll.
	OnSleep func(n int)
}

// Sleep records d and returns ctx.Err() if ctx is already done.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	n := len(s.sleeps)
	s.mu.Unlock()

	s.Log.Add("sleep:" + d.String())
	if s.OnSleep != nil {
		s.OnSleep(n)
	}
	return ctx.Err()
}

// Sleeps returns a copy of the recorded durations.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// Reset clears the recorded durations.
func (s *RecordingSleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = nil
}
