package ratelimit

import (
	"sync"
	"time"
)

// Tracker counts turns per subject inside a fixed window. One Tracker is
// shared by all pipeline runs in a process and survives catalog reloads.
type Tracker struct {
	mu          sync.Mutex
	counts      map[string]int
	windowStart map[string]time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		counts:      make(map[string]int),
		windowStart: make(map[string]time.Time),
	}
}

// Snapshot reads the current turn count for a subject.
// If the subject's window has expired, the counter and window start are reset.
func (t *Tracker) Snapshot(subject string, window time.Duration, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.windowStart[subject]
	if !ok || now.Sub(start) >= window {
		t.counts[subject] = 0
		t.windowStart[subject] = now
	}
	return t.counts[subject]
}

// Increment records one turn for the subject.
func (t *Tracker) Increment(subject string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[subject]++
}
