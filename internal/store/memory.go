package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/mvolkov/gateward/internal/model"
)

// Memory is the in-process backend implementing both BlockStore and
// VetoHistory. All read-modify-write sequences hold one mutex, which gives
// the per-subject serialization guarantee for concurrent turns.
type Memory struct {
	mu        sync.Mutex
	blocks    map[string]model.BlockStatus
	vetoes    map[string][]time.Time
	retention time.Duration
	now       func() time.Time
}

// DefaultRetention bounds how long veto events are kept. Queries with a
// window larger than the retention are rejected: entries younger than the
// window must never have been pruned, so an undercount is impossible.
const DefaultRetention = time.Hour

// NewMemory creates a Memory store with the default retention and wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(DefaultRetention, time.Now)
}

// NewMemoryWithClock creates a Memory store with an injected clock.
// Test harnesses use a fixed clock for deterministic expiry boundaries.
func NewMemoryWithClock(retention time.Duration, now func() time.Time) *Memory {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Memory{
		blocks:    make(map[string]model.BlockStatus),
		vetoes:    make(map[string][]time.Time),
		retention: retention,
		now:       now,
	}
}

// Block records an active block for subject, overwriting any prior record.
func (m *Memory) Block(subject, reason string, ttl time.Duration) error {
	if subject == "" {
		return fmt.Errorf("%w: empty subject", model.ErrInvalidArgument)
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: block ttl must be positive, got %s", model.ErrInvalidArgument, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	m.blocks[subject] = model.BlockStatus{
		Subject:   subject,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// IsBlocked reports whether subject has a non-expired block record.
// Expired records are deleted on read.
func (m *Memory) IsBlocked(subject string) (bool, error) {
	s, err := m.Status(subject)
	return s != nil, err
}

// Status returns the active block record for subject, or nil.
func (m *Memory) Status(subject string) (*model.BlockStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[subject]
	if !ok {
		return nil, nil
	}
	if !b.Active(m.now().UTC()) {
		delete(m.blocks, subject)
		return nil, nil
	}
	return &b, nil
}

// Unblock removes the block record for subject. No error if absent.
func (m *Memory) Unblock(subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, subject)
	return nil
}

// Track appends a veto event at the current time and prunes stale entries.
func (m *Memory) Track(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: empty subject", model.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	m.vetoes[subject] = append(pruneFront(m.vetoes[subject], now.Add(-m.retention)), now)
	return nil
}

// RecentCount counts veto events for subject with timestamp >= now - window.
// Windows beyond the retention fail: events inside such a window may already
// be pruned, and a silent undercount is worse than an error.
func (m *Memory) RecentCount(subject string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: window must be positive, got %s", model.ErrInvalidArgument, window)
	}
	if window > m.retention {
		return 0, fmt.Errorf("%w: window %s exceeds veto retention %s", model.ErrInvalidArgument, window, m.retention)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	entries := pruneFront(m.vetoes[subject], now.Add(-m.retention))
	if len(entries) == 0 {
		delete(m.vetoes, subject)
		return 0, nil
	}
	m.vetoes[subject] = entries

	cutoff := now.Add(-window)
	count := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Before(cutoff) {
			break
		}
		count++
	}
	return count, nil
}

// Reset clears all state. Test harness use only.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = make(map[string]model.BlockStatus)
	m.vetoes = make(map[string][]time.Time)
}

// pruneFront drops entries strictly older than keepFrom. Entries are
// appended in time order, so eviction only ever happens at the front.
func pruneFront(entries []time.Time, keepFrom time.Time) []time.Time {
	i := 0
	for i < len(entries) && entries[i].Before(keepFrom) {
		i++
	}
	return entries[i:]
}
