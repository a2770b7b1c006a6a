// Package store holds the durable-for-the-session abuse state: the block
// store and the sliding-window veto history. Both are constructed explicitly
// at startup and injected — one instance per process is a deployment choice,
// not a language feature, so tests build isolated instances freely.
package store

import (
	"time"

	"github.com/mvolkov/gateward/internal/model"
)

// BlockStore manages time-bounded denial records, one active per subject.
type BlockStore interface {
	// Block inserts or overwrites the active record for subject with
	// expiry now+ttl. Fails with model.ErrInvalidArgument when ttl <= 0
	// or subject is empty.
	Block(subject, reason string, ttl time.Duration) error

	// IsBlocked reports whether an active (non-expired) record exists.
	// Expired records are lazily treated as absent.
	IsBlocked(subject string) (bool, error)

	// Status returns the active block record, or nil when none is active.
	Status(subject string) (*model.BlockStatus, error)

	// Unblock removes the record if present. Idempotent.
	Unblock(subject string) error
}

// VetoHistory records veto events per subject and counts them over a
// sliding window. Entries older than the retention window are pruned.
type VetoHistory interface {
	// Track appends a veto event for subject at the current time.
	Track(subject string) error

	// RecentCount counts events with timestamp >= now - window.
	// The boundary is inclusive: an event exactly at now-window counts.
	// Windows longer than the retention fail with model.ErrInvalidArgument
	// instead of silently undercounting against pruned entries.
	RecentCount(subject string, window time.Duration) (int, error)
}

// Stores bundles both stores behind one handle so backends that implement
// both (memory, sqlite) can be passed around together.
type Stores struct {
	Blocks BlockStore
	Vetoes VetoHistory
}
