package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mvolkov/gateward/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS subject_blocks (
	subject     TEXT PRIMARY KEY,
	reason      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS veto_events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	subject  TEXT NOT NULL,
	ts       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_veto_subject_ts ON veto_events(subject, ts);
`

// SQLite is a durable backend implementing BlockStore and VetoHistory.
// Timestamps are stored as Unix milliseconds so expiry and window
// boundaries stay exact across process restarts.
type SQLite struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string, retention time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrStoreUnavailable, path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pragma: %v", model.ErrStoreUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", model.ErrStoreUnavailable, err)
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &SQLite{db: db, retention: retention, now: time.Now}, nil
}

// SetClock overrides the store's clock. Test harness use only.
func (s *SQLite) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Block inserts or overwrites the active record for subject.
func (s *SQLite) Block(subject, reason string, ttl time.Duration) error {
	if subject == "" {
		return fmt.Errorf("%w: empty subject", model.ErrInvalidArgument)
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: block ttl must be positive, got %s", model.ErrInvalidArgument, ttl)
	}

	now := s.now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO subject_blocks (subject, reason, created_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(subject) DO UPDATE SET
		   reason = excluded.reason,
		   created_at = excluded.created_at,
		   expires_at = excluded.expires_at`,
		subject, reason, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: block %s: %v", model.ErrStoreUnavailable, subject, err)
	}
	return nil
}

// IsBlocked reports whether subject has a non-expired block record.
func (s *SQLite) IsBlocked(subject string) (bool, error) {
	st, err := s.Status(subject)
	return st != nil, err
}

// Status returns the active block record for subject, or nil.
// Expired rows are deleted on read.
func (s *SQLite) Status(subject string) (*model.BlockStatus, error) {
	var reason string
	var createdMs, expiresMs int64
	err := s.db.QueryRow(
		`SELECT reason, created_at, expires_at FROM subject_blocks WHERE subject = ?`,
		subject,
	).Scan(&reason, &createdMs, &expiresMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: status %s: %v", model.ErrStoreUnavailable, subject, err)
	}

	b := model.BlockStatus{
		Subject:   subject,
		Reason:    reason,
		CreatedAt: time.UnixMilli(createdMs).UTC(),
		ExpiresAt: time.UnixMilli(expiresMs).UTC(),
	}
	if !b.Active(s.now().UTC()) {
		s.db.Exec(`DELETE FROM subject_blocks WHERE subject = ?`, subject)
		return nil, nil
	}
	return &b, nil
}

// Unblock removes the block record for subject. No error if absent.
func (s *SQLite) Unblock(subject string) error {
	if _, err := s.db.Exec(`DELETE FROM subject_blocks WHERE subject = ?`, subject); err != nil {
		return fmt.Errorf("%w: unblock %s: %v", model.ErrStoreUnavailable, subject, err)
	}
	return nil
}

// Track appends a veto event and prunes entries past the retention window.
func (s *SQLite) Track(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: empty subject", model.ErrInvalidArgument)
	}

	now := s.now().UTC()
	if _, err := s.db.Exec(`INSERT INTO veto_events (subject, ts) VALUES (?, ?)`,
		subject, now.UnixMilli()); err != nil {
		return fmt.Errorf("%w: track %s: %v", model.ErrStoreUnavailable, subject, err)
	}
	s.db.Exec(`DELETE FROM veto_events WHERE subject = ? AND ts < ?`,
		subject, now.Add(-s.retention).UnixMilli())
	return nil
}

// RecentCount counts veto events with ts >= now - window (inclusive).
// Windows beyond the retention fail rather than undercounting against
// already-pruned rows.
func (s *SQLite) RecentCount(subject string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: window must be positive, got %s", model.ErrInvalidArgument, window)
	}
	if window > s.retention {
		return 0, fmt.Errorf("%w: window %s exceeds veto retention %s", model.ErrInvalidArgument, window, s.retention)
	}

	cutoff := s.now().UTC().Add(-window).UnixMilli()
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM veto_events WHERE subject = ? AND ts >= ?`,
		subject, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: recent count %s: %v", model.ErrStoreUnavailable, subject, err)
	}
	return count, nil
}
