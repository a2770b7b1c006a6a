package ratelimit

import (
	"testing"
	"time"
)

// --- Config tests ---

func TestHasLimitsEmpty(t *testing.T) {
	l := Limits{}
	if l.HasLimits() {
		t.Error("expected empty limits to have no limits")
	}
}

func TestHasLimitsConfigured(t *testing.T) {
	l := Limits{
		"*": {MaxTurns: 10, Window: time.Minute},
	}
	if !l.HasLimits() {
		t.Error("expected HasLimits=true for configured limit")
	}
}

func TestHasLimitsZeroMaxTurns(t *testing.T) {
	l := Limits{
		"*": {MaxTurns: 0, Window: time.Minute},
	}
	if l.HasLimits() {
		t.Error("expected HasLimits=false for zero MaxTurns")
	}
}

func TestHasLimitsZeroWindow(t *testing.T) {
	l := Limits{
		"*": {MaxTurns: 10, Window: 0},
	}
	if l.HasLimits() {
		t.Error("expected HasLimits=false for zero Window")
	}
}

func TestForSubjectPrefersExplicitEntry(t *testing.T) {
	l := Limits{
		"u1": {MaxTurns: 1, Window: time.Minute},
		"*":  {MaxTurns: 100, Window: time.Minute},
	}
	if got := l.ForSubject("u1"); got.MaxTurns != 1 {
		t.Errorf("expected subject-specific limit, got %d", got.MaxTurns)
	}
	if got := l.ForSubject("u2"); got.MaxTurns != 100 {
		t.Errorf("expected fallback limit, got %d", got.MaxTurns)
	}
}

// --- Tracker tests ---

func TestSnapshotStartsAtZero(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	if count := tr.Snapshot("u1", time.Minute, now); count != 0 {
		t.Errorf("expected 0, got %d", count)
	}
}

func TestSnapshotReturnsCount(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	tr.Snapshot("u1", time.Minute, now)
	tr.Increment("u1")
	tr.Increment("u1")

	if count := tr.Snapshot("u1", time.Minute, now.Add(30*time.Second)); count != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestSnapshotResetsOnWindowExpiry(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	tr.Snapshot("u1", time.Minute, now)
	tr.Increment("u1")
	tr.Increment("u1")

	if count := tr.Snapshot("u1", time.Minute, now.Add(2*time.Minute)); count != 0 {
		t.Errorf("expected 0 after window reset, got %d", count)
	}
}

func TestIncrementCountsPerSubject(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	tr.Snapshot("u1", time.Minute, now)
	tr.Snapshot("u2", time.Minute, now)
	tr.Increment("u1")
	tr.Increment("u1")
	tr.Increment("u2")

	if count := tr.Snapshot("u1", time.Minute, now); count != 2 {
		t.Errorf("expected u1=2, got %d", count)
	}
	if count := tr.Snapshot("u2", time.Minute, now); count != 1 {
		t.Errorf("expected u2=1, got %d", count)
	}
}

// --- Check tests ---

func TestCheckWithinLimit(t *testing.T) {
	limit := &TurnRateLimit{MaxTurns: 10, Window: time.Minute}
	result := Check(5, limit)
	if result.Exceeded {
		t.Error("expected within limit")
	}
}

func TestCheckAtLimit(t *testing.T) {
	limit := &TurnRateLimit{MaxTurns: 10, Window: time.Minute}
	result := Check(10, limit)
	if !result.Exceeded {
		t.Error("expected exceeded at limit")
	}
	if result.Limit != 10 {
		t.Errorf("expected limit=10, got %d", result.Limit)
	}
}

func TestCheckAboveLimit(t *testing.T) {
	limit := &TurnRateLimit{MaxTurns: 10, Window: time.Minute}
	result := Check(15, limit)
	if !result.Exceeded {
		t.Error("expected exceeded above limit")
	}
}

func TestCheckNilLimit(t *testing.T) {
	result := Check(100, nil)
	if result.Exceeded {
		t.Error("expected not exceeded for nil limit")
	}
}

func TestCheckZeroMaxTurns(t *testing.T) {
	limit := &TurnRateLimit{MaxTurns: 0, Window: time.Minute}
	result := Check(5, limit)
	if result.Exceeded {
		t.Error("expected not exceeded for zero MaxTurns")
	}
}

// --- Evaluate tests ---

func TestEvaluateNoLimits(t *testing.T) {
	tr := NewTracker()
	_, exceeded := Evaluate("u1", tr, nil, time.Now())
	if exceeded {
		t.Error("expected skip when no limits configured")
	}

	_, exceeded = Evaluate("u1", tr, Limits{}, time.Now())
	if exceeded {
		t.Error("expected skip for empty limits map")
	}
}

func TestEvaluateBurstWithinLimit(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	limits := Limits{"*": {MaxTurns: 5, Window: time.Minute}}

	for i := 0; i < 5; i++ {
		_, exceeded := Evaluate("u1", tr, limits, now)
		if exceeded {
			t.Errorf("turn %d: expected within limit", i+1)
		}
	}
}

func TestEvaluateExceedingRateBlocked(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	limits := Limits{"*": {MaxTurns: 3, Window: time.Minute}}

	// First 3 turns pass
	for i := 0; i < 3; i++ {
		_, exceeded := Evaluate("u1", tr, limits, now)
		if exceeded {
			t.Fatalf("turn %d: expected within limit", i+1)
		}
	}

	// 4th turn blocked
	result, exceeded := Evaluate("u1", tr, limits, now)
	if !exceeded {
		t.Fatal("expected rate limit exceeded")
	}
	if result.Reason == "" {
		t.Error("expected a reason for exceeded limit")
	}
	if result.Current != 3 || result.Limit != 3 {
		t.Errorf("unexpected counts: %+v", result)
	}
}

func TestEvaluateSubjectsIndependent(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	limits := Limits{"*": {MaxTurns: 2, Window: time.Minute}}

	// Exhaust u1's limit
	Evaluate("u1", tr, limits, now)
	Evaluate("u1", tr, limits, now)
	_, exceeded := Evaluate("u1", tr, limits, now)
	if !exceeded {
		t.Fatal("expected u1 rate limited")
	}

	// u2 unaffected
	_, exceeded = Evaluate("u2", tr, limits, now)
	if exceeded {
		t.Error("expected u2 independent of u1's limit")
	}
}

func TestEvaluateRateResetsAfterWindow(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	limits := Limits{"*": {MaxTurns: 2, Window: time.Minute}}

	// Exhaust limit
	Evaluate("u1", tr, limits, now)
	Evaluate("u1", tr, limits, now)
	_, exceeded := Evaluate("u1", tr, limits, now)
	if !exceeded {
		t.Fatal("expected rate limited")
	}

	// Advance past window
	later := now.Add(2 * time.Minute)
	_, exceeded = Evaluate("u1", tr, limits, later)
	if exceeded {
		t.Error("expected rate to reset after window expiry")
	}
}

func TestEvaluateSubjectLookupOrder(t *testing.T) {
	tr := NewTracker()
	now := time.Now().UTC()
	limits := Limits{
		"u1": {MaxTurns: 1, Window: time.Minute},
		"*":  {MaxTurns: 100, Window: time.Minute},
	}

	// First turn passes
	_, exceeded := Evaluate("u1", tr, limits, now)
	if exceeded {
		t.Fatal("first turn should pass")
	}

	// Second turn blocked (u1's limit is 1, not global 100)
	_, exceeded = Evaluate("u1", tr, limits, now)
	if !exceeded {
		t.Error("expected subject-specific limit (1) to apply, not global (100)")
	}
}

func TestEvaluateNoMatchingConfig(t *testing.T) {
	tr := NewTracker()
	limits := Limits{
		"other-subject": {MaxTurns: 1, Window: time.Minute},
	}

	_, exceeded := Evaluate("u1", tr, limits, time.Now())
	if exceeded {
		t.Error("expected skip when no matching config and no global fallback")
	}
}
