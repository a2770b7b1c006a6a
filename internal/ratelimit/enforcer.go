package ratelimit

import (
	"fmt"
	"time"
)

// CheckResult is the outcome of a rate limit check.
type CheckResult struct {
	Exceeded bool
	Current  int
	Limit    int
	Reason   string
}

// Check compares the current count against the rate limit.
func Check(count int, limit *TurnRateLimit) CheckResult {
	if limit == nil || limit.MaxTurns <= 0 || limit.Window <= 0 {
		return CheckResult{}
	}
	if count >= limit.MaxTurns {
		return CheckResult{
			Exceeded: true,
			Current:  count,
			Limit:    limit.MaxTurns,
			Reason: fmt.Sprintf("rate limit exceeded: %d/%d turns in %s window",
				count, limit.MaxTurns, limit.Window),
		}
	}
	return CheckResult{Current: count, Limit: limit.MaxTurns}
}

// Evaluate looks up the subject's rate limit and checks whether it is
// exceeded. Returns (result, true) if exceeded.
// Returns (result, false) if within limit or no limit configured.
//
// Lookup order: limits[subject] then limits["*"] then skip.
// When the check passes, the counter is incremented.
func Evaluate(subject string, tracker *Tracker, limits Limits, now time.Time) (CheckResult, bool) {
	if len(limits) == 0 || tracker == nil {
		return CheckResult{}, false
	}

	limit := limits.ForSubject(subject)
	if limit == nil || limit.MaxTurns <= 0 {
		return CheckResult{}, false
	}

	count := tracker.Snapshot(subject, limit.Window, now)
	result := Check(count, limit)
	if !result.Exceeded {
		tracker.Increment(subject)
		return result, false
	}
	return result, true
}
