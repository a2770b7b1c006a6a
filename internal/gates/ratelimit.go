package gates

import (
	"context"
	"time"

	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/ratelimit"
)

// RateLimitOutput records the subject's turn budget at evaluation time.
type RateLimitOutput struct {
	Limited bool `json:"limited"`
	Current int  `json:"current"`
	Limit   int  `json:"limit"`
}

// RateLimitGate blocks subjects that exceed their turn budget. Flood
// control runs before any content inspection so a flooding subject
// cannot burn pattern-matching cycles.
type RateLimitGate struct {
	tracker *ratelimit.Tracker
	limits  ratelimit.Limits
	now     func() time.Time
}

// NewRateLimitGate creates a RateLimitGate over a shared tracker.
func NewRateLimitGate(tracker *ratelimit.Tracker, limits ratelimit.Limits) *RateLimitGate {
	return &RateLimitGate{tracker: tracker, limits: limits, now: time.Now}
}

// ID returns the gate id.
func (g *RateLimitGate) ID() string {
	return RateLimitGateID
}

// Execute counts the turn against the subject's window and blocks on
// overflow. Subjects without a configured limit pass untouched.
func (g *RateLimitGate) Execute(ctx context.Context, state *gate.State) gate.Result {
	result, exceeded := ratelimit.Evaluate(state.Subject, g.tracker, g.limits, g.now())
	if exceeded {
		return gate.Result{
			Status: model.StatusBlock,
			Reason: result.Reason,
			Output: RateLimitOutput{Limited: true, Current: result.Current, Limit: result.Limit},
		}
	}
	return gate.Result{
		Status: model.StatusPass,
		Output: RateLimitOutput{Current: result.Current, Limit: result.Limit},
	}
}
