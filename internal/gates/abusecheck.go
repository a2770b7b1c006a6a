package gates

import (
	"context"

	"github.com/mvolkov/gateward/internal/abuse"
	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/model"
)

// AbuseGate runs the abuse detector and records its result for the shield
// gate to consult. A detector block verdict escalates here rather than
// aborting: the shield renders the authoritative verdict.
type AbuseGate struct {
	detector *abuse.Detector
}

// NewAbuseGate creates an AbuseGate over the given detector.
func NewAbuseGate(detector *abuse.Detector) *AbuseGate {
	return &AbuseGate{detector: detector}
}

// ID returns the gate id.
func (g *AbuseGate) ID() string {
	return AbuseGateID
}

// Execute runs the detector. Store errors fail closed via escalation; the
// detector's own result is still recorded so downstream reasons are complete.
func (g *AbuseGate) Execute(ctx context.Context, state *gate.State) gate.Result {
	result, err := g.detector.Check(ctx, state.Subject, state.Message)
	if err != nil {
		return gate.Result{
			Status: model.StatusEscalate,
			Reason: "abuse check incomplete",
			Err:    &model.EvaluationError{GateID: AbuseGateID, Err: err},
			Output: result,
		}
	}

	switch result.Action {
	case abuse.ActionBlock:
		return gate.Result{Status: model.StatusEscalate, Reason: result.Reason, Output: result}
	case abuse.ActionWarn:
		return gate.Result{Status: model.StatusPass, Reason: result.Reason, Output: result}
	default:
		return gate.Result{Status: model.StatusPass, Output: result}
	}
}
