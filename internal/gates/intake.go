// Package gates holds the non-terminal pipeline stages that run ahead of
// the shield gate.
package gates

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/model"
)

// Gate ids used as keys in pipeline state.
const (
	IntakeGateID    = "intake"
	RateLimitGateID = "ratelimit"
	BlocklistGateID = "blocklist"
	AbuseGateID     = "abusecheck"
)

// IntakeOutput is the intake gate's record of the validated turn.
type IntakeOutput struct {
	Subject    string `json:"subject"`
	MessageLen int    `json:"message_len"`
}

// IntakeGate validates that the turn carries a subject and a non-empty
// message. Malformed turns fail closed with an escalation rather than a
// silent pass.
type IntakeGate struct{}

// NewIntakeGate creates an IntakeGate.
func NewIntakeGate() *IntakeGate {
	return &IntakeGate{}
}

// ID returns the gate id.
func (g *IntakeGate) ID() string {
	return IntakeGateID
}

// Execute validates the inbound turn.
func (g *IntakeGate) Execute(ctx context.Context, state *gate.State) gate.Result {
	if strings.TrimSpace(state.Subject) == "" {
		return gate.Result{
			Status: model.StatusEscalate,
			Reason: "missing subject identifier",
			Err:    &model.EvaluationError{GateID: IntakeGateID, Err: fmt.Errorf("%w: empty subject", model.ErrInvalidArgument)},
			Output: IntakeOutput{MessageLen: len(state.Message)},
		}
	}
	if strings.TrimSpace(state.Message) == "" {
		return gate.Result{
			Status: model.StatusEscalate,
			Reason: "empty message",
			Err:    &model.EvaluationError{GateID: IntakeGateID, Err: fmt.Errorf("%w: empty message", model.ErrInvalidArgument)},
			Output: IntakeOutput{Subject: state.Subject},
		}
	}
	return gate.Result{
		Status: model.StatusPass,
		Output: IntakeOutput{Subject: state.Subject, MessageLen: len(state.Message)},
	}
}
