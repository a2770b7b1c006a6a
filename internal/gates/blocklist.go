package gates

import (
	"context"
	"fmt"

	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/store"
)

// BlocklistOutput records whether the subject was blocked entering the run.
type BlocklistOutput struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// BlocklistGate short-circuits turns from subjects with an active block,
// independent of the message's content.
type BlocklistGate struct {
	blocks store.BlockStore
}

// NewBlocklistGate creates a BlocklistGate over the given store.
func NewBlocklistGate(blocks store.BlockStore) *BlocklistGate {
	return &BlocklistGate{blocks: blocks}
}

// ID returns the gate id.
func (g *BlocklistGate) ID() string {
	return BlocklistGateID
}

// Execute checks the block store. A store failure fails closed: the turn
// escalates instead of passing with an unknown block state.
func (g *BlocklistGate) Execute(ctx context.Context, state *gate.State) gate.Result {
	status, err := g.blocks.Status(state.Subject)
	if err != nil {
		return gate.Result{
			Status: model.StatusEscalate,
			Reason: "block store unavailable",
			Err:    &model.EvaluationError{GateID: BlocklistGateID, Err: err},
			Output: BlocklistOutput{},
		}
	}
	if status != nil {
		return gate.Result{
			Status: model.StatusBlock,
			Reason: fmt.Sprintf("subject blocked: %s", status.Reason),
			Output: BlocklistOutput{Blocked: true, Reason: status.Reason},
		}
	}
	return gate.Result{
		Status: model.StatusPass,
		Output: BlocklistOutput{},
	}
}
