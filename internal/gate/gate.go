// Package gate defines the capability contract every pipeline stage
// implements, and the shared state one pipeline run threads through them.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/mvolkov/gateward/internal/model"
)

// Result is produced fresh by each gate invocation and consumed immediately
// by the orchestrator, which folds Output into the run state.
type Result struct {
	GateID          string
	Status          model.GateStatus
	Action          model.GateAction
	Output          any
	Reason          string
	Err             error
	ExecutionTimeMs int64
}

// State is the per-run pipeline state. It is owned by exactly one run and
// never shared across concurrent runs. Gate outputs accumulate monotonically
// under the orchestrator's control; gates read prior outputs but never write.
type State struct {
	RunID   string
	Subject string
	Message string

	// Guards outputs: a gate abandoned on timeout may still read state
	// while the orchestrator folds results from later gates.
	mu      sync.RWMutex
	outputs map[string]any
}

// NewState wraps an inbound turn into fresh pipeline state.
func NewState(runID, subject, message string) *State {
	return &State{
		RunID:   runID,
		Subject: subject,
		Message: message,
		outputs: make(map[string]any),
	}
}

// Output returns the recorded output of a prior gate, if any.
func (s *State) Output(gateID string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.outputs[gateID]
	return v, ok
}

// Fold records a gate's output under its id. The pipeline orchestrator is
// the only caller; a gate id is folded at most once and never rewritten.
func (s *State) Fold(gateID string, output any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outputs[gateID]; exists {
		return false
	}
	s.outputs[gateID] = output
	return true
}

// OutputIDs returns the ids of all gates that have produced output so far.
func (s *State) OutputIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.outputs))
	for id := range s.outputs {
		ids = append(ids, id)
	}
	return ids
}

// Gate is one pipeline stage. Execute must not panic past its boundary and
// must not return while any I/O it started is still pending.
type Gate interface {
	ID() string
	Execute(ctx context.Context, state *State) Result
}

// Timed wraps a gate execution and stamps the elapsed milliseconds.
func Timed(ctx context.Context, g Gate, state *State) Result {
	start := time.Now()
	result := g.Execute(ctx, state)
	result.GateID = g.ID()
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	if result.Action == "" {
		result.Action = model.ActionFor(result.Status)
	}
	return result
}
