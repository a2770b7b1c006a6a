// Package pipeline owns the ordered gate sequence. The orchestrator is a
// pure reducer over gate results: it holds no domain logic and is the only
// writer of per-gate outputs into the run state.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/runid"
)

// DefaultGateTimeout bounds a single gate execution.
const DefaultGateTimeout = 5 * time.Second

// Pipeline runs an ordered sequence of gates followed by a terminal gate
// that is never skipped. The sequence is resolved at construction and never
// mutated at runtime.
type Pipeline struct {
	gates    []gate.Gate
	terminal gate.Gate
	timeout  time.Duration
}

// New creates a Pipeline. terminal is the safety backstop (the shield gate);
// it runs even after a redirect. timeout <= 0 selects DefaultGateTimeout.
func New(normal []gate.Gate, terminal gate.Gate, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultGateTimeout
	}
	return &Pipeline{gates: normal, terminal: terminal, timeout: timeout}
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	State      *gate.State
	Results    []gate.Result
	Verdict    model.GateStatus
	Redirected bool
	Aborted    bool
}

// Summary extracts the shield gate's RiskSummary when the run reached it.
func (r *RunResult) Summary() (model.RiskSummary, bool) {
	for i := len(r.Results) - 1; i >= 0; i-- {
		if s, ok := r.Results[i].Output.(model.RiskSummary); ok {
			return s, true
		}
	}
	return model.RiskSummary{}, false
}

// Run pushes one inbound turn through the gate sequence.
//
// For each gate in order: invoke with a per-gate timeout, record elapsed
// time, fold the output into state under the gate id, then apply the
// action. continue proceeds; abort halts immediately with the accumulated
// state; redirect skips the remaining normal gates but still evaluates the
// terminal gate. A timed-out or cancelled gate is treated as having
// returned a fail-closed escalation. The terminal gate can raise a
// redirected run to block but never lower it back to pass.
func (p *Pipeline) Run(ctx context.Context, subject, message string) *RunResult {
	state := gate.NewState(runid.New(), subject, message)
	run := &RunResult{State: state}

	for _, g := range p.gates {
		result := p.execute(ctx, g, state)
		run.Results = append(run.Results, result)
		state.Fold(g.ID(), result.Output)

		switch result.Action {
		case model.ActionAbort:
			run.Aborted = true
			run.Verdict = model.StatusBlock
			return run
		case model.ActionRedirect:
			run.Redirected = true
		}
		if run.Redirected {
			break
		}
	}

	terminal := p.execute(ctx, p.terminal, state)
	run.Results = append(run.Results, terminal)
	state.Fold(p.terminal.ID(), terminal.Output)

	run.Verdict = terminal.Status
	if terminal.Action == model.ActionAbort {
		run.Aborted = true
	}
	if terminal.Action == model.ActionRedirect {
		run.Redirected = true
	}
	if run.Redirected && run.Verdict == model.StatusPass {
		// An earlier gate escalated this run; a clean terminal pass
		// does not un-escalate it.
		run.Verdict = model.StatusEscalate
	}
	return run
}

// execute runs one gate under the per-gate timeout. The gate's context is
// cancelled on expiry, so a gate abandoned mid-flight cannot apply store
// effects afterward; its eventual result is discarded.
func (p *Pipeline) execute(ctx context.Context, g gate.Gate, state *gate.State) gate.Result {
	gateCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan gate.Result, 1)
	go func() {
		done <- gate.Timed(gateCtx, g, state)
	}()

	select {
	case result := <-done:
		return result
	case <-gateCtx.Done():
		return gate.Result{
			GateID:          g.ID(),
			Status:          model.StatusEscalate,
			Action:          model.ActionRedirect,
			Reason:          "gate did not complete",
			Err:             &model.EvaluationError{GateID: g.ID(), Err: fmt.Errorf("gate execution: %w", gateCtx.Err())},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}
	}
}
