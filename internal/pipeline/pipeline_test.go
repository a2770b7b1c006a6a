package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/model"
)

type stubGate struct {
	id      string
	status  model.GateStatus
	action  model.GateAction
	output  any
	execute func(ctx context.Context, state *gate.State) gate.Result
	calls   int
}

func (s *stubGate) ID() string { return s.id }

func (s *stubGate) Execute(ctx context.Context, state *gate.State) gate.Result {
	s.calls++
	if s.execute != nil {
		return s.execute(ctx, state)
	}
	return gate.Result{Status: s.status, Action: s.action, Output: s.output}
}

func passGate(id string, output any) *stubGate {
	return &stubGate{id: id, status: model.StatusPass, output: output}
}

func TestRunAllPass(t *testing.T) {
	a := passGate("a", "out-a")
	b := passGate("b", "out-b")
	terminal := passGate("term", "out-term")

	run := New([]gate.Gate{a, b}, terminal, 0).Run(context.Background(), "u1", "hello")

	if run.Verdict != model.StatusPass {
		t.Errorf("expected pass verdict, got %s", run.Verdict)
	}
	if len(run.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(run.Results))
	}
	for _, id := range []string{"a", "b", "term"} {
		if _, ok := run.State.Output(id); !ok {
			t.Errorf("missing folded output for gate %s", id)
		}
	}
	if run.State.RunID == "" {
		t.Error("run id not assigned")
	}
}

func TestAbortHaltsImmediately(t *testing.T) {
	a := passGate("a", "out-a")
	b := &stubGate{id: "b", status: model.StatusBlock, output: "out-b"}
	c := passGate("c", "out-c")
	terminal := passGate("term", nil)

	run := New([]gate.Gate{a, b, c}, terminal, 0).Run(context.Background(), "u1", "hello")

	if !run.Aborted {
		t.Error("expected aborted run")
	}
	if run.Verdict != model.StatusBlock {
		t.Errorf("expected block verdict, got %s", run.Verdict)
	}
	if c.calls != 0 {
		t.Error("gate after abort must not run")
	}
	if terminal.calls != 0 {
		t.Error("terminal gate must not run after abort")
	}
	// Accumulated state survives the halt.
	if _, ok := run.State.Output("a"); !ok {
		t.Error("output from the gate before the abort was lost")
	}
	if _, ok := run.State.Output("b"); !ok {
		t.Error("output from the aborting gate was lost")
	}
}

func TestRedirectSkipsToTerminal(t *testing.T) {
	a := &stubGate{id: "a", status: model.StatusEscalate, output: "out-a"}
	b := passGate("b", "out-b")
	terminal := passGate("term", "out-term")

	run := New([]gate.Gate{a, b}, terminal, 0).Run(context.Background(), "u1", "hello")

	if !run.Redirected {
		t.Error("expected redirected run")
	}
	if b.calls != 0 {
		t.Error("normal gate after redirect must not run")
	}
	if terminal.calls != 1 {
		t.Error("terminal gate must still run after redirect")
	}
}

func TestRedirectNotDowngradedByTerminalPass(t *testing.T) {
	// A gate escalates, the shield finds nothing on its own: the run stays
	// escalated instead of quietly passing.
	a := &stubGate{id: "a", status: model.StatusEscalate, output: "out-a"}
	terminal := passGate("term", "out-term")

	run := New([]gate.Gate{a}, terminal, 0).Run(context.Background(), "u1", "hello")

	if !run.Redirected {
		t.Error("expected redirected run")
	}
	if run.Verdict != model.StatusEscalate {
		t.Errorf("expected escalate verdict to survive a terminal pass, got %s", run.Verdict)
	}
}

func TestTerminalVerdictWins(t *testing.T) {
	a := passGate("a", nil)
	terminal := &stubGate{id: "term", status: model.StatusBlock}

	run := New([]gate.Gate{a}, terminal, 0).Run(context.Background(), "u1", "hello")

	if run.Verdict != model.StatusBlock {
		t.Errorf("expected terminal block verdict, got %s", run.Verdict)
	}
	if !run.Aborted {
		t.Error("terminal abort action must mark the run aborted")
	}
}

func TestTimeoutFailsClosed(t *testing.T) {
	slow := &stubGate{
		id: "slow",
		execute: func(ctx context.Context, state *gate.State) gate.Result {
			time.Sleep(500 * time.Millisecond)
			return gate.Result{Status: model.StatusPass}
		},
	}
	terminal := passGate("term", nil)

	run := New([]gate.Gate{slow}, terminal, 20*time.Millisecond).Run(context.Background(), "u1", "hello")

	if len(run.Results) < 1 {
		t.Fatal("expected a result for the timed-out gate")
	}
	timedOut := run.Results[0]
	if timedOut.Status != model.StatusEscalate {
		t.Errorf("expected fail-closed escalation, got %s", timedOut.Status)
	}
	var evalErr *model.EvaluationError
	if !errors.As(timedOut.Err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", timedOut.Err)
	}
	if evalErr.GateID != "slow" {
		t.Errorf("expected gate id slow, got %s", evalErr.GateID)
	}
	if !run.Redirected {
		t.Error("timeout must redirect past remaining normal gates")
	}
	if terminal.calls != 1 {
		t.Error("terminal gate must still run after a timeout")
	}
}

func TestCancelledContextFailsClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := &stubGate{
		id: "blocked",
		execute: func(ctx context.Context, state *gate.State) gate.Result {
			time.Sleep(500 * time.Millisecond)
			return gate.Result{Status: model.StatusPass}
		},
	}
	terminal := passGate("term", nil)

	run := New([]gate.Gate{blocked}, terminal, time.Second).Run(ctx, "u1", "hello")

	if run.Results[0].Status != model.StatusEscalate {
		t.Errorf("expected escalation on cancelled context, got %s", run.Results[0].Status)
	}
}

func TestSummaryFindsRiskSummary(t *testing.T) {
	summary := model.RiskSummary{RiskLevel: model.RiskHigh, Reasons: []string{"x"}}
	a := passGate("a", "not-a-summary")
	terminal := &stubGate{id: "term", status: model.StatusEscalate, output: summary}

	run := New([]gate.Gate{a}, terminal, 0).Run(context.Background(), "u1", "hello")

	got, ok := run.Summary()
	if !ok {
		t.Fatal("expected a summary")
	}
	if got.RiskLevel != model.RiskHigh {
		t.Errorf("expected high risk, got %s", got.RiskLevel)
	}
}

func TestSummaryAbsent(t *testing.T) {
	run := New(nil, passGate("term", "plain"), 0).Run(context.Background(), "u1", "hello")
	if _, ok := run.Summary(); ok {
		t.Error("expected no summary when no gate produced one")
	}
}
