// Package shield implements the terminal safety gate. It is evaluated last
// in every pipeline run and never skipped: even when an earlier gate already
// decided to continue, the shield renders the single authoritative verdict.
package shield

import (
	"context"
	"fmt"

	"github.com/mvolkov/gateward/internal/abuse"
	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/gate"
	"github.com/mvolkov/gateward/internal/gates"
	"github.com/mvolkov/gateward/internal/model"
	"github.com/mvolkov/gateward/internal/store"
)

// GateID is the shield gate's id in pipeline state.
const GateID = "shield"

// Gate runs the four-step risk evaluation and derives the run verdict.
type Gate struct {
	catalogs *catalog.Set
	detector *abuse.Detector
	blocks   store.BlockStore
}

// New creates the shield gate over the shared catalogs, detector, and
// block store.
func New(set *catalog.Set, detector *abuse.Detector, blocks store.BlockStore) *Gate {
	return &Gate{catalogs: set, detector: detector, blocks: blocks}
}

// ID returns the gate id.
func (g *Gate) ID() string {
	return GateID
}

// Execute evaluates the turn and produces a GateResult carrying a
// RiskSummary.
//
// Evaluation order (must not be changed):
//  1. Control-trigger detection — sets ControlTriggered, critical weight
//  2. Hard-veto detection — forces veto=hard, risk=critical
//  3. Soft-veto detection — veto=soft unless hard already set, risk >= high
//  4. General risk scoring — severities + abuse signals + flags from 1–3
//
// All four steps always run so Reasons is complete; only the verdict
// short-circuits, never the evidence collection. Failures are captured into
// Reasons with the evaluation_error code and a conservative risk level —
// the gate never panics or errors past its boundary.
func (g *Gate) Execute(ctx context.Context, state *gate.State) gate.Result {
	summary := model.RiskSummary{
		VetoKind:  model.VetoNone,
		RiskLevel: model.RiskLow,
		Reasons:   []string{},
	}

	evalFailed := false
	subjectBlocked := false

	if state.Subject == "" {
		// Missing upstream identity: risk is unknown but nonzero.
		summary.Reasons = append(summary.Reasons, model.ReasonMissingSubject, model.ReasonEvaluationError)
		evalFailed = true
	}

	// Step 1: control triggers
	control := g.catalogs.ControlTriggers.Match(state.Message)
	if len(control) > 0 {
		summary.ControlTriggered = true
		for _, p := range control {
			summary.Reasons = append(summary.Reasons, p.ID)
		}
	}

	// Step 2: hard vetoes — precedence over every other signal
	hard := g.catalogs.HardVetoes.Match(state.Message)
	if len(hard) > 0 {
		summary.VetoKind = model.VetoHard
		summary.RiskLevel = model.RiskCritical
		for _, p := range hard {
			summary.Reasons = append(summary.Reasons, p.ID)
		}
	}

	// Step 3: soft vetoes — only if no hard veto, raise risk to high
	soft := g.catalogs.SoftVetoes.Match(state.Message)
	if len(soft) > 0 {
		if summary.VetoKind != model.VetoHard {
			summary.VetoKind = model.VetoSoft
			summary.RiskLevel = model.MaxRisk(summary.RiskLevel, model.RiskHigh)
		}
		for _, p := range soft {
			summary.Reasons = append(summary.Reasons, p.ID)
		}
	}

	// Step 4: general risk assessment. The abuse detector's most recent
	// result is consulted, not recomputed; an active block forces the
	// block verdict regardless of this message's content.
	abuseResult, abuseKnown := g.abuseSignal(state)

	if state.Subject != "" {
		blocked, err := g.blocks.IsBlocked(state.Subject)
		if err != nil {
			summary.Reasons = append(summary.Reasons, model.ReasonEvaluationError)
			evalFailed = true
		} else if blocked {
			subjectBlocked = true
			summary.Reasons = append(summary.Reasons, model.ReasonSubjectBlocked)
		}
	}

	if summary.VetoKind == model.VetoNone {
		scored := scoreRisk(control, hard, soft, abuseResult, abuseKnown, summary.ControlTriggered)
		summary.RiskLevel = model.MaxRisk(summary.RiskLevel, scored)
	}
	if subjectBlocked {
		summary.RiskLevel = model.RiskCritical
	}
	if evalFailed {
		// Fail closed: unknown signals escalate rather than pass.
		summary.RiskLevel = model.MaxRisk(summary.RiskLevel, model.RiskHigh)
	}

	status := verdict(summary, subjectBlocked)
	return gate.Result{
		Status: status,
		Action: model.ActionFor(status),
		Output: summary,
		Reason: verdictReason(summary, subjectBlocked),
	}
}

// abuseSignal reads this run's abuse gate output, falling back to the
// detector's per-subject last result.
func (g *Gate) abuseSignal(state *gate.State) (abuse.CheckResult, bool) {
	if out, ok := state.Output(gates.AbuseGateID); ok {
		if r, ok := out.(abuse.CheckResult); ok {
			return r, true
		}
	}
	if g.detector != nil && state.Subject != "" {
		if r, ok := g.detector.LastResult(state.Subject); ok {
			return r, true
		}
	}
	return abuse.CheckResult{}, false
}

// verdict derives the gate status from the summary.
// block iff hard veto (or an already-blocked subject); escalate iff soft
// veto or risk >= high; pass otherwise.
func verdict(summary model.RiskSummary, subjectBlocked bool) model.GateStatus {
	switch {
	case summary.VetoKind == model.VetoHard || subjectBlocked:
		return model.StatusBlock
	case summary.VetoKind == model.VetoSoft || summary.RiskLevel.AtLeast(model.RiskHigh):
		return model.StatusEscalate
	default:
		return model.StatusPass
	}
}

func verdictReason(summary model.RiskSummary, subjectBlocked bool) string {
	switch {
	case subjectBlocked:
		return "subject has an active block"
	case summary.VetoKind == model.VetoHard:
		return "hard veto"
	case summary.VetoKind == model.VetoSoft:
		return "soft veto"
	case summary.RiskLevel.AtLeast(model.RiskHigh):
		return fmt.Sprintf("risk level %s", summary.RiskLevel)
	default:
		return ""
	}
}
