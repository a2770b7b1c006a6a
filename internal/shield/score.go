package shield

import (
	"github.com/mvolkov/gateward/internal/abuse"
	"github.com/mvolkov/gateward/internal/catalog"
	"github.com/mvolkov/gateward/internal/model"
)

// Severity weights for the scoring pass. Deterministic and cumulative —
// this is explainable scoring over matched rules, not anomaly detection.
var sevWeights = map[catalog.Severity]int{
	catalog.SevLow:      1,
	catalog.SevMedium:   3,
	catalog.SevHigh:     6,
	catalog.SevCritical: 10,
}

const (
	controlWeight    = 10
	abuseWarnWeight  = 2
	abuseBlockWeight = 10

	mediumMin = 3
	highMin   = 7
)

// scoreRisk combines catalog-matched severities, the abuse detector's
// consulted result, and the control flag into a risk level on the
// low < medium < high scale. Veto precedence is handled by the caller:
// when a veto already fired this function is not consulted for the floor,
// so scoring can never exceed what a veto set.
func scoreRisk(control, hard, soft []catalog.Pattern, abuseResult abuse.CheckResult, abuseKnown, controlTriggered bool) model.RiskLevel {
	score := 0

	for _, set := range [][]catalog.Pattern{control, hard, soft} {
		for _, p := range set {
			score += sevWeights[p.Severity]
		}
	}

	if controlTriggered {
		score += controlWeight
	}

	if abuseKnown {
		for _, p := range abuseResult.Matched {
			score += sevWeights[p.Severity]
		}
		switch abuseResult.Action {
		case abuse.ActionWarn:
			score += abuseWarnWeight
		case abuse.ActionBlock:
			score += abuseBlockWeight
		}
	}

	switch {
	case score >= highMin:
		return model.RiskHigh
	case score >= mediumMin:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
