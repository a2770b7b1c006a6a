package model

import "time"

// RiskLevel classifies the overall risk of a turn.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskRank maps risk levels to comparable integers for monotonic escalation.
var RiskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if RiskRank[b] > RiskRank[a] {
		return b
	}
	return a
}

// AtLeast returns true if level r is at or above min.
func (r RiskLevel) AtLeast(min RiskLevel) bool {
	return RiskRank[r] >= RiskRank[min]
}

// VetoKind distinguishes content that must never proceed (hard) from
// content that requires caution and escalation (soft).
type VetoKind string

const (
	VetoNone VetoKind = "none"
	VetoSoft VetoKind = "soft"
	VetoHard VetoKind = "hard"
)

// GateStatus is a gate's verdict for the current turn.
type GateStatus string

const (
	StatusPass     GateStatus = "pass"
	StatusBlock    GateStatus = "block"
	StatusEscalate GateStatus = "escalate"
)

// GateAction tells the orchestrator what to do after a gate returns.
type GateAction string

const (
	ActionContinue GateAction = "continue"
	ActionAbort    GateAction = "abort"
	ActionRedirect GateAction = "redirect"
)

// ActionFor maps a gate status to its pipeline action.
// block→abort, escalate→redirect, pass→continue.
func ActionFor(status GateStatus) GateAction {
	switch status {
	case StatusBlock:
		return ActionAbort
	case StatusEscalate:
		return ActionRedirect
	default:
		return ActionContinue
	}
}

// Reserved reason codes folded into RiskSummary.Reasons.
const (
	ReasonEvaluationError = "evaluation_error"
	ReasonMissingSubject  = "missing_subject"
	ReasonSubjectBlocked  = "subject_blocked"
)

// RiskSummary is the shield gate's single authoritative risk verdict,
// produced once per pipeline run and read-only afterward.
type RiskSummary struct {
	ControlTriggered bool      `json:"control_triggered"`
	VetoKind         VetoKind  `json:"veto_kind"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Reasons          []string  `json:"reasons"`
}

// BlockStatus is the active time-bounded denial record for a subject.
// At most one active record exists per subject; a new block overwrites.
type BlockStatus struct {
	Subject   string    `json:"subject"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the block is still in force at the given instant.
// A block is active strictly before its expiry: expires_at itself is expired.
func (b BlockStatus) Active(now time.Time) bool {
	return b.ExpiresAt.After(now)
}

// AbuseEventType categorizes abuse detector events.
type AbuseEventType string

const (
	EventPatternMatched   AbuseEventType = "pattern_matched"
	EventSubjectBlocked   AbuseEventType = "subject_blocked"
	EventThresholdCrossed AbuseEventType = "threshold_crossed"
)

// AbuseEvent is delivered synchronously to registered listeners when the
// detector finds something. Ephemeral — never persisted.
type AbuseEvent struct {
	Type      AbuseEventType `json:"type"`
	Subject   string         `json:"subject"`
	PatternID string         `json:"pattern_id,omitempty"`
	Severity  string         `json:"severity,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
