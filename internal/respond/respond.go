// Package respond maps a pipeline verdict onto the outbound reply surface.
// The pipeline decides; this package only renders the decision.
package respond

import (
	"fmt"

	"github.com/mvolkov/gateward/internal/model"
)

// DefaultRefusal is sent verbatim for blocked turns. It never varies with
// the message content, so a blocked turn leaks nothing about what matched.
const DefaultRefusal = "I can't help with that request."

// DefaultRedirectPreamble is prepended to escalated replies.
const DefaultRedirectPreamble = "I want to be careful here. "

// BlockedError is raised when the verdict aborts the turn.
type BlockedError struct {
	RunID  string
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("turn blocked (run %s): %s", e.RunID, e.Reason)
	}
	return fmt.Sprintf("turn blocked (run %s)", e.RunID)
}

// Responder renders verdicts. The zero value uses the default templates.
type Responder struct {
	Refusal          string
	RedirectPreamble string
}

func (r *Responder) refusal() string {
	if r.Refusal != "" {
		return r.Refusal
	}
	return DefaultRefusal
}

func (r *Responder) preamble() string {
	if r.RedirectPreamble != "" {
		return r.RedirectPreamble
	}
	return DefaultRedirectPreamble
}

// Apply maps a verdict onto the candidate reply.
// Returns the text to send, or a BlockedError when the turn must not get a
// substantive answer.
func (r *Responder) Apply(runID string, verdict model.GateStatus, reason, reply string) (string, error) {
	switch verdict {
	case model.StatusBlock:
		return r.refusal(), &BlockedError{RunID: runID, Reason: reason}

	case model.StatusEscalate:
		return r.preamble() + reply, nil

	case model.StatusPass:
		return reply, nil

	default:
		// Unknown verdicts never pass through unmodified.
		return r.refusal(), &BlockedError{RunID: runID, Reason: fmt.Sprintf("unknown verdict %q", verdict)}
	}
}
