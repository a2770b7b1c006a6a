package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gating core. Callers match with errors.Is.
var (
	// ErrInvalidArgument covers malformed inputs: non-positive block TTL,
	// empty subject identifiers, negative windows.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreUnavailable signals an unreachable block/veto store backend.
	// It is surfaced as a degraded-mode signal, never silently swallowed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// EvaluationError records a gate check that could not complete.
// The pipeline treats it as fail-closed: the affected gate still produces
// a conservative verdict instead of throwing past its boundary.
type EvaluationError struct {
	GateID string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("gate %s: evaluation failed: %v", e.GateID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
