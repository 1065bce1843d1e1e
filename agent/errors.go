package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData means the statistical path cannot run; callers
	// recover locally by taking the deterministic fallback. Never surfaced
	// as a cycle failure.
	ErrInsufficientData = errors.New("insufficient data for model path")

	// ErrNoSuppliersFound means the candidate set was empty. The decision
	// engine turns it into an explicit "none available" decision payload.
	ErrNoSuppliersFound = errors.New("no suppliers found for item")

	// ErrModelTraining means scorer training failed; the previous artifact
	// (or the rule-based path) keeps serving.
	ErrModelTraining = errors.New("model training failed")

	// ErrCycleRunning is returned to a manual trigger when a cycle is
	// already in flight and queuing is disabled.
	ErrCycleRunning = errors.New("cycle already running")
)

// PersistenceError wraps a failed decision-batch write. It is recorded
// per item in the cycle summary and never aborts the rest of the cycle.
type PersistenceError struct {
	ItemId string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting decisions for item %s: %v", e.ItemId, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
