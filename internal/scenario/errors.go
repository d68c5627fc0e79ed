package scenario

import (
	"errors"
	"fmt"
)

var (
	// ErrScenarioValidation marks schema violations found at load time.
	ErrScenarioValidation = errors.New("scenario validation failed")

	// ErrUnknownScenario is returned for lookups of unloaded scenarios.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrUnknownActionType is returned when an action tag has no
	// registration.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrScenarioBlocked is returned when a scenario has reached its
	// max_executions cap and awaits an operator ACK.
	ErrScenarioBlocked = errors.New("scenario blocked until ACK")

	// ErrConcurrencyLimit is returned when an execution would exceed the
	// per-scenario or global in-flight cap.
	ErrConcurrencyLimit = errors.New("concurrency limit reached")
)

// ActionExecutionError wraps a failure inside an action's Execute. It
// aborts the enclosing scenario instance and increments the action
// kind's consecutive error counter.
type ActionExecutionError struct {
	ActionType string
	Message    string
	Cause      error
}

func (e *ActionExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("action %s failed: %s: %v", e.ActionType, e.Message, e.Cause)
	}
	return fmt.Sprintf("action %s failed: %s", e.ActionType, e.Message)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Cause
}

// NewActionExecutionError builds an ActionExecutionError from an action
// boundary failure.
func NewActionExecutionError(actionType, message string, cause error) *ActionExecutionError {
	return &ActionExecutionError{ActionType: actionType, Message: message, Cause: cause}
}
