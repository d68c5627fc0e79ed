package scenario

import "context"

// Condition is the contract for condition kinds registered by tag. An
// evaluation error is treated as "condition is false" and logged by the
// evaluator.
type Condition interface {
	// Type returns the tag this condition registers under.
	Type() string

	// Evaluate checks the condition's static config against the scenario
	// context and returns the verdict plus any context bindings to merge
	// into the trigger data.
	Evaluate(ctx context.Context, cfg map[string]any, sc *Context) (bool, map[string]any, error)
}

// Action is the contract for action kinds registered by tag. A returned
// error is wrapped into an ActionExecutionError at the engine boundary
// and aborts the enclosing scenario instance.
type Action interface {
	// Type returns the tag this action registers under.
	Type() string

	// Execute performs the action; any returned value is recorded in the
	// scenario's action result log.
	Execute(ctx context.Context, cfg ActionConfig, sc *Context) (any, error)
}
