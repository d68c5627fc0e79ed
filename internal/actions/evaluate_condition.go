package actions

import (
	"context"
	"fmt"
	"maps"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// EvaluateCondition re-evaluates a condition list mid-run and branches.
// Config: {conditions: [...], true_actions?: [...], false_actions?:
// [...]}. Bindings from conditions that fired are merged into the
// trigger data visible to the chosen branch.
type EvaluateCondition struct{}

// Type returns the registration tag.
func (e *EvaluateCondition) Type() string { return "evaluate_condition" }

// Execute evaluates the conditions against a fresh client snapshot and
// runs the matching branch.
func (e *EvaluateCondition) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	nodes, err := cfgConditionList(cfg, "conditions")
	if err != nil {
		return nil, fmt.Errorf("evaluate_condition: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("evaluate_condition: missing conditions")
	}

	// Conditions see current client state, not the trigger-time snapshot.
	child := *sc
	child.Clients = sc.Orchestrator.ClientSnapshot()
	child.TriggerData = maps.Clone(sc.TriggerData)
	if child.TriggerData == nil {
		child.TriggerData = map[string]any{}
	}

	verdict, bindings := sc.Engine.Evaluator().EvaluateAll(ctx, nodes, &child)
	maps.Copy(child.TriggerData, bindings)

	branchKey := "false_actions"
	if verdict {
		branchKey = "true_actions"
	}
	branch, err := cfgActionList(cfg, branchKey)
	if err != nil {
		return nil, fmt.Errorf("evaluate_condition: %w", err)
	}

	sc.Logger.Debug("Condition branch taken",
		"verdict", verdict, "actions", len(branch))
	if len(branch) > 0 {
		if err := sc.Engine.RunActions(ctx, branch, &child); err != nil {
			return nil, fmt.Errorf("evaluate_condition: %s: %w", branchKey, err)
		}
	}
	return map[string]any{"verdict": verdict}, nil
}
