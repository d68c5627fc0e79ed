package actions

import (
	"context"
	"fmt"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// ExecuteScenario runs another scenario by name, synchronously, within
// the current run. Config: {scenario_name (scenario accepted as
// shorthand)}. Blocking and concurrency caps of the nested scenario
// apply; its cooldown does not.
type ExecuteScenario struct{}

// Type returns the registration tag.
func (e *ExecuteScenario) Type() string { return "execute_scenario" }

// Execute invokes the named scenario and waits for it to finish.
func (e *ExecuteScenario) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	name := cfgString(cfg, "scenario_name")
	if name == "" {
		name = cfgString(cfg, "scenario")
	}
	if name == "" {
		return nil, fmt.Errorf("execute_scenario: missing scenario_name")
	}
	if name == sc.ScenarioName {
		return nil, fmt.Errorf("execute_scenario: %q cannot invoke itself", name)
	}

	sc.Logger.Info("Executing nested scenario", "scenario", name)
	if err := sc.Engine.ExecuteByName(ctx, name); err != nil {
		return nil, fmt.Errorf("execute_scenario: %q: %w", name, err)
	}
	return name, nil
}
