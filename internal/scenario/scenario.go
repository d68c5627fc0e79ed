// Package scenario implements the declarative scenario engine: the
// scenario model and loader, trigger evaluation, template resolution, and
// the execution tracker that enforces cooldown, priority, and concurrency
// constraints.
package scenario

import (
	"fmt"

	"github.com/cellwarden/cellwarden/internal/config"
)

const (
	// TriggerAutomatic scenarios evaluate their condition tree each tick.
	TriggerAutomatic = "automatic"

	// TriggerManual scenarios run only when flagged by an operator.
	TriggerManual = "manual"

	// DefaultPriority sorts unprioritized scenarios after explicit ones.
	DefaultPriority = 100

	// DefaultMaxConcurrentExecutions is the per-scenario in-flight cap.
	DefaultMaxConcurrentExecutions = 1
)

// Trigger decides when a scenario runs.
type Trigger struct {
	Type        string         `json:"type"`
	Conditions  map[string]any `json:"conditions,omitempty"`
	Description string         `json:"description,omitempty"`
}

// ActionConfig is one entry of a scenario's action list: the "type" key
// selects the action kind, the remaining keys are kind-specific.
type ActionConfig map[string]any

// Type returns the action kind tag, or "" when absent.
func (a ActionConfig) Type() string {
	t, _ := a["type"].(string)
	return t
}

// Scenario is the declarative record loaded from a scenario file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Priority orders trigger evaluation; lower runs first.
	Priority *int `json:"priority,omitempty"`

	// Cooldown is the minimum interval between successive executions.
	Cooldown config.Duration `json:"cooldown,omitempty"`

	// MaxConcurrentExecutions caps simultaneous runs of this scenario.
	MaxConcurrentExecutions *int `json:"max_concurrent_executions,omitempty"`

	// MaxExecutions, when positive, blocks the scenario after that many
	// successful runs until an operator CMD_ACK resets the counters.
	MaxExecutions int `json:"max_executions,omitempty"`

	Trigger Trigger        `json:"trigger"`
	Actions []ActionConfig `json:"actions"`
}

// EffectivePriority returns the priority with the default applied.
func (s *Scenario) EffectivePriority() int {
	if s.Priority == nil {
		return DefaultPriority
	}
	return *s.Priority
}

// EffectiveMaxConcurrent returns the per-scenario concurrency cap with
// the default applied.
func (s *Scenario) EffectiveMaxConcurrent() int {
	if s.MaxConcurrentExecutions == nil || *s.MaxConcurrentExecutions <= 0 {
		return DefaultMaxConcurrentExecutions
	}
	return *s.MaxConcurrentExecutions
}

// Validate checks the scenario against the schema. Violations are
// reported as ErrScenarioValidation so loaders can skip the file.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: scenario has no name", ErrScenarioValidation)
	}
	switch s.Trigger.Type {
	case TriggerAutomatic, TriggerManual:
	case "":
		return fmt.Errorf("%w: scenario %q has no trigger type", ErrScenarioValidation, s.Name)
	default:
		return fmt.Errorf("%w: scenario %q has unknown trigger type %q",
			ErrScenarioValidation, s.Name, s.Trigger.Type)
	}
	if s.MaxExecutions < 0 {
		return fmt.Errorf("%w: scenario %q has negative max_executions",
			ErrScenarioValidation, s.Name)
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("%w: scenario %q has negative cooldown",
			ErrScenarioValidation, s.Name)
	}
	for i, action := range s.Actions {
		if action.Type() == "" {
			return fmt.Errorf("%w: scenario %q action %d has no type",
				ErrScenarioValidation, s.Name, i)
		}
	}
	return nil
}
