package scenario

import (
	"context"
	"log/slog"
	"time"

	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/event"
)

// ClientState is the merged record for one supervised client: static
// fields from configuration plus the runtime fields last reported in a
// CMD_GET_STATE reply.
type ClientState struct {
	Name      string
	Address   string
	Port      int
	Groups    []string
	DependsOn []string

	FSMState     string
	FSMCode      int
	Error        bool
	ErrorMessage string
	HealthCheck  map[string]any

	// Subsystems carries arbitrary subsystem fields from the state reply,
	// e.g. io_server.failed_virtual_devices.
	Subsystems map[string]any
}

// AsMap renders the client state with wire-style keys for template
// navigation.
func (c ClientState) AsMap() map[string]any {
	m := map[string]any{
		"name":          c.Name,
		"address":       c.Address,
		"port":          c.Port,
		"groups":        c.Groups,
		"fsm_state":     c.FSMState,
		"fsm_code":      c.FSMCode,
		"error":         c.Error,
		"error_message": c.ErrorMessage,
	}
	if c.HealthCheck != nil {
		m["health_check"] = c.HealthCheck
	}
	for k, v := range c.Subsystems {
		m[k] = v
	}
	return m
}

// Orchestrator is the surface of the orchestrator that conditions and
// actions may touch through the scenario context.
type Orchestrator interface {
	// Name returns the orchestrator's logical component name.
	Name() string

	// Emit sends an event to a named client without waiting for the reply.
	Emit(ctx context.Context, destination, eventType string, data map[string]any,
		maxProcessing time.Duration) (*event.Event, error)

	// EmitAndWait sends an event and blocks until the correlated reply
	// arrives or maxProcessing elapses.
	EmitAndWait(ctx context.Context, destination, eventType string, data map[string]any,
		maxProcessing time.Duration) (*event.Event, error)

	// ClientSnapshot returns a copy of the merged client map.
	ClientSnapshot() map[string]ClientState

	// RequestManualRun flags a manual scenario for the next tick.
	RequestManualRun(name string) error
}

// Context is the per-run record passed to every condition and action
// invocation. It is immutable by convention: callers must not mutate the
// maps after construction.
type Context struct {
	ScenarioName string
	Orchestrator Orchestrator
	Engine       *Engine

	// Clients is the merged client map snapshotted at trigger evaluation.
	Clients map[string]ClientState

	// Components are the named external resource handles.
	Components map[string]components.Component

	// TriggerData carries bindings produced by the conditions that fired,
	// plus the triggering event if any.
	TriggerData map[string]any

	// ActionErrors are the orchestrator-wide consecutive failure counters
	// consulted by outbound delivery actions.
	ActionErrors *ErrorCounters

	Logger *slog.Logger
}

// TemplateData builds the root namespace for template resolution inside
// action configs.
func (c *Context) TemplateData() map[string]any {
	clients := make(map[string]any, len(c.Clients))
	for name, state := range c.Clients {
		clients[name] = state.AsMap()
	}
	return map[string]any{
		"scenario": c.ScenarioName,
		"trigger":  c.TriggerData,
		"clients":  clients,
	}
}
