package actions

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
	"github.com/cellwarden/cellwarden/internal/registry"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

type emittedEvent struct {
	Destination string
	Type        string
	Data        map[string]any
}

// fakeOrchestrator implements scenario.Orchestrator and
// scenario.ContextBuilder over an in-memory client map.
type fakeOrchestrator struct {
	mu      sync.Mutex
	clients map[string]scenario.ClientState
	emitted []emittedEvent
	failFor string
	nextID  int64

	engine *scenario.Engine
}

func (f *fakeOrchestrator) Name() string { return "orchestrator" }

func (f *fakeOrchestrator) Emit(
	_ context.Context,
	destination, eventType string,
	data map[string]any,
	_ time.Duration,
) (*event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if destination == f.failFor {
		return nil, fmt.Errorf("client %q unreachable", destination)
	}
	f.nextID++
	ev := &event.Event{
		ID:          f.nextID,
		Source:      "orchestrator",
		Destination: destination,
		Type:        eventType,
		Data:        data,
	}
	f.emitted = append(f.emitted, emittedEvent{destination, eventType, data})
	return ev, nil
}

func (f *fakeOrchestrator) EmitAndWait(
	ctx context.Context,
	destination, eventType string,
	data map[string]any,
	maxProcessing time.Duration,
) (*event.Event, error) {
	return f.Emit(ctx, destination, eventType, data, maxProcessing)
}

func (f *fakeOrchestrator) ClientSnapshot() map[string]scenario.ClientState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.clients)
}

func (f *fakeOrchestrator) RequestManualRun(name string) error {
	return f.engine.RequestManualRun(name)
}

func (f *fakeOrchestrator) BuildContext(
	scenarioName string,
	clients map[string]scenario.ClientState,
	triggerData map[string]any,
) *scenario.Context {
	if triggerData == nil {
		triggerData = map[string]any{}
	}
	return &scenario.Context{
		ScenarioName: scenarioName,
		Orchestrator: f,
		Engine:       f.engine,
		Clients:      clients,
		TriggerData:  triggerData,
		ActionErrors: scenario.NewErrorCounters(),
		Logger:       slog.Default(),
	}
}

func (f *fakeOrchestrator) setState(name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	client := f.clients[name]
	client.FSMState = state
	f.clients[name] = client
}

func (f *fakeOrchestrator) sent() []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]emittedEvent, len(f.emitted))
	copy(out, f.emitted)
	return out
}

// stubCondition answers with a fixed verdict under a chosen tag.
type stubCondition struct {
	tag      string
	verdict  bool
	bindings map[string]any
}

func (s *stubCondition) Type() string { return s.tag }

func (s *stubCondition) Evaluate(
	_ context.Context, _ map[string]any, _ *scenario.Context,
) (bool, map[string]any, error) {
	return s.verdict, s.bindings, nil
}

// recorderAction records every invocation so branch tests can assert
// which action lists actually ran.
type recorderAction struct {
	mu       sync.Mutex
	configs  []scenario.ActionConfig
	triggers []map[string]any
	err      error
}

func (r *recorderAction) Type() string { return "record" }

func (r *recorderAction) Execute(
	_ context.Context, cfg scenario.ActionConfig, sc *scenario.Context,
) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
	r.triggers = append(r.triggers, maps.Clone(sc.TriggerData))
	return "recorded", r.err
}

func (r *recorderAction) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

// newFixture wires a fake orchestrator and a real engine with the
// built-in actions, a recorder action, and fixed-verdict conditions.
func newFixture(t *testing.T) (*fakeOrchestrator, *recorderAction) {
	t.Helper()

	fake := &fakeOrchestrator{
		clients: map[string]scenario.ClientState{
			"io_server": {
				Name: "io_server", FSMState: finitestate.StateRun,
				Groups: []string{"io"},
			},
			"kiosk_1": {
				Name: "kiosk_1", FSMState: finitestate.StateStopped,
				Groups: []string{"kiosks"},
			},
			"kiosk_2": {
				Name: "kiosk_2", FSMState: finitestate.StateStopped,
				Groups: []string{"kiosks"},
			},
		},
	}

	conditions := registry.New[scenario.Condition]("conditions")
	for _, cond := range []*stubCondition{
		{tag: "truth", verdict: true, bindings: map[string]any{"matched": "yes"}},
		{tag: "falsehood", verdict: false},
	} {
		conditions.Register(cond.tag, cond)
	}

	rec := &recorderAction{}
	actionReg := registry.New[scenario.Action]("actions")
	RegisterBuiltins(actionReg)
	actionReg.Register(rec.Type(), rec)

	fake.engine = scenario.NewEngine(conditions, actionReg, fake,
		scenario.WithMaxConcurrentScenarios(4))
	return fake, rec
}

func TestRegisterBuiltins(t *testing.T) {
	reg := registry.New[scenario.Action]("actions")
	RegisterBuiltins(reg)

	assert.Equal(t, []string{
		"database_update",
		"evaluate_condition",
		"execute_scenario",
		"log_event",
		"lynx_refund",
		"lynx_refund_approve",
		"restart_orders",
		"send_command",
		"send_custom_command",
		"send_email",
		"send_sms",
		"send_sms_to_customer",
		"wait_for_state",
	}, reg.Tags())
}

func TestSkipIfExhausted(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)
	sc.ActionErrors.SetLimit("send_email", 2)

	_, skip := skipIfExhausted("send_email", sc)
	assert.False(t, skip, "fresh counter must not skip")

	sc.ActionErrors.Failure("send_email")
	sc.ActionErrors.Failure("send_email")

	result, skip := skipIfExhausted("send_email", sc)
	assert.True(t, skip)
	assert.Equal(t, "max_error_attempts exceeded", result.Reason)

	sc.ActionErrors.Success("send_email")
	_, skip = skipIfExhausted("send_email", sc)
	assert.False(t, skip, "a delivery success reopens the action")
}

func TestCfgActionList(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		count   int
		wantErr bool
	}{
		{"Absent", map[string]any{}, 0, false},
		{"Decoded", map[string]any{
			"k": []any{map[string]any{"type": "log_event"}},
		}, 1, false},
		{"Typed", map[string]any{
			"k": []scenario.ActionConfig{{"type": "log_event"}},
		}, 1, false},
		{"NotAList", map[string]any{"k": "log_event"}, 0, true},
		{"NonMapEntry", map[string]any{"k": []any{"log_event"}}, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cfgActionList(tc.cfg, "k")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.count)
		})
	}
}

func TestCfgConditionList(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]any
		count   int
		wantErr bool
	}{
		{"Absent", map[string]any{}, 0, false},
		{"SingleNode", map[string]any{
			"k": map[string]any{"truth": map[string]any{}},
		}, 1, false},
		{"List", map[string]any{
			"k": []any{
				map[string]any{"truth": map[string]any{}},
				map[string]any{"falsehood": map[string]any{}},
			},
		}, 2, false},
		{"NonMapEntry", map[string]any{"k": []any{42}}, 0, true},
		{"WrongType", map[string]any{"k": 42}, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cfgConditionList(tc.cfg, "k")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.count)
		})
	}
}
