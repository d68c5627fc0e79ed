package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
	"github.com/cellwarden/cellwarden/internal/scenario"
	"github.com/cellwarden/cellwarden/internal/testutil"
)

const testConfigTOML = `
name = "orchestrator"
address = "127.0.0.1"
port = 9900

[clients.io_server]
address = "127.0.0.1"
port = 9901
groups = ["io"]

[clients.pos_bridge]
address = "127.0.0.1"
port = 9902
`

// newTestOrchestrator assembles an orchestrator without running it.
func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	cfg, err := config.NewConfigFromBytes([]byte(testConfigTOML), "toml")
	require.NoError(t, err)
	cfg.Port = testutil.GetRandomPort(t)
	require.NoError(t, cfg.Validate())

	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestOrchestrator_AnalyzeEventMergesStateReply(t *testing.T) {
	o := newTestOrchestrator(t)

	reply := &event.Event{
		ID:     7,
		Source: "io_server",
		Type:   event.CmdGetState,
		Result: &event.Result{
			Success: true,
			Data: map[string]any{
				"fsm_state": finitestate.StateRun,
				"error":     false,
			},
		},
	}

	handled, err := o.AnalyzeEvent(context.Background(), reply)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, finitestate.StateRun, o.ClientSnapshot()["io_server"].FSMState)
}

func TestOrchestrator_AnalyzeEventIgnoresUnsolicited(t *testing.T) {
	o := newTestOrchestrator(t)

	handled, err := o.AnalyzeEvent(context.Background(), &event.Event{
		ID: 8, Source: "io_server", Type: "CMD_SURPRISE",
	})
	require.NoError(t, err)
	assert.True(t, handled)
}

func TestOrchestrator_EmitUnknownClient(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.Emit(context.Background(), "ghost", event.CmdGetState, nil, time.Second)
	assert.Error(t, err)
}

func TestOrchestrator_EmitStampsCoordinates(t *testing.T) {
	o := newTestOrchestrator(t)

	ev, err := o.Emit(context.Background(), "io_server", event.CmdGetState, nil, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "io_server", ev.Destination)
	assert.Equal(t, "127.0.0.1", ev.DestinationAddress)
	assert.Equal(t, 9901, ev.DestinationPort)
	assert.Equal(t, "orchestrator", ev.Source)
}

func TestOrchestrator_BuildContext(t *testing.T) {
	o := newTestOrchestrator(t)

	sc := o.BuildContext("alert", o.ClientSnapshot(), nil)
	assert.Equal(t, "alert", sc.ScenarioName)
	assert.NotNil(t, sc.TriggerData)
	assert.Same(t, o.Engine(), sc.Engine)
	assert.Len(t, sc.Clients, 2)
	require.NotNil(t, sc.Logger)
}

func TestOrchestrator_StateFields(t *testing.T) {
	o := newTestOrchestrator(t)

	fields := o.StateFields()
	assert.Contains(t, fields, "scenarios")
	assert.Equal(t, 0, fields["executions_in_flight"])
}

func TestOrchestrator_OnAckResetsErrorCounters(t *testing.T) {
	o := newTestOrchestrator(t)

	counters := o.Engine().ActionErrors()
	counters.SetLimit("send_email", 1)
	counters.Failure("send_email")
	require.True(t, counters.Exhausted("send_email"))

	require.NoError(t, o.OnAck(context.Background()))
	assert.False(t, counters.Exhausted("send_email"))
}

func TestOrchestrator_RequestManualRun(t *testing.T) {
	o := newTestOrchestrator(t)
	o.Engine().Load([]*scenario.Scenario{{
		Name:    "manual_restart",
		Trigger: scenario.Trigger{Type: scenario.TriggerManual},
		Actions: []scenario.ActionConfig{{"type": "log_event", "message": "restart"}},
	}})

	require.NoError(t, o.RequestManualRun("manual_restart"))
	assert.ErrorIs(t, o.RequestManualRun("ghost"), scenario.ErrUnknownScenario)
}
