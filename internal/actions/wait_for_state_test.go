package actions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

func TestWaitForState_AlreadyThere(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &WaitForState{}
	result, err := action.Execute(context.Background(), scenario.ActionConfig{
		"client":       "io_server",
		"target_state": finitestate.StateRun,
	}, sc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"reached": []string{"io_server"}}, result)
}

func TestWaitForState_TargetKeyAliases(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	tests := []struct {
		name string
		cfg  scenario.ActionConfig
	}{
		{"TargetState", scenario.ActionConfig{
			"client": "io_server", "target_state": finitestate.StateRun,
		}},
		{"TargetStates", scenario.ActionConfig{
			"client":        "io_server",
			"target_states": []any{finitestate.StatePause, finitestate.StateRun},
		}},
		{"StateShorthand", scenario.ActionConfig{
			"client": "io_server", "state": finitestate.StateRun,
		}},
		{"StatesShorthand", scenario.ActionConfig{
			"client": "io_server", "states": []any{finitestate.StateRun},
		}},
	}

	action := &WaitForState{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := action.Execute(context.Background(), tc.cfg, sc)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"reached": []string{"io_server"}}, result)
		})
	}
}

func TestWaitForState_PollsUntilConverged(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	timer := time.AfterFunc(100*time.Millisecond, func() {
		fake.setState("kiosk_1", finitestate.StateRun)
		fake.setState("kiosk_2", finitestate.StateRun)
	})
	defer timer.Stop()

	action := &WaitForState{}
	result, err := action.Execute(context.Background(), scenario.ActionConfig{
		"group":        "kiosks",
		"target_state": finitestate.StateRun,
		"timeout":      "5s",
	}, sc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"reached": []string{"kiosk_1", "kiosk_2"}}, result)
}

func TestWaitForState_TimeoutFailsRun(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &WaitForState{}
	_, err := action.Execute(context.Background(), scenario.ActionConfig{
		"client":       "kiosk_1",
		"target_state": finitestate.StateRun,
		"timeout":      "50ms",
	}, sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never reached")
}

func TestWaitForState_TimeoutRunsFallback(t *testing.T) {
	fake, rec := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &WaitForState{}
	result, err := action.Execute(context.Background(), scenario.ActionConfig{
		"client":       "kiosk_1",
		"target_state": finitestate.StateRun,
		"timeout":      "50ms",
		"on_failure": []any{
			map[string]any{"type": "record"},
		},
	}, sc)
	require.NoError(t, err, "a handled timeout is not a run failure")
	assert.Equal(t, 1, rec.calls())
	assert.Equal(t, map[string]any{"timed_out": []string{"kiosk_1"}}, result)
}

func TestWaitForState_CancelledContext(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	action := &WaitForState{}
	_, err := action.Execute(ctx, scenario.ActionConfig{
		"client":       "kiosk_1",
		"target_state": finitestate.StateRun,
	}, sc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForState_ConfigErrors(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	tests := []struct {
		name string
		cfg  scenario.ActionConfig
	}{
		{"MissingTargetState", scenario.ActionConfig{"client": "io_server"}},
		{"BadSelector", scenario.ActionConfig{
			"client": "ghost", "target_state": "RUN",
		}},
		{"BadTimeout", scenario.ActionConfig{
			"client": "io_server", "target_state": "RUN", "timeout": "soon",
		}},
	}

	action := &WaitForState{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := action.Execute(context.Background(), tc.cfg, sc)
			assert.Error(t, err)
		})
	}
}
