package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

func TestSendCommand_Group(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &SendCommand{}
	result, err := action.Execute(context.Background(), scenario.ActionConfig{
		"group":   "kiosks",
		"command": "CMD_RUN",
	}, sc)
	require.NoError(t, err)

	sent, ok := result.(map[string]int64)
	require.True(t, ok)
	assert.Len(t, sent, 2)
	assert.Contains(t, sent, "kiosk_1")
	assert.Contains(t, sent, "kiosk_2")

	for _, ev := range fake.sent() {
		assert.Equal(t, "CMD_RUN", ev.Type)
		assert.Nil(t, ev.Data)
	}
}

func TestSendCommand_RejectsNonLifecycle(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &SendCommand{}
	_, err := action.Execute(context.Background(), scenario.ActionConfig{
		"client":  "io_server",
		"command": "CMD_REBOOT_UNIVERSE",
	}, sc)
	assert.Error(t, err)
	assert.Empty(t, fake.sent())
}

func TestSendCommand_PartialFailure(t *testing.T) {
	fake, _ := newFixture(t)
	fake.failFor = "kiosk_2"
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &SendCommand{}
	result, err := action.Execute(context.Background(), scenario.ActionConfig{
		"group":   "kiosks",
		"command": "CMD_STOPPED",
	}, sc)
	assert.Error(t, err)

	// The reachable client still got its command.
	sent, ok := result.(map[string]int64)
	require.True(t, ok)
	assert.Contains(t, sent, "kiosk_1")
	assert.NotContains(t, sent, "kiosk_2")
}

func TestSendCustomCommand_Payload(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	action := &SendCustomCommand{}
	_, err := action.Execute(context.Background(), scenario.ActionConfig{
		"client":  "io_server",
		"command": "CMD_RELOAD_DEVICES",
		"data":    map[string]any{"device_id": "vd_printer"},
	}, sc)
	require.NoError(t, err)

	sent := fake.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "io_server", sent[0].Destination)
	assert.Equal(t, "CMD_RELOAD_DEVICES", sent[0].Type)
	assert.Equal(t, map[string]any{"device_id": "vd_printer"}, sent[0].Data)
}

func TestSendCustomCommand_ConfigErrors(t *testing.T) {
	fake, _ := newFixture(t)
	sc := fake.BuildContext("test_scenario", fake.ClientSnapshot(), nil)

	tests := []struct {
		name string
		cfg  scenario.ActionConfig
	}{
		{"MissingCommand", scenario.ActionConfig{"client": "io_server"}},
		{"BadData", scenario.ActionConfig{
			"client": "io_server", "command": "CMD_X", "data": "oops",
		}},
		{"NoSelector", scenario.ActionConfig{"command": "CMD_X"}},
	}

	action := &SendCustomCommand{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := action.Execute(context.Background(), tc.cfg, sc)
			assert.Error(t, err)
		})
	}
}
