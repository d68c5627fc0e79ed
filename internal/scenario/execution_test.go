package scenario

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_Lifecycle(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)

	assert.False(t, exec.ID.IsNil())
	assert.Equal(t, "restart_io", exec.Scenario)
	assert.Equal(t, ExecPending, exec.State())

	require.NoError(t, exec.MarkRunning())
	assert.Equal(t, ExecRunning, exec.State())

	require.NoError(t, exec.MarkSucceeded())
	assert.Equal(t, ExecSucceeded, exec.State())
	assert.False(t, exec.FinishedAt.IsZero())
}

func TestExecution_MarkFailed(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)

	require.NoError(t, exec.MarkRunning())
	cause := errors.New("boom")
	require.NoError(t, exec.MarkFailed(cause))

	assert.Equal(t, ExecFailed, exec.State())
	assert.Equal(t, cause, exec.Err())
}

func TestExecution_TerminalStatesAreFinal(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)

	require.NoError(t, exec.MarkRunning())
	require.NoError(t, exec.MarkCancelled())
	assert.Error(t, exec.MarkRunning(), "cancelled runs cannot restart")
}

func TestExecution_PendingCannotSucceed(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)
	assert.Error(t, exec.MarkSucceeded())
}

func TestExecution_RecordAction(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)

	exec.RecordAction(ActionResult{ActionType: "send_command", Result: "ok"})
	exec.RecordAction(ActionResult{ActionType: "send_email", Err: errors.New("smtp down")})

	results := exec.ActionResults()
	require.Len(t, results, 2)
	assert.Equal(t, "send_command", results[0].ActionType)
	assert.Error(t, results[1].Err)
}

func TestExecution_CapturesLogs(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)

	exec.Logger().Info("step one", "key", "value")
	exec.Logger().Warn("step two")

	logs := exec.GetLogs()
	assert.GreaterOrEqual(t, len(logs), 2)
}

func TestExecution_Duration(t *testing.T) {
	exec, err := NewExecution("restart_io", slog.Default().Handler())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, exec.Duration(), time.Duration(0))

	require.NoError(t, exec.MarkRunning())
	require.NoError(t, exec.MarkSucceeded())
	finished := exec.Duration()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, finished, exec.Duration(), "duration is fixed once finished")
}

func TestExecution_DistinctIDs(t *testing.T) {
	a, err := NewExecution("x", slog.Default().Handler())
	require.NoError(t, err)
	b, err := NewExecution("x", slog.Default().Handler())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
