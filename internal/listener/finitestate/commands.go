package finitestate

import "github.com/cellwarden/cellwarden/internal/event"

// CommandPath describes how a lifecycle command drives the FSM: the
// states it may be issued from, the transitional state entered while the
// hook runs, and the steady state reached on success.
type CommandPath struct {
	// Transitional maps each allowed origin state to the transitional
	// state entered before the hook runs.
	Transitional map[string]string

	// Target is the steady state reached when the hook succeeds.
	Target string
}

// CommandPaths is the command table from the lifecycle contract. Commands
// absent from this map (CMD_GET_STATE, CMD_HEALTH_CHECK) never change
// state.
var CommandPaths = map[string]CommandPath{
	event.CmdInitialized: {
		Transitional: map[string]string{
			StateStopped: StateInitializing,
			StateRun:     StateSoftStopping,
		},
		Target: StateInitialized,
	},
	event.CmdRun: {
		Transitional: map[string]string{
			StateInitialized: StateStarting,
			StatePause:       StateResuming,
		},
		Target: StateRun,
	},
	event.CmdPause: {
		Transitional: map[string]string{
			StateRun: StatePausing,
		},
		Target: StatePause,
	},
	event.CmdStopped: {
		Transitional: map[string]string{
			StatePause: StateHardStopping,
			// RUN stops through PAUSING first; the handler chains the
			// second hop to HARD_STOPPING.
			StateRun: StatePausing,
		},
		Target: StateStopped,
	},
	event.CmdAck: {
		Transitional: map[string]string{
			StateFault: StateFault,
		},
		Target: StateStopped,
	},
}

// AllowedFrom reports whether the command may be issued from the state.
func AllowedFrom(command, state string) bool {
	path, ok := CommandPaths[command]
	if !ok {
		return false
	}
	_, ok = path.Transitional[state]
	return ok
}
