// Package finitestate implements the lifecycle state machine shared by
// every event listener. State names and their integer wire codes are part
// of the inter-component contract.
package finitestate

import (
	"context"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Lifecycle states.
const (
	StateUnknown      = "UNKNOWN"
	StateStopped      = "STOPPED"
	StateInitializing = "INITIALIZING"
	StateInitialized  = "INITIALIZED"
	StateStarting     = "STARTING"
	StateRun          = "RUN"
	StateSoftStopping = "SOFT_STOPPING"
	StatePausing      = "PAUSING"
	StateResuming     = "RESUMING"
	StatePause        = "PAUSE"
	StateHardStopping = "HARD_STOPPING"
	StateFault        = "FAULT"
	StateOnError      = "ON_ERROR"
)

// StateCode maps state names to the integer codes used on the wire.
var StateCode = map[string]int{
	StateUnknown:      -1,
	StateStopped:      0,
	StateInitializing: 1,
	StateInitialized:  2,
	StateStarting:     3,
	StateRun:          4,
	StateSoftStopping: 5,
	StatePausing:      6,
	StateResuming:     7,
	StatePause:        8,
	StateHardStopping: 9,
	StateFault:        10,
	StateOnError:      11,
}

// StateFromCode is the inverse of StateCode.
var StateFromCode = func() map[int]string {
	m := make(map[int]string, len(StateCode))
	for name, code := range StateCode {
		m[code] = name
	}
	return m
}()

// Code returns the wire code for a state name, or -1 for unknown names.
func Code(state string) int {
	if code, ok := StateCode[state]; ok {
		return code
	}
	return StateCode[StateUnknown]
}

// LifecycleTransitions is the transition table for the listener FSM. Any
// state may degrade through ON_ERROR into FAULT; FAULT leaves only via an
// operator CMD_ACK back to STOPPED.
var LifecycleTransitions = map[string][]string{
	StateUnknown:      {StateStopped, StateOnError},
	StateStopped:      {StateInitializing, StateOnError},
	StateInitializing: {StateInitialized, StateOnError},
	StateInitialized:  {StateStarting, StateOnError},
	StateStarting:     {StateRun, StateOnError},
	StateRun:          {StateSoftStopping, StatePausing, StateOnError},
	StateSoftStopping: {StateInitialized, StateOnError},
	StatePausing:      {StatePause, StateHardStopping, StateOnError},
	StatePause:        {StateResuming, StateHardStopping, StateOnError},
	StateResuming:     {StateRun, StateOnError},
	StateHardStopping: {StateStopped, StateOnError},
	StateOnError:      {StateFault},
	StateFault:        {StateStopped},
}

// Machine is the interface the listener runtime programs against. It
// matches the go-fsm machine surface so tests can substitute their own.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// TransitionBool attempts the transition and reports success.
	TransitionBool(state string) bool

	// TransitionIfCurrentState transitions only when the current state matches.
	TransitionIfCurrentState(currentState, newState string) error

	// SetState forces the state machine to the specified state.
	SetState(state string) error

	// GetState returns the current state of the state machine.
	GetState() string

	// GetStateChan returns a channel that emits the state whenever it
	// changes. The channel is closed when the context is canceled.
	GetStateChan(ctx context.Context) <-chan string
}

// stateChanBuffer sizes the per-observer state broadcast channel. The
// FSM drops updates a full subscriber cannot take, so the buffer must
// absorb the longest command-driven transition burst.
const stateChanBuffer = 16

// ListenerFSM embeds fsm.Machine and overrides GetStateChan with a
// buffered subscription, so observers see every transition during
// shutdown.
type ListenerFSM struct {
	*fsm.Machine
}

// GetStateChan returns a buffered channel that emits the current state
// immediately and every transition after it. Closed when ctx is done.
func (m *ListenerFSM) GetStateChan(ctx context.Context) <-chan string {
	return m.GetStateChanBuffer(ctx, stateChanBuffer)
}

// New creates a lifecycle state machine starting in UNKNOWN.
func New(handler slog.Handler) (Machine, error) {
	machine, err := fsm.New(handler, StateUnknown, LifecycleTransitions)
	if err != nil {
		return nil, err
	}
	return &ListenerFSM{Machine: machine}, nil
}
