package event

// Lifecycle commands understood by every event listener. The wire strings
// are part of the contract and must not change.
const (
	CmdInitialized = "CMD_INITIALIZED"
	CmdRun         = "CMD_RUN"
	CmdPause       = "CMD_PAUSE"
	CmdStopped     = "CMD_STOPPED"
	CmdAck         = "CMD_ACK"
	CmdGetState    = "CMD_GET_STATE"
	CmdHealthCheck = "CMD_HEALTH_CHECK"
)

// lifecycleCommands is the set of event types routed to the FSM handlers
// instead of the subclass analyzer.
var lifecycleCommands = map[string]bool{
	CmdInitialized: true,
	CmdRun:         true,
	CmdPause:       true,
	CmdStopped:     true,
	CmdAck:         true,
	CmdGetState:    true,
	CmdHealthCheck: true,
}

// IsLifecycleCommand reports whether the event type is one of the fixed
// lifecycle commands.
func IsLifecycleCommand(eventType string) bool {
	return lifecycleCommands[eventType]
}
