package listener

import "errors"

var (
	// ErrQueueFull is returned by Queue.Push when the bound is reached.
	ErrQueueFull = errors.New("queue full")

	// ErrCommandNotAllowed is returned when a lifecycle command is issued
	// from a state it is not legal in.
	ErrCommandNotAllowed = errors.New("command not allowed in current state")

	// ErrReplyTimeout is returned when a correlated reply does not arrive
	// within the event's maximum processing time.
	ErrReplyTimeout = errors.New("timed out waiting for reply")

	// ErrNotRunning is returned when an operation requires a started
	// listener.
	ErrNotRunning = errors.New("listener not running")
)
