package listener

import (
	"context"

	"github.com/cellwarden/cellwarden/internal/event"
)

// Behavior supplies the domain logic a Listener runs inside its
// lifecycle. The runtime owns the state machine, queues, and transport;
// the behavior owns what happens at each lifecycle edge and how
// non-command events are interpreted.
type Behavior interface {
	// OnInitialize runs while the listener is INITIALIZING. Acquired
	// resources must be released by OnStop.
	OnInitialize(ctx context.Context) error

	// OnRun runs while STARTING or RESUMING, after the local check loop
	// has been started.
	OnRun(ctx context.Context) error

	// OnPause runs while PAUSING, after the local check loop has been
	// stopped.
	OnPause(ctx context.Context) error

	// OnStop runs while HARD_STOPPING or SOFT_STOPPING.
	OnStop(ctx context.Context) error

	// OnAck runs when an operator acknowledges a FAULT.
	OnAck(ctx context.Context) error

	// CheckLocalData is invoked periodically while the listener is in RUN.
	// Errors are logged and the loop continues.
	CheckLocalData(ctx context.Context) error

	// AnalyzeEvent interprets a non-command event received in RUN, or a
	// reply no waiter claimed. Returning true means handled; false moves
	// the event to the processing queue for deferred work.
	AnalyzeEvent(ctx context.Context, ev *event.Event) (bool, error)

	// StateFields contributes extra fields to the CMD_GET_STATE reply.
	StateFields() map[string]any
}

// NopBehavior implements Behavior with no-ops. Embed it and override the
// hooks that matter.
type NopBehavior struct{}

// Interface guard
var _ Behavior = (*NopBehavior)(nil)

func (NopBehavior) OnInitialize(context.Context) error   { return nil }
func (NopBehavior) OnRun(context.Context) error          { return nil }
func (NopBehavior) OnPause(context.Context) error        { return nil }
func (NopBehavior) OnStop(context.Context) error         { return nil }
func (NopBehavior) OnAck(context.Context) error          { return nil }
func (NopBehavior) CheckLocalData(context.Context) error { return nil }
func (NopBehavior) AnalyzeEvent(context.Context, *event.Event) (bool, error) {
	return true, nil
}
func (NopBehavior) StateFields() map[string]any { return nil }
