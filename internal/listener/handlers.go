package listener

import (
	"context"
	"fmt"

	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
)

// classify routes one event popped from incoming: replies go to their
// waiters, lifecycle commands drive the FSM, everything else is
// dispatched by current state.
func (l *Listener) classify(ctx context.Context, ev *event.Event) {
	if ev.IsReply() {
		if l.deliverReply(ev) {
			return
		}
		// Unclaimed replies still reach the behavior: the orchestrator
		// consumes CMD_GET_STATE replies this way.
		if _, err := l.behavior.AnalyzeEvent(ctx, ev); err != nil {
			l.logger.Warn("Reply analysis failed", "event", ev.String(), "error", err)
		}
		return
	}

	if event.IsLifecycleCommand(ev.Type) {
		l.handleCommand(ctx, ev)
		return
	}

	switch state := l.machine.GetState(); state {
	case finitestate.StateRun:
		handled, err := l.behavior.AnalyzeEvent(ctx, ev)
		if err != nil {
			l.logger.Warn("Event analysis failed", "event", ev.String(), "error", err)
			l.reply(ev, event.Result{Success: false, Message: err.Error()})
			return
		}
		if !handled {
			if err := l.processing.Push(ev); err != nil {
				l.logger.Warn("Processing queue full, dropping",
					"event", ev.String())
				l.reply(ev, event.Result{Success: false, Message: "processing queue full"})
			}
		}
	case finitestate.StatePause:
		if err := l.pauseBuf.Push(ev); err != nil {
			l.reply(ev, event.Result{Success: false, Message: "pause buffer full"})
		}
	case finitestate.StateInitialized, finitestate.StateStarting,
		finitestate.StatePausing, finitestate.StateResuming,
		finitestate.StateSoftStopping:
		l.reply(ev, event.Result{Success: false, Message: "system in transition"})
	case finitestate.StateFault, finitestate.StateOnError:
		l.reply(ev, event.Result{Success: false, Message: "system in fault state"})
	default:
		l.reply(ev, event.Result{Success: false, Message: "service stopped"})
	}
}

// handleCommand runs one lifecycle command through the FSM: check
// legality, enter the transitional state, run the hook, settle in the
// target state, reply. Hook failures degrade to FAULT.
func (l *Listener) handleCommand(ctx context.Context, ev *event.Event) {
	switch ev.Type {
	case event.CmdGetState:
		l.reply(ev, event.Result{Success: true, Data: l.StateExport()})
		return
	case event.CmdHealthCheck:
		l.reply(ev, event.Result{Success: true, Data: l.healthBlob()})
		return
	}

	l.cmdMu.Lock()
	origin := l.machine.GetState()
	path, known := finitestate.CommandPaths[ev.Type]
	if !known || !finitestate.AllowedFrom(ev.Type, origin) {
		l.cmdMu.Unlock()
		l.reply(ev, event.Result{
			Success: false,
			Message: fmt.Sprintf("%s: %s not allowed in %s",
				ErrCommandNotAllowed, ev.Type, origin),
		})
		return
	}

	transitional := path.Transitional[origin]
	if transitional != origin {
		if err := l.machine.Transition(transitional); err != nil {
			l.cmdMu.Unlock()
			l.reply(ev, event.Result{Success: false, Message: err.Error()})
			return
		}
	}
	l.cmdMu.Unlock()

	if err := l.runCommandHook(ctx, ev.Type, origin); err != nil {
		l.fault(fmt.Errorf("%s hook: %w", ev.Type, err))
		l.reply(ev, event.Result{Success: false, Message: err.Error()})
		return
	}

	l.cmdMu.Lock()
	err := l.machine.Transition(path.Target)
	l.cmdMu.Unlock()
	if err != nil {
		l.fault(fmt.Errorf("%s settle: %w", ev.Type, err))
		l.reply(ev, event.Result{Success: false, Message: err.Error()})
		return
	}

	l.logger.Info("Lifecycle command handled",
		"command", ev.Type, "from", origin, "state", path.Target)
	l.reply(ev, event.Result{
		Success: true,
		Data: map[string]any{
			"fsm_state": path.Target,
			"fsm_code":  finitestate.Code(path.Target),
		},
	})
}

// runCommandHook invokes the behavior hook for a command, including the
// chained FSM hops the command table cannot express.
func (l *Listener) runCommandHook(ctx context.Context, command, origin string) error {
	switch command {
	case event.CmdInitialized:
		if origin == finitestate.StateRun {
			// Re-initializing from RUN soft-stops first.
			l.stopLocalCheck()
			if err := l.behavior.OnStop(ctx); err != nil {
				return err
			}
		}
		return l.behavior.OnInitialize(ctx)

	case event.CmdRun:
		if origin == finitestate.StatePause {
			l.reinjectPauseBuffer()
		}
		l.startLocalCheck()
		return l.behavior.OnRun(ctx)

	case event.CmdPause:
		l.stopLocalCheck()
		return l.behavior.OnPause(ctx)

	case event.CmdStopped:
		l.stopLocalCheck()
		if origin == finitestate.StateRun {
			// Stopping from RUN pauses first, then hard-stops.
			if err := l.behavior.OnPause(ctx); err != nil {
				return err
			}
			l.cmdMu.Lock()
			err := l.machine.Transition(finitestate.StateHardStopping)
			l.cmdMu.Unlock()
			if err != nil {
				return err
			}
		}
		return l.behavior.OnStop(ctx)

	case event.CmdAck:
		if err := l.behavior.OnAck(ctx); err != nil {
			return err
		}
		l.clearError()
		return nil
	}
	return nil
}

// reinjectPauseBuffer moves events buffered during PAUSE back into
// incoming, preserving their order.
func (l *Listener) reinjectPauseBuffer() {
	buffered := l.pauseBuf.Snapshot()
	l.pauseBuf.Replace(nil)
	for _, ev := range buffered {
		if err := l.incoming.Push(ev); err != nil {
			l.logger.Warn("Dropping buffered event on resume",
				"event", ev.String(), "error", err)
		}
	}
	if len(buffered) > 0 {
		l.logger.Info("Re-injected paused events", "count", len(buffered))
	}
}

// reply queues the reply for an event, if it carries reply coordinates.
func (l *Listener) reply(ev *event.Event, result event.Result) {
	if ev.SourceAddress == "" || ev.SourcePort == 0 {
		l.logger.Debug("Event has no reply coordinates", "event", ev.String())
		return
	}
	r := ev.Reply(result)
	if err := l.toSend.Push(r); err != nil {
		l.logger.Warn("Outbound queue full, dropping reply",
			"event", r.String(), "error", err)
	}
}
