package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// defaultCommandProcessingTime bounds outbound command round trips.
const defaultCommandProcessingTime = 10 * time.Second

// SendCommand dispatches one of the standard CMD_* events to a selector.
// Config: {client|group|groups|target, command, description?}.
type SendCommand struct{}

// Type returns the registration tag.
func (s *SendCommand) Type() string { return "send_command" }

// Execute expands the selector and emits the command to every member.
func (s *SendCommand) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	command := cfgString(cfg, "command")
	if !event.IsLifecycleCommand(command) {
		return nil, fmt.Errorf("send_command: %q is not a lifecycle command", command)
	}
	return emitToSelector(ctx, cfg, sc, command, nil)
}

// SendCustomCommand dispatches an arbitrary event with a payload.
// Config: {client|group|groups|target, command, data?}.
type SendCustomCommand struct{}

// Type returns the registration tag.
func (s *SendCustomCommand) Type() string { return "send_custom_command" }

// Execute expands the selector and emits the command with its payload.
func (s *SendCustomCommand) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	command := cfgString(cfg, "command")
	if command == "" {
		return nil, fmt.Errorf("send_custom_command: missing command")
	}
	var data map[string]any
	if raw, ok := cfg["data"]; ok {
		data, ok = raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("send_custom_command: data must be a mapping, got %T", raw)
		}
	}
	return emitToSelector(ctx, cfg, sc, command, data)
}

// emitToSelector sends the event to every client the selector resolves
// to and returns the event ids by client name.
func emitToSelector(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
	command string,
	data map[string]any,
) (any, error) {
	targets, err := scenario.ResolveSelector(cfg, sc.Clients)
	if err != nil {
		return nil, err
	}

	sent := make(map[string]int64, len(targets))
	var errz []error
	for _, name := range targets {
		ev, err := sc.Orchestrator.Emit(ctx, name, command, data, defaultCommandProcessingTime)
		if err != nil {
			errz = append(errz, fmt.Errorf("emit %s to %q: %w", command, name, err))
			continue
		}
		sent[name] = ev.ID
	}
	if len(errz) > 0 {
		return sent, errors.Join(errz...)
	}
	sc.Logger.Debug("Command dispatched", "command", command, "targets", targets)
	return sent, nil
}
