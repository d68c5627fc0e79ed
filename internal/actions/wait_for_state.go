package actions

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// statePollInterval is how often wait_for_state re-polls the client map.
const statePollInterval = 250 * time.Millisecond

// defaultWaitTimeout applies when the config omits a timeout.
const defaultWaitTimeout = 30 * time.Second

// WaitForState blocks until every selected client reports one of the
// target states. Config: {client|group|groups|target,
// target_state|target_states (state|states accepted as shorthand),
// timeout?, on_failure?: [actions]}. A timeout without on_failure fails
// the scenario; with on_failure the fallback actions run and the result
// reports the clients that never arrived.
type WaitForState struct{}

// Type returns the registration tag.
func (w *WaitForState) Type() string { return "wait_for_state" }

// Execute polls the orchestrator's client snapshot until the targets
// converge or the timeout elapses.
func (w *WaitForState) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	var states []string
	for _, key := range []string{"target_states", "states"} {
		list, err := cfgStrings(cfg, key)
		if err != nil {
			return nil, fmt.Errorf("wait_for_state: %w", err)
		}
		states = append(states, list...)
	}
	for _, key := range []string{"target_state", "state"} {
		if single := cfgString(cfg, key); single != "" {
			states = append(states, single)
		}
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("wait_for_state: missing target_state")
	}

	targets, err := scenario.ResolveSelector(cfg, sc.Clients)
	if err != nil {
		return nil, fmt.Errorf("wait_for_state: %w", err)
	}

	timeout := defaultWaitTimeout
	if raw := cfgString(cfg, "timeout"); raw != "" {
		d, err := config.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("wait_for_state: timeout: %w", err)
		}
		timeout = d.AsDuration()
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(statePollInterval)
	defer ticker.Stop()

	pending := targets
	for {
		pending = remaining(sc.Orchestrator.ClientSnapshot(), pending, states)
		if len(pending) == 0 {
			sc.Logger.Debug("Clients reached state",
				"states", states, "targets", targets)
			return map[string]any{"reached": targets}, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return w.onTimeout(ctx, cfg, sc, states, pending)
		}
	}
}

// onTimeout runs the on_failure branch if one is configured, otherwise
// fails the scenario.
func (w *WaitForState) onTimeout(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
	states, pending []string,
) (any, error) {
	sc.Logger.Warn("Timed out waiting for state",
		"states", states, "pending", pending)

	fallback, err := cfgActionList(cfg, "on_failure")
	if err != nil {
		return nil, fmt.Errorf("wait_for_state: %w", err)
	}
	if len(fallback) == 0 {
		return nil, fmt.Errorf("wait_for_state: clients %v never reached %v", pending, states)
	}

	if err := sc.Engine.RunActions(ctx, fallback, sc); err != nil {
		return nil, fmt.Errorf("wait_for_state: on_failure: %w", err)
	}
	return map[string]any{"timed_out": pending}, nil
}

// remaining filters out the clients that already sit in a target state.
func remaining(
	clients map[string]scenario.ClientState,
	names, states []string,
) []string {
	var out []string
	for _, name := range names {
		client, ok := clients[name]
		if !ok || !slices.Contains(states, client.FSMState) {
			out = append(out, name)
		}
	}
	return out
}
