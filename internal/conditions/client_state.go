package conditions

import (
	"context"
	"fmt"
	"slices"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// ClientState checks one client's FSM state against a value or set.
// Config: {client, state | states}.
type ClientState struct{}

// Type returns the registration tag.
func (c *ClientState) Type() string { return "client_state" }

// Evaluate reports whether the named client is in one of the expected
// states.
func (c *ClientState) Evaluate(
	_ context.Context,
	cfg map[string]any,
	sc *scenario.Context,
) (bool, map[string]any, error) {
	name := cfgString(cfg, "client")
	if name == "" {
		return false, nil, fmt.Errorf("client_state: missing client")
	}
	client, ok := sc.Clients[name]
	if !ok {
		return false, nil, fmt.Errorf("client_state: unknown client %q", name)
	}

	states, err := cfgStrings(cfg, "states")
	if err != nil {
		return false, nil, fmt.Errorf("client_state: %w", err)
	}
	if single := cfgString(cfg, "state"); single != "" {
		states = append(states, single)
	}
	if len(states) == 0 {
		return false, nil, fmt.Errorf("client_state: missing state or states")
	}

	if !slices.Contains(states, client.FSMState) {
		return false, nil, nil
	}
	return true, map[string]any{
		"client":       name,
		"client_state": client.FSMState,
	}, nil
}
