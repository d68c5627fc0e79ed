package orchestrator

import (
	"sync"

	"github.com/cellwarden/cellwarden/internal/config"
	"github.com/cellwarden/cellwarden/internal/event"
	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// Store is the client registry: one merged record per supervised
// client, static fields seeded from configuration and runtime fields
// updated by CMD_GET_STATE replies. Readers get copies; writers replace
// the maps inside a record instead of mutating them, so snapshots stay
// consistent without deep copies.
type Store struct {
	mu      sync.RWMutex
	clients map[string]scenario.ClientState
}

// NewStore seeds the registry from the configured client set. Runtime
// fields start at UNKNOWN until the first state reply arrives.
func NewStore(cfgs map[string]config.ClientConfig) *Store {
	clients := make(map[string]scenario.ClientState, len(cfgs))
	for name, cfg := range cfgs {
		clients[name] = scenario.ClientState{
			Name:      name,
			Address:   cfg.Address,
			Port:      cfg.Port,
			Groups:    cfg.Groups,
			DependsOn: cfg.DependsOn,
			FSMState:  finitestate.StateUnknown,
			FSMCode:   finitestate.Code(finitestate.StateUnknown),
		}
	}
	return &Store{clients: clients}
}

// Snapshot returns a copy of the client map.
func (s *Store) Snapshot() map[string]scenario.ClientState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]scenario.ClientState, len(s.clients))
	for name, state := range s.clients {
		out[name] = state
	}
	return out
}

// Coordinates returns the configured ingress address of a client.
func (s *Store) Coordinates(name string) (string, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.clients[name]
	if !ok {
		return "", 0, false
	}
	return state.Address, state.Port, true
}

// UpdateFromReply merges a CMD_GET_STATE reply into the client record.
// Known fields map onto the record; everything else lands in Subsystems.
func (s *Store) UpdateFromReply(ev *event.Event) bool {
	if ev == nil || ev.Result == nil {
		return false
	}
	data, ok := ev.Result.Data.(map[string]any)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.clients[ev.Source]
	if !ok {
		return false
	}

	subsystems := make(map[string]any)
	for key, value := range data {
		switch key {
		case "fsm_state":
			if v, ok := value.(string); ok {
				state.FSMState = v
				state.FSMCode = finitestate.Code(v)
			}
		case "fsm_code":
			// Derived from fsm_state; the code in the reply is advisory.
		case "error":
			if v, ok := value.(bool); ok {
				state.Error = v
			}
		case "error_message":
			if v, ok := value.(string); ok {
				state.ErrorMessage = v
			}
		case "health_check":
			if v, ok := value.(map[string]any); ok {
				state.HealthCheck = v
			}
		default:
			subsystems[key] = value
		}
	}
	state.Subsystems = subsystems
	s.clients[ev.Source] = state
	return true
}
