package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/robbyt/go-supervisor/runnables/httpserver"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// Routes builds the orchestrator's HTTP surface: the event ingress plus
// the manual-run and status endpoints.
func (o *Orchestrator) Routes() ([]httpserver.Route, error) {
	eventRoute, err := o.listener.Route()
	if err != nil {
		return nil, err
	}

	manualRoute, err := httpserver.NewRouteFromHandlerFunc(
		"scenario-run", "/scenario/", o.HandleManualRun)
	if err != nil {
		return nil, err
	}

	statusRoute, err := httpserver.NewRouteFromHandlerFunc(
		"status", "/status", o.HandleStatus)
	if err != nil {
		return nil, err
	}

	return []httpserver.Route{eventRoute, *manualRoute, *statusRoute}, nil
}

// HandleManualRun is the handler for POST /scenario/{name}/run. It flags
// the named manual scenario for the next tick.
func (o *Orchestrator) HandleManualRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/scenario/")
	name, ok := strings.CutSuffix(rest, "/run")
	if !ok || name == "" || strings.Contains(name, "/") {
		http.Error(w, "expected /scenario/{name}/run", http.StatusNotFound)
		return
	}

	if err := o.RequestManualRun(name); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, scenario.ErrUnknownScenario) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	o.logger.Info("Manual run requested", "scenario", name)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"scenario":  name,
		"requested": true,
	}); err != nil {
		o.logger.Warn("Failed to write manual run response", "error", err)
	}
}

// HandleStatus is the handler for GET /status: the FSM state, the client
// map, and the scenario execution table.
func (o *Orchestrator) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clients := o.store.Snapshot()
	rendered := make(map[string]any, len(clients))
	for name, state := range clients {
		rendered[name] = state.AsMap()
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"name":      o.cfg.Name,
		"fsm_state": o.listener.GetState(),
		"clients":   rendered,
		"scenarios": o.engine.Status(),
	})
	if err != nil {
		o.logger.Warn("Failed to write status response", "error", err)
	}
}
