// Package components implements the named long-lived external resource
// handles owned by the orchestrator: databases, mail and SMS gateways,
// and the Lynx refund API. Scenario actions borrow components by name
// for the duration of a run.
package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cellwarden/cellwarden/internal/config"
)

// ErrComponentInitialization marks init/connect/health failures. A
// component that reports it is unhealthy; scenarios depending on it must
// check before use.
var ErrComponentInitialization = errors.New("component initialization failed")

// ErrUnknownComponentType is returned for unrecognized "type" tags.
var ErrUnknownComponentType = errors.New("unknown component type")

// Component is a named long-lived external resource handle. All methods
// are idempotent; Initialize and Connect may be called again after a
// failure.
type Component interface {
	// Name returns the component's configured name.
	Name() string

	// Initialize prepares the component without touching the network.
	Initialize(ctx context.Context) error

	// Connect establishes the external connection.
	Connect(ctx context.Context) error

	// HealthCheck verifies the connection is alive.
	HealthCheck(ctx context.Context) error

	// Close releases the component's resources.
	Close() error
}

// Build constructs a component from its raw configuration. The "type"
// key selects the implementation.
func Build(name string, cfg config.ComponentConfig, logger *slog.Logger) (Component, error) {
	switch cfg.Type() {
	case "database":
		return NewDatabase(name, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q (component %q)", ErrUnknownComponentType, cfg.Type(), name)
	}
}

// BuildAll constructs every configured component. A failure on one
// component aborts the build; the orchestrator treats this as a boot
// error.
func BuildAll(
	cfgs map[string]config.ComponentConfig,
	logger *slog.Logger,
) (map[string]Component, error) {
	out := make(map[string]Component, len(cfgs))
	for name, cfg := range cfgs {
		comp, err := Build(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		out[name] = comp
	}
	return out, nil
}
