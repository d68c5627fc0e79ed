package actions

import (
	"context"
	"fmt"

	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// DatabaseUpdate runs a mutating statement against a database component.
// Config: {component, query, args?: [values]}. The statement runs in a
// transaction and the result reports rows affected.
type DatabaseUpdate struct{}

// Type returns the registration tag.
func (d *DatabaseUpdate) Type() string { return "database_update" }

// Execute runs the statement.
func (d *DatabaseUpdate) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	db, err := lookupDatabaseComponent(cfg, sc)
	if err != nil {
		return nil, fmt.Errorf("database_update: %w", err)
	}
	query := cfgString(cfg, "query")
	if query == "" {
		return nil, fmt.Errorf("database_update: missing query")
	}

	var args []any
	if raw, ok := cfg["args"]; ok {
		args, ok = raw.([]any)
		if !ok {
			return nil, fmt.Errorf("database_update: args must be a list, got %T", raw)
		}
	}

	affected, err := db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database_update: exec: %w", err)
	}
	sc.Logger.Debug("Database updated", "rows_affected", affected)
	return map[string]any{"rows_affected": affected}, nil
}

// RestartOrders resets orders stuck mid-processing back to a restartable
// state so they are picked up again after a recovery. Config:
// {component, from_status?, to_status?}.
type RestartOrders struct{}

// Type returns the registration tag.
func (r *RestartOrders) Type() string { return "restart_orders" }

// Execute flips the stuck orders' status in one transaction.
func (r *RestartOrders) Execute(
	ctx context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	db, err := lookupDatabaseComponent(cfg, sc)
	if err != nil {
		return nil, fmt.Errorf("restart_orders: %w", err)
	}

	fromStatus := cfgString(cfg, "from_status")
	if fromStatus == "" {
		fromStatus = "processing"
	}
	toStatus := cfgString(cfg, "to_status")
	if toStatus == "" {
		toStatus = "queued"
	}

	affected, err := db.Exec(ctx,
		"UPDATE orders SET status = $1, updated_at = now() WHERE status = $2",
		toStatus, fromStatus)
	if err != nil {
		return nil, fmt.Errorf("restart_orders: exec: %w", err)
	}
	sc.Logger.Info("Orders restarted",
		"from", fromStatus, "to", toStatus, "count", affected)
	return map[string]any{"restarted": affected}, nil
}

// lookupDatabaseComponent resolves the component config key to a
// database handle.
func lookupDatabaseComponent(
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (*components.Database, error) {
	name := cfgString(cfg, "component")
	if name == "" {
		return nil, fmt.Errorf("missing component")
	}
	comp, ok := sc.Components[name]
	if !ok {
		return nil, fmt.Errorf("unknown component %q", name)
	}
	db, ok := comp.(*components.Database)
	if !ok {
		return nil, fmt.Errorf("component %q is not a database", name)
	}
	return db, nil
}
