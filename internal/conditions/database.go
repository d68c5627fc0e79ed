package conditions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/cellwarden/cellwarden/internal/components"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// Database executes a single-row query against a named database
// component and compares the value to an expectation. Config:
// {component, query, expected, operator?: "eq"|"ne"|"gt"|"ge"|"lt"|"le"}.
type Database struct{}

// Type returns the registration tag.
func (d *Database) Type() string { return "database" }

// Evaluate runs the query and applies the comparison. A query returning
// no rows is false for "eq" and true for "ne".
func (d *Database) Evaluate(
	ctx context.Context,
	cfg map[string]any,
	sc *scenario.Context,
) (bool, map[string]any, error) {
	db, query, err := lookupDatabase(cfg, sc)
	if err != nil {
		return false, nil, fmt.Errorf("database: %w", err)
	}

	op := cfgString(cfg, "operator")
	if op == "" {
		op = "eq"
	}
	expected, hasExpected := cfg["expected"]
	if !hasExpected {
		return false, nil, fmt.Errorf("database: missing expected value")
	}

	value, err := db.QueryValue(ctx, query)
	if errors.Is(err, sql.ErrNoRows) {
		return op == "ne", nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("database: query: %w", err)
	}

	verdict, err := compare(op, value, expected)
	if err != nil {
		return false, nil, fmt.Errorf("database: %w", err)
	}
	if !verdict {
		return false, nil, nil
	}
	return true, map[string]any{"db_value": value}, nil
}

// DatabaseList executes a multi-row query and binds the rows into the
// trigger context. Config: {component, query, bind?: key}. True iff the
// result list is non-empty.
type DatabaseList struct{}

// Type returns the registration tag.
func (d *DatabaseList) Type() string { return "database_list" }

// Evaluate runs the query and binds the result list.
func (d *DatabaseList) Evaluate(
	ctx context.Context,
	cfg map[string]any,
	sc *scenario.Context,
) (bool, map[string]any, error) {
	db, query, err := lookupDatabase(cfg, sc)
	if err != nil {
		return false, nil, fmt.Errorf("database_list: %w", err)
	}

	bindKey := cfgString(cfg, "bind")
	if bindKey == "" {
		bindKey = "rows"
	}

	rows, err := db.QueryRows(ctx, query)
	if err != nil {
		return false, nil, fmt.Errorf("database_list: query: %w", err)
	}
	if len(rows) == 0 {
		return false, nil, nil
	}
	return true, map[string]any{bindKey: rows}, nil
}

// lookupDatabase resolves the component and query config keys.
func lookupDatabase(
	cfg map[string]any,
	sc *scenario.Context,
) (*components.Database, string, error) {
	name := cfgString(cfg, "component")
	if name == "" {
		return nil, "", fmt.Errorf("missing component")
	}
	comp, ok := sc.Components[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown component %q", name)
	}
	db, ok := comp.(*components.Database)
	if !ok {
		return nil, "", fmt.Errorf("component %q is not a database", name)
	}
	query := cfgString(cfg, "query")
	if query == "" {
		return nil, "", fmt.Errorf("missing query")
	}
	return db, query, nil
}

// compare applies the operator with numeric coercion; non-numeric values
// fall back to string equality for eq/ne.
func compare(op string, value, expected any) (bool, error) {
	vNum, vOK := toFloat(value)
	eNum, eOK := toFloat(expected)
	if vOK && eOK {
		switch op {
		case "eq":
			return vNum == eNum, nil
		case "ne":
			return vNum != eNum, nil
		case "gt":
			return vNum > eNum, nil
		case "ge":
			return vNum >= eNum, nil
		case "lt":
			return vNum < eNum, nil
		case "le":
			return vNum <= eNum, nil
		default:
			return false, fmt.Errorf("unknown operator %q", op)
		}
	}

	vStr := fmt.Sprint(value)
	eStr := fmt.Sprint(expected)
	switch op {
	case "eq":
		return vStr == eStr, nil
	case "ne":
		return vStr != eStr, nil
	default:
		return false, fmt.Errorf("operator %q requires numeric operands", op)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
