// Package conditions implements the built-in condition kinds evaluated
// by scenario triggers. Kinds register explicitly through
// RegisterBuiltins; logical operators (and, or, not, xor, nand, nor) are
// structural and handled by the tree evaluator, not registered here.
package conditions

import (
	"fmt"

	"github.com/cellwarden/cellwarden/internal/registry"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// RegisterBuiltins adds every built-in condition kind to the registry.
// Called once at orchestrator startup, before user kinds register.
func RegisterBuiltins(reg *registry.Registry[scenario.Condition]) {
	for _, cond := range []scenario.Condition{
		&ClientState{},
		&TimeWindow{},
		&ErrorMessage{},
		&Database{},
		&DatabaseList{},
		&VirtualDeviceError{},
	} {
		reg.Register(cond.Type(), cond)
	}
}

// cfgString returns a string config key, or "" when absent.
func cfgString(cfg map[string]any, key string) string {
	v, _ := cfg[key].(string)
	return v
}

// cfgStrings accepts either a single string or a list of strings under
// the key.
func cfgStrings(cfg map[string]any, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%s: non-string element %v", key, elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected string or list, got %T", key, raw)
	}
}

// cfgBool returns a boolean config key, defaulting to false.
func cfgBool(cfg map[string]any, key string) bool {
	v, _ := cfg[key].(bool)
	return v
}
