// Package actions implements the built-in action kinds invoked by the
// scenario engine. Core kinds (logging, command dispatch, waiting,
// branching, nesting) always run; outbound delivery kinds (email, SMS,
// Lynx refunds) consult the orchestrator's per-kind error counters and
// skip themselves once their configured threshold is exceeded.
package actions

import (
	"fmt"

	"github.com/cellwarden/cellwarden/internal/registry"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// RegisterBuiltins adds every built-in action kind to the registry.
// Called once at orchestrator startup, before user kinds register.
func RegisterBuiltins(reg *registry.Registry[scenario.Action]) {
	for _, action := range []scenario.Action{
		&LogEvent{},
		&SendCommand{},
		&SendCustomCommand{},
		&WaitForState{},
		&EvaluateCondition{},
		&ExecuteScenario{},
		&SendEmail{},
		&SendSMS{},
		&SendSMSToCustomer{},
		&DatabaseUpdate{},
		&RestartOrders{},
		&LynxRefund{},
		&LynxRefundApprove{},
	} {
		reg.Register(action.Type(), action)
	}
}

func cfgString(cfg map[string]any, key string) string {
	v, _ := cfg[key].(string)
	return v
}

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

// cfgActionList decodes a nested action list config value.
func cfgActionList(cfg map[string]any, key string) ([]scenario.ActionConfig, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		if typed, ok := raw.([]scenario.ActionConfig); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("%s: expected action list, got %T", key, raw)
	}
	out := make([]scenario.ActionConfig, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: action entry is %T, want mapping", key, elem)
		}
		out = append(out, scenario.ActionConfig(m))
	}
	return out, nil
}

// cfgConditionList decodes a condition list (or single node) config
// value.
func cfgConditionList(cfg map[string]any, key string) ([]map[string]any, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: condition entry is %T, want mapping", key, elem)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected condition list, got %T", key, raw)
	}
}

// skipIfExhausted implements the shared outbound-delivery guard: once a
// kind's consecutive error count reaches its threshold, the action
// becomes a warn-and-skip no-op until a real success resets the counter.
func skipIfExhausted(kind string, sc *scenario.Context) (scenario.SkippedResult, bool) {
	if sc.ActionErrors != nil && sc.ActionErrors.Exhausted(kind) {
		sc.Logger.Warn("Action skipped due to errors",
			"action", kind, "consecutive_errors", sc.ActionErrors.Count(kind))
		return scenario.SkippedResult{Reason: "max_error_attempts exceeded"}, true
	}
	return scenario.SkippedResult{}, false
}
