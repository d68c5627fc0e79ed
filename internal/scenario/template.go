package scenario

import (
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
)

// templatePattern matches a {{ dotted.variable }} placeholder.
var templatePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][\w.]*)\s*\}\}`)

// ResolveTemplates walks an action config value and substitutes
// {{ variable }} placeholders from the data namespace. A string that is
// exactly one placeholder resolves to the bound value with its runtime
// type preserved; strings with surrounding text render all placeholders
// as text. Missing variables leave the placeholder intact and log one
// warning per variable per invocation.
func ResolveTemplates(value any, data map[string]any, logger *slog.Logger) any {
	if logger == nil {
		logger = slog.Default()
	}
	warned := map[string]bool{}
	return resolveValue(value, data, logger, warned)
}

// ResolveActionConfig resolves every value of an action config, leaving
// the "type" key untouched.
func ResolveActionConfig(cfg ActionConfig, data map[string]any, logger *slog.Logger) ActionConfig {
	resolved := make(ActionConfig, len(cfg))
	for k, v := range cfg {
		if k == "type" {
			resolved[k] = v
			continue
		}
		resolved[k] = ResolveTemplates(v, data, logger)
	}
	return resolved
}

func resolveValue(value any, data map[string]any, logger *slog.Logger, warned map[string]bool) any {
	switch v := value.(type) {
	case string:
		return resolveString(v, data, logger, warned)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = resolveValue(elem, data, logger, warned)
		}
		return out
	case ActionConfig:
		out := make(ActionConfig, len(v))
		for k, elem := range v {
			out[k] = resolveValue(elem, data, logger, warned)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = resolveValue(elem, data, logger, warned)
		}
		return out
	default:
		return value
	}
}

func resolveString(s string, data map[string]any, logger *slog.Logger, warned map[string]bool) any {
	match := templatePattern.FindStringSubmatch(s)
	if match == nil {
		return s
	}

	// A string that is exactly one placeholder preserves the bound
	// value's runtime type.
	if strings.TrimSpace(s) == match[0] && strings.Count(s, "{{") == 1 {
		value, ok := lookupPath(data, match[1])
		if !ok {
			warnMissing(logger, warned, match[1])
			return s
		}
		return value
	}

	return templatePattern.ReplaceAllStringFunc(s, func(placeholder string) string {
		path := templatePattern.FindStringSubmatch(placeholder)[1]
		value, ok := lookupPath(data, path)
		if !ok {
			warnMissing(logger, warned, path)
			return placeholder
		}
		return fmt.Sprint(value)
	})
}

func warnMissing(logger *slog.Logger, warned map[string]bool, path string) {
	if warned[path] {
		return
	}
	warned[path] = true
	logger.Warn("Template variable not found", "variable", path)
}

// lookupPath navigates a dotted path through maps and struct fields.
func lookupPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		next, ok := lookupSegment(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func lookupSegment(current any, key string) (any, bool) {
	switch v := current.(type) {
	case map[string]any:
		value, ok := v[key]
		return value, ok
	case map[string]string:
		value, ok := v[key]
		return value, ok
	}

	// Fall back to exported struct fields.
	rv := reflect.ValueOf(current)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		field := rv.FieldByName(key)
		if field.IsValid() && field.CanInterface() {
			return field.Interface(), true
		}
	}
	return nil, false
}
