package scenario

import (
	"errors"
	"fmt"
	"slices"
)

// TargetAll is the selector value that expands to every registered client.
const TargetAll = "@all"

// ErrInvalidSelector is returned when an action config carries no usable
// selector or names unknown clients or groups.
var ErrInvalidSelector = errors.New("invalid selector")

// ResolveSelector expands the selector vocabulary of an action config
// (client / group / groups / target: "@all") into a sorted set of client
// names, resolved against the given client map.
func ResolveSelector(cfg map[string]any, clients map[string]ClientState) ([]string, error) {
	if name, ok := cfg["client"].(string); ok && name != "" {
		if _, exists := clients[name]; !exists {
			return nil, fmt.Errorf("%w: unknown client %q", ErrInvalidSelector, name)
		}
		return []string{name}, nil
	}

	if group, ok := cfg["group"].(string); ok && group != "" {
		return expandGroups([]string{group}, clients)
	}

	if raw, ok := cfg["groups"]; ok {
		groups, err := stringSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: groups: %w", ErrInvalidSelector, err)
		}
		return expandGroups(groups, clients)
	}

	if target, ok := cfg["target"].(string); ok {
		if target != TargetAll {
			return nil, fmt.Errorf("%w: unknown target %q", ErrInvalidSelector, target)
		}
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, name)
		}
		slices.Sort(names)
		return names, nil
	}

	return nil, fmt.Errorf("%w: no client, group, groups, or target key", ErrInvalidSelector)
}

// expandGroups returns the union of the listed groups' members, sorted.
func expandGroups(groups []string, clients map[string]ClientState) ([]string, error) {
	members := map[string]bool{}
	for _, group := range groups {
		found := false
		for name, state := range clients {
			if slices.Contains(state.Groups, group) {
				members[name] = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: group %q has no members", ErrInvalidSelector, group)
		}
	}
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func stringSlice(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("non-string element %v", elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
}
