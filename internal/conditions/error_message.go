package conditions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cellwarden/cellwarden/internal/listener/finitestate"
	"github.com/cellwarden/cellwarden/internal/scenario"
)

// ErrorMessage matches client error messages. Config:
//
//	{pattern, match?: "substring"|"regex"|"exact"|"prefix",
//	 client? | clients?, only_faulted?, only_errored?}
//
// Without a client selector every client is checked. The first matching
// client binds client, error_message, and any named regex groups into
// the trigger context.
type ErrorMessage struct{}

// Type returns the registration tag.
func (e *ErrorMessage) Type() string { return "error_message" }

// Evaluate reports whether any selected client's error message matches.
func (e *ErrorMessage) Evaluate(
	_ context.Context,
	cfg map[string]any,
	sc *scenario.Context,
) (bool, map[string]any, error) {
	pattern := cfgString(cfg, "pattern")
	if pattern == "" {
		return false, nil, fmt.Errorf("error_message: missing pattern")
	}
	mode := cfgString(cfg, "match")
	if mode == "" {
		mode = "substring"
	}

	var re *regexp.Regexp
	if mode == "regex" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false, nil, fmt.Errorf("error_message: invalid regex: %w", err)
		}
	}

	names, err := cfgStrings(cfg, "clients")
	if err != nil {
		return false, nil, fmt.Errorf("error_message: %w", err)
	}
	if single := cfgString(cfg, "client"); single != "" {
		names = append(names, single)
	}
	if len(names) == 0 {
		for name := range sc.Clients {
			names = append(names, name)
		}
	}

	onlyFaulted := cfgBool(cfg, "only_faulted")
	onlyErrored := cfgBool(cfg, "only_errored")

	for _, name := range names {
		client, ok := sc.Clients[name]
		if !ok {
			continue
		}
		if onlyFaulted && client.FSMState != finitestate.StateFault {
			continue
		}
		if onlyErrored && !client.Error {
			continue
		}
		if client.ErrorMessage == "" {
			continue
		}

		bindings, matched := matchMessage(mode, pattern, re, client.ErrorMessage)
		if !matched {
			continue
		}
		bindings["client"] = name
		bindings["error_message"] = client.ErrorMessage
		return true, bindings, nil
	}
	return false, nil, nil
}

func matchMessage(mode, pattern string, re *regexp.Regexp, message string) (map[string]any, bool) {
	bindings := map[string]any{}
	switch mode {
	case "exact":
		return bindings, message == pattern
	case "prefix":
		return bindings, strings.HasPrefix(message, pattern)
	case "regex":
		match := re.FindStringSubmatch(message)
		if match == nil {
			return nil, false
		}
		for i, group := range re.SubexpNames() {
			if group != "" && i < len(match) {
				bindings[group] = match[i]
			}
		}
		return bindings, true
	default: // substring
		return bindings, strings.Contains(message, pattern)
	}
}
