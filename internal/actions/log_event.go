package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// LogEvent writes a structured log record from the scenario. Config:
// {level?: "debug"|"info"|"warn"|"error", message}.
type LogEvent struct{}

// Type returns the registration tag.
func (l *LogEvent) Type() string { return "log_event" }

// Execute logs the message at the configured level.
func (l *LogEvent) Execute(
	_ context.Context,
	cfg scenario.ActionConfig,
	sc *scenario.Context,
) (any, error) {
	message := cfgString(cfg, "message")
	if message == "" {
		return nil, fmt.Errorf("log_event: missing message")
	}

	logger := sc.Logger.With("scenario", sc.ScenarioName)
	switch strings.ToLower(cfgString(cfg, "level")) {
	case "debug":
		logger.Debug(message)
	case "warn", "warning":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}
	return message, nil
}
