// Package logging configures the process-wide slog handler for the
// cellwarden CLI and for every listener runtime it hosts.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// EnvLogLevel is consulted when no explicit log level is given.
const EnvLogLevel = "CELLWARDEN_LOG_LEVEL"

// SetupHandlerText configures a text slog handler with the provided writer and log level.
// The "trace" level maps to debug with caller reporting enabled.
func SetupHandlerText(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stderr
	}

	reportCaller := false
	reportTimestamp := false
	lvl := log.InfoLevel
	switch strings.ToLower(logLevel) {
	case "trace":
		reportCaller = true
		reportTimestamp = true
		lvl = log.DebugLevel
	case "debug":
		reportTimestamp = true
		lvl = log.DebugLevel
	case "info":
		lvl = log.InfoLevel
	case "warn", "warning":
		lvl = log.WarnLevel
	case "error":
		lvl = log.ErrorLevel
	}

	return log.NewWithOptions(writer, log.Options{
		ReportTimestamp: reportTimestamp,
		ReportCaller:    reportCaller,
		Level:           lvl,
	})
}

// SetupHandlerJSON configures a JSON slog handler with the provided writer and log level.
func SetupHandlerJSON(logLevel string, writer io.Writer) slog.Handler {
	if writer == nil {
		writer = os.Stdout
	}

	reportCaller := false
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "trace":
		reportCaller = true
		level = slog.LevelDebug
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: reportCaller,
	}

	return slog.NewJSONHandler(writer, opts)
}

// SetupLogger configures the default logger. An empty level falls back to
// the CELLWARDEN_LOG_LEVEL environment variable, then to "info".
func SetupLogger(logLevel string) {
	if logLevel == "" {
		logLevel = os.Getenv(EnvLogLevel)
	}
	handler := SetupHandlerText(logLevel, nil)
	slog.SetDefault(slog.New(handler))
}

// SetupLoggerJSON configures the default logger with a JSON handler.
func SetupLoggerJSON(logLevel string, writer io.Writer) {
	if logLevel == "" {
		logLevel = os.Getenv(EnvLogLevel)
	}
	handler := SetupHandlerJSON(logLevel, writer)
	slog.SetDefault(slog.New(handler))
}
