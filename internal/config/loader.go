package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cellwarden/cellwarden/internal/interpolation"
)

// NewConfig loads, defaults and validates a configuration file. The
// format is chosen by extension: .toml, or .json.
func NewConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}

	cfg, err := NewConfigFromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFailedToLoadConfig, path, err)
	}
	return cfg, nil
}

// NewConfigFromBytes parses configuration data in the named format
// (".toml" or ".json"), expands ${ENV_VAR:default} references, applies
// defaults, and validates.
func NewConfigFromBytes(data []byte, format string) (*Config, error) {
	expanded, err := interpolation.ExpandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	data = []byte(expanded)

	cfg := &Config{}

	switch strings.ToLower(format) {
	case ".toml", "toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
	case ".json", "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
