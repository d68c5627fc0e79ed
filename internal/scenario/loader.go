package scenario

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadFile parses and validates one scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScenarioValidation, path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// LoadDirectory loads every *.json scenario file in a directory. Invalid
// files are logged and skipped; a missing directory yields no scenarios.
func LoadDirectory(dir string, logger *slog.Logger) []*Scenario {
	if logger == nil {
		logger = slog.Default().WithGroup("scenario.Loader")
	}
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Failed to read scenario directory", "dir", dir, "error", err)
		}
		return nil
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := LoadFile(path)
		if err != nil {
			logger.Warn("Skipping invalid scenario file", "path", path, "error", err)
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios
}

// LoadAll loads the built-in directory then the user directory. A user
// scenario with the same name replaces the built-in one.
func LoadAll(builtinDir, userDir string, logger *slog.Logger) []*Scenario {
	byName := map[string]*Scenario{}
	var order []string

	for _, s := range LoadDirectory(builtinDir, logger) {
		if _, seen := byName[s.Name]; !seen {
			order = append(order, s.Name)
		}
		byName[s.Name] = s
	}
	for _, s := range LoadDirectory(userDir, logger) {
		if _, seen := byName[s.Name]; seen {
			logger.Info("User scenario overrides built-in", "name", s.Name)
		} else {
			order = append(order, s.Name)
		}
		byName[s.Name] = s
	}

	out := make([]*Scenario, 0, len(byName))
	for _, name := range order {
		out = append(out, byName[name])
	}
	// Stable ordering: ascending priority, then name.
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].EffectivePriority(), out[j].EffectivePriority()
		if pi != pj {
			return pi < pj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
