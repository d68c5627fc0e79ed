package scenario

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "restart.json",
		`{"name": "restart_io", "trigger": {"type": "manual"}, "actions": []}`)

	s, err := LoadFile(filepath.Join(dir, "restart.json"))
	require.NoError(t, err)
	assert.Equal(t, "restart_io", s.Name)
	assert.Equal(t, TriggerManual, s.Trigger.Type)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "bad.json", `{"name": "", "trigger": {"type": "manual"}}`)

	_, err := LoadFile(filepath.Join(dir, "bad.json"))
	assert.ErrorIs(t, err, ErrScenarioValidation)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadDirectory_SkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "good.json",
		`{"name": "good", "trigger": {"type": "manual"}, "actions": []}`)
	writeScenarioFile(t, dir, "broken.json", `{not json`)
	writeScenarioFile(t, dir, "notes.txt", `ignored`)

	scenarios := LoadDirectory(dir, slog.Default())
	require.Len(t, scenarios, 1)
	assert.Equal(t, "good", scenarios[0].Name)
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	assert.Empty(t, LoadDirectory("/no/such/dir", slog.Default()))
	assert.Empty(t, LoadDirectory("", slog.Default()))
}

func TestLoadAll_UserOverridesBuiltin(t *testing.T) {
	builtin := t.TempDir()
	user := t.TempDir()

	writeScenarioFile(t, builtin, "a.json",
		`{"name": "shared", "priority": 10, "trigger": {"type": "manual"}, "actions": []}`)
	writeScenarioFile(t, builtin, "b.json",
		`{"name": "builtin_only", "priority": 20, "trigger": {"type": "manual"}, "actions": []}`)
	writeScenarioFile(t, user, "a.json",
		`{"name": "shared", "priority": 1, "trigger": {"type": "manual"}, "actions": []}`)

	scenarios := LoadAll(builtin, user, slog.Default())
	require.Len(t, scenarios, 2)

	// The user copy of "shared" wins and its priority reorders the set.
	assert.Equal(t, "shared", scenarios[0].Name)
	assert.Equal(t, 1, scenarios[0].EffectivePriority())
	assert.Equal(t, "builtin_only", scenarios[1].Name)
}

func TestLoadAll_SortsByPriorityThenName(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "z.json",
		`{"name": "zeta", "priority": 5, "trigger": {"type": "manual"}, "actions": []}`)
	writeScenarioFile(t, dir, "a.json",
		`{"name": "alpha", "priority": 5, "trigger": {"type": "manual"}, "actions": []}`)
	writeScenarioFile(t, dir, "m.json",
		`{"name": "mid", "trigger": {"type": "manual"}, "actions": []}`)

	scenarios := LoadAll(dir, "", slog.Default())
	require.Len(t, scenarios, 3)
	assert.Equal(t, "alpha", scenarios[0].Name)
	assert.Equal(t, "zeta", scenarios[1].Name)
	assert.Equal(t, "mid", scenarios[2].Name, "default priority sorts last")
}
