package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
name = "cellwarden"
address = "10.0.0.1"
port = 8080
tick_interval = "5s"
poll_timeout = "2s"

[clients.io_server]
address = "10.0.0.2"
port = 9090
groups = ["io"]

[clients.pos_bridge]
address = "10.0.0.3"
port = 9091
depends_on = ["io_server"]

[components.orders_db]
type = "database"
dsn = "postgres://localhost/orders"

[smtp]
host = "mail.internal"
port = 587
from = "cellwarden@example.com"
max_error_attempts = 3
`

func TestNewConfigFromBytes_TOML(t *testing.T) {
	cfg, err := NewConfigFromBytes([]byte(tomlConfig), ".toml")
	require.NoError(t, err)

	assert.Equal(t, "cellwarden", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, Duration(5*time.Second), cfg.TickInterval)
	assert.Equal(t, Duration(2*time.Second), cfg.PollTimeout)

	require.Contains(t, cfg.Clients, "io_server")
	assert.Equal(t, 9090, cfg.Clients["io_server"].Port)
	assert.Equal(t, []string{"io_server"}, cfg.Clients["pos_bridge"].DependsOn)

	require.Contains(t, cfg.Components, "orders_db")
	assert.Equal(t, "database", cfg.Components["orders_db"].Type())

	require.NotNil(t, cfg.SMTP)
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	assert.Equal(t, 3, cfg.SMTP.MaxErrorAttempts)
}

func TestNewConfigFromBytes_JSON(t *testing.T) {
	jsonConfig := `{
		"name": "cellwarden",
		"port": 8080,
		"tick_interval": 5,
		"clients": {
			"io_server": {"address": "10.0.0.2", "port": 9090}
		}
	}`

	cfg, err := NewConfigFromBytes([]byte(jsonConfig), ".json")
	require.NoError(t, err)
	assert.Equal(t, Duration(5*time.Second), cfg.TickInterval,
		"bare JSON numbers decode as seconds")
	assert.Contains(t, cfg.Clients, "io_server")
}

func TestNewConfigFromBytes_Defaults(t *testing.T) {
	cfg, err := NewConfigFromBytes([]byte(`port = 8080`), "toml")
	require.NoError(t, err)

	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, "127.0.0.1", cfg.Address)
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval)
	assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout)
	require.NotNil(t, cfg.MaxConcurrentScenarios)
	assert.Equal(t, DefaultMaxConcurrentScenarios, *cfg.MaxConcurrentScenarios)
	assert.NotNil(t, cfg.Clients)
	assert.NotNil(t, cfg.Components)
}

func TestNewConfigFromBytes_EnvInterpolation(t *testing.T) {
	t.Setenv("CW_PORT", "8099")

	cfg, err := NewConfigFromBytes([]byte(`
port = ${CW_PORT}
name = "${CW_NAME:fallback}"
`), ".toml")
	require.NoError(t, err)
	assert.Equal(t, 8099, cfg.Port)
	assert.Equal(t, "fallback", cfg.Name)
}

func TestNewConfigFromBytes_MissingEnvVar(t *testing.T) {
	_, err := NewConfigFromBytes([]byte(`name = "${CW_DEFINITELY_NOT_SET}"`), ".toml")
	require.ErrorIs(t, err, ErrFailedToLoadConfig)
	assert.Contains(t, err.Error(), "CW_DEFINITELY_NOT_SET")
}

func TestNewConfigFromBytes_UnsupportedFormat(t *testing.T) {
	_, err := NewConfigFromBytes([]byte(`port = 8080`), ".yaml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNewConfigFromBytes_MalformedTOML(t *testing.T) {
	_, err := NewConfigFromBytes([]byte(`port = = 8080`), ".toml")
	assert.Error(t, err)
}

func TestNewConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cellwarden.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlConfig), 0o644))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cellwarden", cfg.Name)
}

func TestNewConfig_MissingFile(t *testing.T) {
	_, err := NewConfig("/no/such/config.toml")
	assert.ErrorIs(t, err, ErrFailedToLoadConfig)
}

func TestConfig_ClientNamesAndGroups(t *testing.T) {
	cfg, err := NewConfigFromBytes([]byte(tomlConfig), ".toml")
	require.NoError(t, err)

	assert.Equal(t, []string{"io_server", "pos_bridge"}, cfg.ClientNames())

	groups := cfg.Groups()
	assert.Equal(t, []string{"io_server"}, groups["io"])
}
