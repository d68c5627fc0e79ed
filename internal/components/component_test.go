package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellwarden/cellwarden/internal/config"
)

func TestBuild(t *testing.T) {
	comp, err := Build("orders_db", config.ComponentConfig{
		"type":     "database",
		"host":     "db.local",
		"user":     "warden",
		"database": "orders",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "orders_db", comp.Name())
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := Build("mystery", config.ComponentConfig{"type": "carrier_pigeon"}, nil)
	assert.ErrorIs(t, err, ErrUnknownComponentType)
}

func TestBuildAll(t *testing.T) {
	comps, err := BuildAll(map[string]config.ComponentConfig{
		"orders_db": {"type": "database", "host": "db.local"},
		"stats_db":  {"type": "database", "host": "stats.local"},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, comps, 2)
	assert.Equal(t, "orders_db", comps["orders_db"].Name())
}

func TestBuildAll_FailureAborts(t *testing.T) {
	_, err := BuildAll(map[string]config.ComponentConfig{
		"orders_db": {"type": "database", "host": "db.local"},
		"broken":    {"type": "database"},
	}, nil)
	assert.Error(t, err)
}

func TestNewDatabase_RequiresHost(t *testing.T) {
	_, err := NewDatabase("orders_db", config.ComponentConfig{"type": "database"}, nil)
	assert.ErrorIs(t, err, ErrComponentInitialization)
}
