package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "t.db")}

	require.NoError(t, Init(cfg))
	t.Cleanup(func() { _ = Close() })

	gdb := Get()
	require.NotNil(t, gdb)
	assert.Equal(t, "sqlite", gdb.Dialector.Name())

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
