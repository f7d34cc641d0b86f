package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cityinfra/trafficcontrol/internal/shared/constants"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func TestManager_SQLiteAutoMigrates(t *testing.T) {
	gdb := openSQLite(t)

	m, err := NewManager(gdb, ToolGoose, "scripts")
	require.NoError(t, err)
	assert.Equal(t, "gorm_auto_migrate", m.GetStrategy().GetName())

	require.NoError(t, m.Migrate(gdb))
	for _, table := range []string{constants.TablePlans, constants.TableUsers, "traffic_sign_plans", "traffic_sign_plan_replacements"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	// running twice is a no-op
	require.NoError(t, m.Migrate(gdb))
}

func TestGooseStrategy_AppliesScripts(t *testing.T) {
	gdb := openSQLite(t)
	dir := t.TempDir()
	script := "-- +goose Up\nCREATE TABLE marker (id INTEGER PRIMARY KEY);\n\n-- +goose Down\nDROP TABLE marker;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00001_marker.sql"), []byte(script), 0o644))

	s := NewGooseStrategy(dir, "sqlite3")
	require.NoError(t, s.Migrate(gdb))
	assert.True(t, gdb.Migrator().HasTable("marker"))

	v, err := s.GetVersion(gdb)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestNewManager_UnknownToolIgnoredOffPostgres(t *testing.T) {
	gdb := openSQLite(t)
	_, err := NewManager(gdb, "flyway", "scripts")
	assert.NoError(t, err)
}
