// Package migration creates and upgrades the database schema.
package migration

import (
	"fmt"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/persistence/models"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

const (
	ToolAuto          = "auto"
	ToolGoose         = "goose"
	ToolGolangMigrate = "golang-migrate"
)

// Manager runs one strategy over every registered model.
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks a strategy for the dialect. SQLite always auto-migrates;
// PostGIS needs the extension scripts first.
func NewManager(db *gorm.DB, tool, scriptsRoot string) (*Manager, error) {
	var strategy Strategy

	if db.Dialector.Name() != "postgres" {
		strategy = NewGormAutoMigrateStrategy()
	} else {
		switch strings.ToLower(tool) {
		case "", ToolGoose:
			strategy = NewGooseStrategy(filepath.Join(scriptsRoot, "goose"), "postgres")
		case ToolGolangMigrate:
			abs, err := filepath.Abs(filepath.Join(scriptsRoot, "migrate"))
			if err != nil {
				return nil, err
			}
			strategy = NewGolangMigrateStrategy(abs)
		case ToolAuto:
			strategy = NewGormAutoMigrateStrategy()
		default:
			return nil, fmt.Errorf("unknown migration tool %q", tool)
		}
	}

	return NewManagerWithStrategy(strategy), nil
}

func NewManagerWithStrategy(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.NewLogger().With("component", "migration.manager"),
	}
}

// Migrate brings the schema for every model up to date.
func (m *Manager) Migrate(db *gorm.DB) error {
	all := models.AllModels()
	m.logger.Infow("starting database migration",
		"strategy", m.strategy.GetName(),
		"models_count", len(all))

	if err := m.strategy.Migrate(db, all...); err != nil {
		m.logger.Errorw("migration failed",
			"strategy", m.strategy.GetName(),
			"error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("database migration completed", "strategy", m.strategy.GetName())
	return nil
}

func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}
