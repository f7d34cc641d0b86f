// Package app builds the shared dependencies of every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cityinfra/trafficcontrol/internal/infrastructure/cache"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/config"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/database"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/spatial"
	"github.com/cityinfra/trafficcontrol/internal/infrastructure/storage"
	"github.com/cityinfra/trafficcontrol/internal/shared/biztime"
	"github.com/cityinfra/trafficcontrol/internal/shared/db"
	"github.com/cityinfra/trafficcontrol/internal/shared/logger"
)

// Flags are the persistent root flags.
type Flags struct {
	Env        string
	ConfigPath string
}

// Bind registers the persistent flags on the root command.
func (f *Flags) Bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.Env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&f.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
}

type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Tx      *db.TransactionManager
	Spatial spatial.Adapter
	Logger  logger.Interface

	redis   *redis.Client
	runLock *cache.RunLock
}

// Init loads config and opens the database. Close releases everything.
func Init(f *Flags) (*App, error) {
	env := f.Env
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env, f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Business timezone drives day and month boundaries.
	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb := database.Get()
	client := cache.NewRedisClient(cfg.Redis)
	return &App{
		Config:  cfg,
		DB:      gdb,
		Tx:      db.NewTransactionManager(gdb),
		Spatial: spatial.New(gdb, cfg.Spatial),
		Logger:  logger.NewLogger().With("environment", env),
		redis:   client,
		runLock: cache.NewRunLock(client),
	}, nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warnw("failed to close redis client", "error", err)
		}
	}
	if err := database.Close(); err != nil {
		a.Logger.Warnw("failed to close database", "error", err)
	}
	_ = logger.Sync()
}

// RunLock is nil-safe; without Redis every acquire succeeds.
func (a *App) RunLock() *cache.RunLock { return a.runLock }

// ReportSink returns the configured report destination.
func (a *App) ReportSink(ctx context.Context) (storage.ReportSink, error) {
	sink, err := storage.NewReportSink(ctx, a.Config.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to create report sink: %w", err)
	}
	return sink, nil
}

// Exclusive runs fn while holding the named run lock.
func (a *App) Exclusive(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lease, err := a.runLock.TryAcquire(ctx, name, ttl)
	if errors.Is(err, cache.ErrLockHeld) {
		return fmt.Errorf("%s is already running", name)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			a.Logger.Warnw("failed to release run lock", "name", name, "error", err)
		}
	}()
	return fn(ctx)
}
