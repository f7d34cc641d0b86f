package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type row struct {
	ID                  uint `gorm:"primaryKey"`
	Name                string
	IsActive            bool
	ValidityPeriodStart *time.Time
	ValidityPeriodEnd   *time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&row{}))
	return db
}

func count(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&row{}).Count(&n).Error)
	return n
}

func TestRunInTransaction_CommitAndRollback(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(ctx context.Context) error {
		return tm.GetTx(ctx).Create(&row{Name: "kept", IsActive: true}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, tm.GetTx(ctx).Create(&row{Name: "dropped"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), count(t, db))
}

func TestRunInTransaction_RollsBackOnPanic(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)

	assert.Panics(t, func() {
		_ = tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
			require.NoError(t, tm.GetTx(ctx).Create(&row{Name: "dropped"}).Error)
			panic("unexpected")
		})
	})
	assert.Equal(t, int64(0), count(t, db))
}

func TestRunInTransaction_NestedReusesOuter(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTransactionManager(db)

	err := tm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		if err := tm.GetTx(ctx).Create(&row{Name: "outer"}).Error; err != nil {
			return err
		}
		return tm.RunInTransaction(ctx, func(inner context.Context) error {
			return tm.GetTx(inner).Create(&row{Name: "inner"}).Error
		})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count(t, db))
	assert.False(t, InTransaction(context.Background()))
}

func TestValidAtScope(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	rows := []row{
		{Name: "open"},
		{Name: "started", ValidityPeriodStart: &past},
		{Name: "not yet", ValidityPeriodStart: &future},
		{Name: "ended", ValidityPeriodEnd: &past},
		{Name: "running", ValidityPeriodStart: &past, ValidityPeriodEnd: &future},
	}
	require.NoError(t, db.Create(&rows).Error)

	var names []string
	require.NoError(t, db.Model(&row{}).Scopes(ValidAt(now)).Order("id").Pluck("name", &names).Error)

	assert.Equal(t, []string{"open", "started", "running"}, names)
}
