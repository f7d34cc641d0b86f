package spatial

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cityinfra/trafficcontrol/internal/shared/db"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	return gdb, mock
}

func newMockPostGIS(t *testing.T) (*PostGIS, sqlmock.Sqlmock) {
	t.Helper()
	gdb, mock := newMockGorm(t)
	return NewPostGIS(gdb, 3879, testBounds), mock
}

func TestPostGIS_Within(t *testing.T) {
	p, mock := newMockPostGIS(t)
	point := g("SRID=3879;POINT Z (25496000 6673000 0)")
	area := g("SRID=3879;MULTIPOLYGON (((25495000 6672000, 25497000 6672000, 25497000 6674000, 25495000 6672000)))")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ST_Within(ST_GeomFromEWKT($1), ST_GeomFromEWKT($2))")).
		WithArgs(point.String(), area.String()).
		WillReturnRows(sqlmock.NewRows([]string{"st_within"}).AddRow(true))

	ok, err := p.Within(context.Background(), point, area)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_WithinEmptySkipsQuery(t *testing.T) {
	p, mock := newMockPostGIS(t)

	ok, err := p.Within(context.Background(), g("POINT (1 1)"), g("MULTIPOLYGON EMPTY"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_Distance(t *testing.T) {
	p, mock := newMockPostGIS(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ST_Distance(ST_GeomFromEWKT($1), ST_GeomFromEWKT($2))")).
		WillReturnRows(sqlmock.NewRows([]string{"st_distance"}).AddRow(4.25))

	d, err := p.Distance(context.Background(), g("POINT (0 0)"), g("POINT (3 3)"))
	require.NoError(t, err)
	assert.InDelta(t, 4.25, d, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_Validate(t *testing.T) {
	p, mock := newMockPostGIS(t)
	bowTie := g("POLYGON ((0 0, 10 10, 10 0, 0 10, 0 0))")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ST_IsValid(g) AS valid, ST_IsValidReason(g) AS reason")).
		WithArgs(bowTie.String()).
		WillReturnRows(sqlmock.NewRows([]string{"valid", "reason"}).AddRow(false, "Self-intersection[5 5]"))

	valid, reason, err := p.Validate(context.Background(), bowTie)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, "Self-intersection[5 5]", reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGIS_QueryError(t *testing.T) {
	p, mock := newMockPostGIS(t)

	mock.ExpectQuery("ST_Equals").WillReturnError(assert.AnError)

	_, err := p.Equals(context.Background(), g("POINT (0 0)"), g("POINT (0 0)"))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "ST_Equals")
}

func TestPostGIS_DWithinScope(t *testing.T) {
	p, _ := newMockPostGIS(t)
	pred := p.DWithin("location", g("SRID=3879;POINT (25496000 6673000)"), 2)

	sql := p.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []map[string]any
		return tx.Table("traffic_sign_reals").Scopes(pred.Scope).Find(&rows)
	})
	assert.Contains(t, sql, "ST_DWithin(location, ST_GeomFromEWKT('SRID=3879;POINT")
	assert.True(t, pred.Match(g("POINT (0 0)")))
}

func TestPostGIS_RunsOnContextTransaction(t *testing.T) {
	p, poolMock := newMockPostGIS(t)
	txDB, txMock := newMockGorm(t)
	point := g("SRID=3879;POINT Z (25496000 6673000 0)")

	txMock.ExpectBegin()
	txMock.ExpectQuery(regexp.QuoteMeta("SELECT ST_Distance(ST_GeomFromEWKT($1), ST_GeomFromEWKT($2))")).
		WillReturnRows(sqlmock.NewRows([]string{"st_distance"}).AddRow(0.0))
	txMock.ExpectQuery(regexp.QuoteMeta("SELECT ST_IsValid(g) AS valid, ST_IsValidReason(g) AS reason")).
		WithArgs(point.String()).
		WillReturnRows(sqlmock.NewRows([]string{"valid", "reason"}).AddRow(true, ""))
	txMock.ExpectCommit()

	err := db.NewTransactionManager(txDB).RunInTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := p.Distance(ctx, point, point); err != nil {
			return err
		}
		valid, _, err := p.Validate(ctx, point)
		assert.True(t, valid)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, txMock.ExpectationsWereMet())
	assert.NoError(t, poolMock.ExpectationsWereMet())
}
