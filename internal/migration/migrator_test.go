package migration

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/florex/internal/config"
	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/entity"
)

func newMigrator(t *testing.T) (*Migrator, *database.Connections) {
	t.Helper()
	cfg := config.Config{Database: config.Database{
		Driver:    "sqlite",
		WriterDSN: "file:" + filepath.Join(t.TempDir(), "florex.db"),
	}}
	conns, err := database.Open(cfg.Database, nil, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })

	m, err := New(cfg, conns, nil)
	require.NoError(t, err)
	return m, conns
}

func TestEmbeddedMigrationsRoundTrip(t *testing.T) {
	m, conns := newMigrator(t)
	ctx := context.Background()

	require.NoError(t, m.Up(ctx))
	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.True(t, st.Applied, st.Path)
	}

	var tables []string
	require.NoError(t, conns.Writer.NewSelect().
		ColumnExpr("name").
		TableExpr("sqlite_master").
		Where("type = 'table'").
		Where("name IN (?, ?)", "exportaciones", "pedidos_venta").
		Scan(ctx, &tables))
	assert.ElementsMatch(t, []string{"exportaciones", "pedidos_venta"}, tables)

	require.NoError(t, m.Up(ctx), "second up is a no-op")

	require.NoError(t, m.Down(ctx, 1, false))
	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	require.NoError(t, m.Down(ctx, 0, true))
	version, err = m.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)

	require.NoError(t, m.Down(ctx, 1, false), "nothing left to roll back")
}

func TestGooseDialect(t *testing.T) {
	for _, driver := range []string{"postgres", "pg", "mysql", "sqlite", "sqlite3"} {
		_, err := gooseDialect(driver)
		assert.NoError(t, err, driver)
	}
	_, err := gooseDialect("oracle")
	assert.Error(t, err)
}

func TestMigratedSchemaGeneratesKeys(t *testing.T) {
	m, conns := newMigrator(t)
	ctx := context.Background()
	require.NoError(t, m.Up(ctx))

	users := []*entity.User{
		{Name: "ANA MORA", Email: "ana@florex.test"},
		{Name: "LUIS SOTO", Email: "luis@florex.test"},
	}
	for _, u := range users {
		_, err := conns.Writer.NewInsert().Model(u).Exec(ctx)
		require.NoError(t, err)
		require.NotZero(t, u.ID)
	}
	assert.NotEqual(t, users[0].ID, users[1].ID)

	batch := &entity.ExportBatch{Date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), UserID: users[0].ID, Status: entity.ExportStatusProcessed}
	_, err := conns.Writer.NewInsert().Model(batch).Exec(ctx)
	require.NoError(t, err)
	require.NotZero(t, batch.ID)

	var stored []int64
	require.NoError(t, conns.Writer.NewSelect().Model((*entity.User)(nil)).Column("id").Order("id").Scan(ctx, &stored))
	assert.Equal(t, []int64{users[0].ID, users[1].ID}, stored)
}

func TestEmbeddedSourcePerDialect(t *testing.T) {
	for _, dialect := range []goose.Dialect{goose.DialectPostgres, goose.DialectMySQL, goose.DialectSQLite3} {
		t.Run(string(dialect), func(t *testing.T) {
			fsys, err := source(dialect, "")
			require.NoError(t, err)
			files, err := fs.Glob(fsys, "*.sql")
			require.NoError(t, err)
			assert.Equal(t, []string{"00001_master_data.sql", "00002_exports_and_orders.sql"}, files)
		})
	}

	_, err := source(goose.DialectClickHouse, "")
	assert.Error(t, err)
}
