package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "peregrine.db")
	return cfg
}

func tableExists(t *testing.T, conn *Connection, name string) bool {
	t.Helper()
	var count int
	err := conn.DB.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	m, err := NewMigrator(ctx, cfg, nil)
	require.NoError(t, err)

	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Applying again is a no-op.
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	conn, err := NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	assert.True(t, tableExists(t, conn, "property_catalog"))
	assert.True(t, tableExists(t, conn, "command_log"))
	require.NoError(t, conn.Close())

	m, err = NewMigrator(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, m.Down())
	require.NoError(t, m.Close())

	conn, err = NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	assert.False(t, tableExists(t, conn, "property_catalog"))
	assert.False(t, tableExists(t, conn, "command_log"))
}

func TestMigrateUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, MigrateUp(ctx, cfg, nil))
	require.NoError(t, MigrateUp(ctx, cfg, nil))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)
	require.NoError(t, MigrateUp(ctx, cfg, nil))

	conn, err := NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	err = conn.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO property_catalog (model, slug, column_name, type) VALUES ('bike', 'color', 'color', 'STRING')"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, conn.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM property_catalog").Scan(&count))
	assert.Zero(t, count)
}

func TestParseDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Driver
		wantErr bool
	}{
		{raw: "", want: DriverSQLite},
		{raw: "SQLite", want: DriverSQLite},
		{raw: "postgres", want: DriverPostgres},
		{raw: "pgx", want: DriverPostgres},
		{raw: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDriver(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownDriver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewConnectionRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := NewConnection(context.Background(), Config{Driver: "oracle"}, nil)
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestDialect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "?", SQLiteDialect.Placeholder(3))
	assert.Equal(t, "$3", PostgresDialect.Placeholder(3))
	assert.Equal(t, `"entity_bike"`, QuoteIdent("entity_bike"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}
