package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deanwagman/peregrine/internal/db"
)

func newTestConnection(t *testing.T) *db.Connection {
	t.Helper()

	ctx := context.Background()
	cfg := db.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "peregrine.db")

	require.NoError(t, db.MigrateUp(ctx, cfg, nil))
	conn, err := db.NewConnection(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
