package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deanwagman/peregrine/internal/db"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "peregrine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, db.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "peregrine.db", cfg.Database.Path)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Audit.Enabled)
	assert.Empty(t, cfg.Source)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  host: db.internal
  port: 6543
  connect_timeout: 5s
log:
  level: debug
audit:
  enabled: false
`)
	t.Setenv("PEREGRINE_DATABASE_HOST", "override.internal")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, db.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PEREGRINE_DATABASE_DRIVER", "oracle")
		_, err := Load("")
		require.ErrorIs(t, err, db.ErrUnknownDriver)
	})
}
