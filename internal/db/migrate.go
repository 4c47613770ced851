package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Migrator applies and reverts the bootstrap schema.
type Migrator struct {
	migrate *migrate.Migrate
	conn    *Connection
	logger  *zap.SugaredLogger
}

// NewMigrator opens a dedicated connection for migrations. The migrate
// drivers close the handle they are given, so it is never shared with the
// repositories.
func NewMigrator(ctx context.Context, config Config, logger *zap.SugaredLogger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	conn, err := NewConnection(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	m, err := newMigrate(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Migrator{migrate: m, conn: conn, logger: logger}, nil
}

func newMigrate(conn *Connection) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations/"+conn.Dialect.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := databaseDriver(conn.DB, conn.Dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, conn.Dialect.String(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

func databaseDriver(db *sql.DB, dialect Dialect) (database.Driver, error) {
	if dialect == PostgresDialect {
		return migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	return migratesqlite.WithInstance(db, &migratesqlite.Config{})
}

// Up applies all pending migrations. It is a no-op when the schema is current.
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	m.logVersion()
	return nil
}

// Down reverts every migration.
func (m *Migrator) Down() error {
	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}
	m.logVersion()
	return nil
}

// Version reports the current schema version.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Migrator) logVersion() {
	version, dirty, err := m.Version()
	switch {
	case err != nil:
		m.logger.Warnw("Unable to get migration version", "error", err)
	case dirty:
		m.logger.Warnw("Database is in a dirty state", "version", version)
	default:
		m.logger.Debugw("Migrations applied", "version", version)
	}
}

// Close releases the migration connection.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if dbErr != nil {
		return fmt.Errorf("failed to close migration database: %w", dbErr)
	}
	if sourceErr != nil {
		return fmt.Errorf("failed to close migration source: %w", sourceErr)
	}
	// The driver already closed conn.DB; release the pool behind it.
	if m.conn.pool != nil {
		m.conn.pool.Close()
	}
	return nil
}

// MigrateUp is a convenience wrapper used by commands that need the schema in
// place before touching the store.
func MigrateUp(ctx context.Context, config Config, logger *zap.SugaredLogger) error {
	m, err := NewMigrator(ctx, config, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil && logger != nil {
			logger.Warnw("Failed to close migrator", "error", err)
		}
	}()
	return m.Up()
}
