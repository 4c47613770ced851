package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // cgo-free sqlite driver
)

// ErrUnknownDriver is returned for a database driver other than sqlite or
// postgres.
var ErrUnknownDriver = errors.New("unknown database driver")

// Driver names a supported database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver resolves a driver name.
func ParseDriver(raw string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, raw)
	}
}

// Config holds database configuration
type Config struct {
	Driver         Driver
	Path           string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ConnectTimeout time.Duration
}

// DSN renders the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// DefaultConfig returns a default database configuration
func DefaultConfig() Config {
	return Config{
		Driver:         DriverSQLite,
		Path:           "peregrine.db",
		Host:           "localhost",
		Port:           5432,
		User:           "postgres",
		Password:       "admin",
		DBName:         "peregrine",
		SSLMode:        "disable",
		ConnectTimeout: 30 * time.Second,
	}
}

// Connection wraps the database handle together with the SQL dialect it
// speaks.
type Connection struct {
	DB      *sql.DB
	Dialect Dialect

	pool *pgxpool.Pool
}

// NewConnection opens and pings the configured database. Postgres connects are
// retried with exponential backoff until ConnectTimeout elapses.
func NewConnection(ctx context.Context, config Config, logger *zap.SugaredLogger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	switch config.Driver {
	case DriverSQLite, "":
		return openSQLite(ctx, config, logger)
	case DriverPostgres:
		return openPostgres(ctx, config, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, config.Driver)
	}
}

func openSQLite(ctx context.Context, config Config, logger *zap.SugaredLogger) (*Connection, error) {
	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Pragmas are per connection, so keep exactly one.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	logger.Debugw("Opened sqlite database", "path", config.Path)
	return &Connection{DB: db, Dialect: SQLiteDialect}, nil
}

func openPostgres(ctx context.Context, config Config, logger *zap.SugaredLogger) (*Connection, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings - more conservative to avoid connection issues
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Minute * 30
	poolConfig.MaxConnIdleTime = time.Minute * 5
	poolConfig.HealthCheckPeriod = time.Minute

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ConnectTimeout
	}

	attempt := 0
	pool, err := backoff.Retry(ctx, func() (*pgxpool.Pool, error) {
		attempt++
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create connection pool: %w", err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			logger.Warnw("Database not reachable yet", "host", config.Host, "attempt", attempt, "error", err)
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return pool, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
	)
	if err != nil {
		return nil, err
	}

	logger.Debugw("Connected to postgres", "host", config.Host, "port", config.Port, "dbname", config.DBName)
	return &Connection{DB: stdlib.OpenDBFromPool(pool), Dialect: PostgresDialect, pool: pool}, nil
}

// Close closes the database handle and the underlying pool, if any.
func (c *Connection) Close() error {
	var err error
	if c.DB != nil {
		err = c.DB.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

// WithTx executes a function within a database transaction
func (c *Connection) WithTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
