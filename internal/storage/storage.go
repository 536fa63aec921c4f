package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bsanalyzer/internal/config"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrUnsupportedDriver is returned by Open for unknown drivers.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// sql.Open driver names per configured driver.
var driverNames = map[string]string{
	config.DriverSQLite:   "sqlite",
	config.DriverPostgres: "pgx",
}

// DB is an open database with the schema applied.
type DB struct {
	*sqlx.DB
	driver string
	logger *slog.Logger
}

// Open connects to the configured database, verifies the connection and
// applies the schema. Migrations are idempotent.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "storage"))

	driverName, ok := driverNames[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	conn, err := sqlx.Open(driverName, dsnFor(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == config.DriverSQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		maxOpen = 1
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}

	db := &DB{DB: conn, driver: cfg.Driver, logger: logger}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "Database ready", slog.String("driver", cfg.Driver))
	return db, nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string {
	return db.driver
}

func dsnFor(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite && cfg.DSN != ":memory:" {
		return "file:" + cfg.DSN + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return cfg.DSN
}

func (db *DB) migrate(ctx context.Context) error {
	statements := sqliteSchema
	if db.driver == config.DriverPostgres {
		statements = postgresSchema
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		company_id TEXT NOT NULL,
		approved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_company ON users (company_id)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pending_approvals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id TEXT UNIQUE NOT NULL,
		requested_by TEXT NOT NULL,
		requested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		company_id TEXT NOT NULL,
		approved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_company ON users (company_id)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pending_approvals (
		id BIGSERIAL PRIMARY KEY,
		company_id TEXT UNIQUE NOT NULL,
		requested_by TEXT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
