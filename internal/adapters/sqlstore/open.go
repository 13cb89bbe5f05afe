package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// PoolOptions configures the bounded connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open builds the connection pool, verifies it with a ping and creates the
// schema if it does not exist. The caller owns the returned *sql.DB.
func Open(ctx context.Context, dialect Dialect, dsn string, opts PoolOptions) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	// SQLite allows a single writer; serialize at the pool instead of
	// surfacing "database is locked".
	if dialect.Driver == SQLite.Driver {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := EnsureSchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the readings table and its latest-first index.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, dialect.schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
