// Package postgres owns the database connections. Domain stores use the pgx
// pool; the audit outbox keeps a database/sql handle because it shares
// transactions with callers via pkg/platform/tx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"shahid/internal/platform/config"
)

// DB bundles the two database handles over the same DSN.
type DB struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Connect opens both handles and verifies connectivity.
// Returns nil if the DSN is empty (Postgres not configured).
func Connect(ctx context.Context, cfg config.PostgresConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = cfg.ConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open database/sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		pool.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &DB{Pool: pool, SQL: sqlDB}, nil
}

// Close releases both handles.
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.Pool.Close()
	_ = db.SQL.Close()
}

// Health checks connectivity on the pgx pool.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
