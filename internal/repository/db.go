// Package repository provides the Postgres-backed stores for session
// records and the roll audit journal, plus in-memory fallbacks for running
// without a database. The core actors only ever see the interfaces.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rgilks/spf-mcp-sub000/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS roll_journal (
    id        TEXT PRIMARY KEY,
    formula   TEXT NOT NULL,
    results   JSONB NOT NULL,
    wild      JSONB,
    modifier  INTEGER NOT NULL,
    total     INTEGER NOT NULL,
    seed      TEXT NOT NULL,
    hash      TEXT NOT NULL,
    rolled_at TIMESTAMPTZ NOT NULL
);
`

// NewDB opens a pgx pool and ensures the schema exists.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("database ready",
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return pool, nil
}
