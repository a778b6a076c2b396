// Package db opens the durability sink's Postgres connection pool, the way
// the teacher's own internal/db package did, but taking its DSN and pool
// size from the loaded config instead of reading the environment directly.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cbasnet001/order-matching-system/internal/config"
)

// NewConnection builds a connection pool for cfg's DSN and pool size.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if cfg.PoolMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.PoolMaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	return pool, nil
}
