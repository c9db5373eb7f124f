package dbpool

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/logger"
)

// Connect dials dsn via pgxpool, builds a Pool around it, and starts the
// reaper. MinConns/MaxConns on the underlying pgxpool.Pool are left at
// cfg.Min/cfg.Max so pgx itself also respects the warm-pool floor.
func Connect(ctx context.Context, dsn string, cfg Config, listener coretypes.PoolListener) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("dbpool: parse dsn: %w", err)
	}
	if cfg.Min > 0 {
		poolConfig.MinConns = int32(cfg.Min)
	}
	if cfg.Max > 0 {
		poolConfig.MaxConns = int32(cfg.Max)
	}

	underlying, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("dbpool: create pool: %w", err)
	}

	if err := underlying.Ping(ctx); err != nil {
		underlying.Close()
		return nil, fmt.Errorf("dbpool: ping: %w", err)
	}

	logger.Info("dbpool: connected", "min", cfg.Min, "max", cfg.Max)

	p := New(cfg, underlying, listener)
	p.Start()
	return p, nil
}
