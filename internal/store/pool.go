// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig controls how Connect opens the database pool.
type PoolConfig struct {
	// URL is a PostgreSQL connection string.
	URL string
	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration
	// Retries is the number of extra attempts after the first failure.
	Retries uint64
	// Backoff is the initial delay between attempts. It doubles per attempt
	// and is capped at maxBackoff.
	Backoff time.Duration
	Logger  *slog.Logger
}

const (
	defaultBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pgx pool and waits until the database answers a ping,
// retrying with exponential backoff. A malformed URL fails immediately.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitReady(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitReady pings p until it succeeds or the retry budget is spent.
func waitReady(ctx context.Context, p pinger, cfg PoolConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Backoff
	if base <= 0 {
		base = defaultBackoff
	}
	backoff := retry.WithMaxRetries(cfg.Retries, retry.WithCappedDuration(maxBackoff, retry.NewExponential(base)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
