// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authd/authd/internal/auth"
	"github.com/authd/authd/internal/auth/postgres"
	"github.com/authd/authd/internal/observability"
	"github.com/authd/authd/internal/store"
)

// Deps contains injectable dependencies for the authd commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// DatabaseFactory opens the database.
	// Default: store.Connect with PostgreSQL repositories
	DatabaseFactory func(ctx context.Context, cfg store.PoolConfig) (Database, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string

	// LogOutput receives log records.
	// Default: os.Stderr
	LogOutput io.Writer
}

// withDefaults returns a copy of d with nil fields filled in.
func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = connectDatabase
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	if out.LogOutput == nil {
		out.LogOutput = os.Stderr
	}
	return &out
}

// Database is an open backing store for the auth repositories.
type Database interface {
	Stores() auth.Stores
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// pgDatabase is the PostgreSQL Database.
type pgDatabase struct {
	pool *pgxpool.Pool
}

func connectDatabase(ctx context.Context, cfg store.PoolConfig) (Database, error) {
	pool, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &pgDatabase{pool: pool}, nil
}

func (d *pgDatabase) Stores() auth.Stores { return postgres.NewStores(d.pool) }

func (d *pgDatabase) Ping(ctx context.Context) error {
	//nolint:wrapcheck // callers wrap with their own operation context
	return d.pool.Ping(ctx)
}

func (d *pgDatabase) Close() { d.pool.Close() }
