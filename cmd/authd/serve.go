// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authd/authd/internal/config"
	"github.com/authd/authd/internal/observability"
	"github.com/authd/authd/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the observability server.
const shutdownTimeout = 5 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the auth services",
		Long: `Connect to the database, optionally apply pending migrations, start the
expired session sweeper and the metrics/health server, then run until
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runServe(ctx, cfg, logger, c.deps); err != nil {
				errutil.LogError(ctx, logger, "serve failed", err)
				return err
			}
			return nil
		},
	}
}

// runServe runs until ctx is cancelled or the observability server fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Deps) error {
	logger.InfoContext(ctx, "starting authd",
		"metrics_addr", cfg.Metrics.Addr,
		"auto_migrate", cfg.Database.AutoMigrate,
	)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(ctx, cfg.Database.URL, logger, deps); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, poolConfig(cfg, logger))
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.InfoContext(ctx, "connected to database")

	a, err := newApp(cfg, db.Stores(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.sweeper != nil {
		a.sweeper.Start(ctx)
		defer a.sweeper.Stop()
		logger.InfoContext(ctx, "session sweeper started", "interval", cfg.Sessions.SweepInterval.String())
	}

	if cfg.Metrics.Addr != "" {
		obs := deps.ObservabilityServerFactory(cfg.Metrics.Addr, observability.PingReadiness(db), logger)
		errCh, err := obs.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := obs.Stop(shutdownCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, errCh, "observability", logger)
	}

	logger.InfoContext(ctx, "authd ready")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// autoMigrate applies pending migrations before the pool is opened.
func autoMigrate(ctx context.Context, url string, logger *slog.Logger, deps *Deps) error {
	migrator, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.InfoContext(ctx, "migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when the server reports an error. It exits
// when the channel closes or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
