// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authd/authd/internal/auth"
)

func (c *cli) newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions once",
		Long: `Delete every expired session row and exit. Expired sessions are already
rejected at validation; sweeping only reclaims storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.setup(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := c.deps.DatabaseFactory(ctx, poolConfig(cfg, logger))
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()

			sessions, err := auth.NewSessionManager(db.Stores().Sessions, auth.WithLogger(logger))
			if err != nil {
				return err
			}
			n, err := sessions.PruneExpired(ctx)
			if err != nil {
				return err
			}
			auth.SessionsPruned.Add(float64(n))

			logger.InfoContext(ctx, "pruned expired sessions", "count", n)
			cmd.Printf("Deleted %d expired sessions\n", n)
			return nil
		},
	}
}
