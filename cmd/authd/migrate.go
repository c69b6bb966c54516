// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long:  `Apply, roll back, or inspect the embedded schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Long: `Roll back the latest migration. With --all, roll back every migration,
dropping all auth tables and their data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				var err error
				if all {
					cmd.Println("Rolling back all migrations...")
					err = m.Down()
				} else {
					cmd.Println("Rolling back one migration...")
					err = m.Steps(-1)
				}
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withMigrator(cmd, func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "read migration status").Wrap(err)
				}
				if status.Version == 0 {
					cmd.Println("Version: none")
				} else {
					cmd.Printf("Version: %d (%s)\n", status.Version, status.Name)
				}
				if status.Dirty {
					cmd.Println("State: dirty (a migration failed part way; repair it manually)")
				}
				cmd.Printf("Applied: %s\n", formatVersions(status.Applied))
				cmd.Printf("Pending: %s\n", formatVersions(status.Pending))
				return nil
			})
		},
	})

	return cmd
}

// withMigrator loads the configuration, opens a Migrator and closes it after fn.
func (c *cli) withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	cfg, logger, err := c.setup(cmd)
	if err != nil {
		return err
	}

	migrator, err := c.deps.MigratorFactory(cfg.Database.URL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	return fn(migrator)
}

func formatVersions(versions []uint) string {
	if len(versions) == 0 {
		return "none"
	}
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
