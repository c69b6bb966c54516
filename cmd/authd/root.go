// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/authd/authd/internal/config"
	"github.com/authd/authd/internal/logging"
	"github.com/authd/authd/internal/store"
	"github.com/authd/authd/internal/xdg"
)

// cli is shared by the root command and its subcommands.
type cli struct {
	configFile string
	deps       *Deps
}

// NewRootCmd creates the root command for the authd CLI. deps may be nil.
func NewRootCmd(deps *Deps) *cobra.Command {
	c := &cli{deps: deps.withDefaults()}

	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - identity, credential and session service",
		Long: `authd registers identities with email and password credentials,
signs them in with opaque session tokens, and tracks their roles.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&c.configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/authd/config.yaml)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(c.newServeCmd())
	cmd.AddCommand(c.newMigrateCmd())
	cmd.AddCommand(c.newSweepCmd())

	return cmd
}

// setup loads the configuration for cmd and builds its logger.
func (c *cli) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := c.configFile
	if path == "" {
		path = xdg.DefaultConfigFile(c.deps.Getenv)
	}
	cfg, err := config.Load(path, cmd.Flags(), c.deps.Getenv)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{
		Version: cmd.Root().Version,
		Format:  cfg.Log.Format,
		Writer:  c.deps.LogOutput,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// poolConfig maps the database settings onto store.PoolConfig.
func poolConfig(cfg *config.Config, logger *slog.Logger) store.PoolConfig {
	return store.PoolConfig{
		URL:            cfg.Database.URL,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		Retries:        cfg.Database.ConnectRetries,
		Logger:         logger,
	}
}
