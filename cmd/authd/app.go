// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"log/slog"

	"github.com/authd/authd/internal/auth"
	"github.com/authd/authd/internal/config"
)

// app holds the auth services built over one set of stores. serve only
// drives the sweeper; registrar, authenticator and directory are the
// handles a request transport mounts. Building them at startup checks the
// store wiring before authd reports ready.
type app struct {
	registrar     *auth.Registrar
	authenticator *auth.Authenticator
	directory     *auth.Directory
	sessions      *auth.SessionManager
	// sweeper is nil when sessions.sweep_interval is 0.
	sweeper *auth.Sweeper
}

func newApp(cfg *config.Config, stores auth.Stores, logger *slog.Logger) (*app, error) {
	opts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithSessionTTL(cfg.Sessions.TTL),
	}
	hasher := auth.NewArgon2idHasher(cfg.Hasher.MaxConcurrent)

	sessions, err := auth.NewSessionManager(stores.Sessions, opts...)
	if err != nil {
		return nil, err
	}
	registrar, err := auth.NewRegistrar(stores, hasher, opts...)
	if err != nil {
		return nil, err
	}
	authenticator, err := auth.NewAuthenticator(stores, sessions, hasher, opts...)
	if err != nil {
		return nil, err
	}
	directory, err := auth.NewDirectory(stores.Identities)
	if err != nil {
		return nil, err
	}

	a := &app{
		registrar:     registrar,
		authenticator: authenticator,
		directory:     directory,
		sessions:      sessions,
	}
	if cfg.Sessions.SweepInterval > 0 {
		if a.sweeper, err = auth.NewSweeper(sessions, cfg.Sessions.SweepInterval, opts...); err != nil {
			return nil, err
		}
	}
	return a, nil
}
