// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/authd/authd/internal/store"
)

func TestMigrator_FullCycle(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx) //nolint:errcheck // best-effort cleanup

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	defer migrator.Close() //nolint:errcheck // best-effort cleanup

	status, err := migrator.Status()
	require.NoError(t, err)
	assert.Zero(t, status.Version)
	assert.NotEmpty(t, status.Pending)

	require.NoError(t, migrator.Up())

	status, err = migrator.Status()
	require.NoError(t, err)
	assert.False(t, status.Dirty)
	assert.Empty(t, status.Pending)
	latest := status.Version

	require.NoError(t, migrator.Steps(-1))
	version, _, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, latest-1, version)

	require.NoError(t, migrator.Steps(1))
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, latest, version)

	require.NoError(t, migrator.Down())
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	// Running Up twice is a no-op the second time.
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Up())
}
