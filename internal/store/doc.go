// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package store owns the PostgreSQL schema and connection setup: embedded
// golang-migrate migrations and a pgx pool opened with retry.
package store
