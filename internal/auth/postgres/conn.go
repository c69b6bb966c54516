// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/authd/authd/internal/auth"
)

// Pool abstracts *pgxpool.Pool so repositories can run against pgxmock.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier is an interface that abstracts query execution for both the pool
// and pgx.Tx. This allows repository methods to work within or outside of
// transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey stores the active pgx.Tx in a context.
type txKey struct{}

// conn resolves the querier for a call: the transaction in ctx if there is
// one, otherwise the pool.
type conn struct {
	pool Pool
}

func (c conn) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return c.pool
}

// NewStores returns every auth repository backed by pool, plus a Transactor
// whose transactions they join.
func NewStores(pool *pgxpool.Pool) auth.Stores {
	return newStores(pool)
}

func newStores(pool Pool) auth.Stores {
	return auth.Stores{
		Identities:  NewIdentityRepository(pool),
		Credentials: NewCredentialRepository(pool),
		Sessions:    NewSessionRepository(pool),
		Roles:       NewRoleRepository(pool),
		Tx:          NewTransactor(pool),
	}
}

// wrapWriteErr maps unique and foreign key violations to
// auth.ErrConstraintViolation and wraps everything else with code.
func wrapWriteErr(err error, code, operation string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgErr.Code == pgerrcode.UniqueViolation || pgErr.Code == pgerrcode.ForeignKeyViolation) {
		return oops.Code(auth.CodeConstraintViolation).
			With("operation", operation).
			With("constraint", pgErr.ConstraintName).
			Wrap(errors.Join(auth.ErrConstraintViolation, err))
	}
	return oops.Code(code).
		With("operation", operation).
		Wrap(err)
}
