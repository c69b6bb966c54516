// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authd/authd/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	conn
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{conn{pool: pool}}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO sessions (id, identity_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		session.ID.String(),
		session.IdentityID.String(),
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return oops.With("identity_id", session.IdentityID.String()).
			Wrap(wrapWriteErr(err, "SESSION_CREATE_FAILED", "insert session"))
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var (
		idStr         string
		identityIDStr string
		session       auth.Session
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, identity_id, token_hash, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash).Scan(&idStr, &identityIDStr, &session.TokenHash, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.ID, err = parseULID(idStr, "id"); err != nil {
		return nil, err
	}
	if session.IdentityID, err = parseULID(identityIDStr, "identity_id"); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteByTokenHash removes the session with the given token hash.
// Note: No ErrNotFound if no rows deleted - revoking twice is valid.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	result, err := r.q(ctx).Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteExpired removes all sessions with expires_at <= now and returns the count.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q(ctx).Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// parseULID parses a stored ULID column, tagging failures with the column name.
func parseULID(s, column string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("STORE_INVALID_ID").
			With("operation", "parse "+column).
			With(column, s).
			Wrap(err)
	}
	return id, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
