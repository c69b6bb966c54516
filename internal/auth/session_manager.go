// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Clock returns the current time. Tests substitute a fixed or advancing clock.
type Clock func() time.Time

// SessionManager issues, validates and revokes bearer sessions.
//
// Expiry is evaluated lazily on every Validate against the manager's clock;
// no background process is needed for a session to stop being valid.
type SessionManager struct {
	sessions SessionRepository
	now      Clock
}

// NewSessionManager creates a SessionManager backed by sessions.
// Only the WithClock option is consulted.
func NewSessionManager(sessions SessionRepository, opts ...Option) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("sessions repository is required")
	}
	o := buildOptions(opts)
	return &SessionManager{
		sessions: sessions,
		now:      o.now,
	}, nil
}

// Issue creates a session for identityID that expires ttl from now.
// A non-positive ttl selects DefaultSessionTTL.
// Returns the persisted session and the plaintext bearer token.
func (m *SessionManager) Issue(ctx context.Context, identityID ulid.ULID, ttl time.Duration) (*Session, string, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}

	now := m.now()
	session, err := NewSession(identityID, tokenHash, now, now.Add(ttl))
	if err != nil {
		return nil, "", err
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		failure, cause := recode("SESSION_CREATE_FAILED", err)
		return nil, "", failure.
			With("operation", "persist session").
			With("identity_id", identityID.String()).
			Wrap(cause)
	}

	return session, token, nil
}

// Validate returns the session for token if it exists and has not expired.
// A missing token and an expired token produce the same SESSION_NOT_FOUND
// error wrapping ErrNotFound.
func (m *SessionManager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, errSessionNotFound()
	}

	session, err := m.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errSessionNotFound()
		}
		failure, cause := recode("SESSION_VALIDATE_FAILED", err)
		return nil, failure.
			With("operation", "get session by token hash").
			Wrap(cause)
	}

	if !session.IsValidAt(m.now()) {
		return nil, errSessionNotFound()
	}

	return session, nil
}

// Revoke deletes the session for token. Revoking an unknown or already
// revoked token is a no-op. SessionsRevoked counts only removed rows.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	deleted, err := m.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		failure, cause := recode("SESSION_REVOKE_FAILED", err)
		return failure.
			With("operation", "delete session").
			Wrap(cause)
	}
	if deleted {
		SessionsRevoked.Inc()
	}
	return nil
}

// PruneExpired deletes every session that is no longer valid and returns
// how many were removed.
func (m *SessionManager) PruneExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		failure, cause := recode("SESSION_PRUNE_FAILED", err)
		return 0, failure.
			With("operation", "delete expired sessions").
			Wrap(cause)
	}
	return n, nil
}

func errSessionNotFound() error {
	return oops.Code(CodeSessionNotFound).Wrap(ErrNotFound)
}
