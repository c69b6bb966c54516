// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32                 // 32 bytes = 64 hex chars
	DefaultSessionTTL = 7 * 24 * time.Hour // 7 day absolute expiry
)

// Session is a bearer session tied to one identity.
// Only the SHA-256 hash of the bearer token is stored.
type Session struct {
	ID         ulid.ULID
	IdentityID ulid.ULID
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// NewSession creates a validated Session instance.
func NewSession(identityID ulid.ULID, tokenHash string, createdAt, expiresAt time.Time) (*Session, error) {
	if identityID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("created_at", createdAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}

	return &Session{
		ID:         ulid.Make(),
		IdentityID: identityID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		CreatedAt:  createdAt,
	}, nil
}

// IsValidAt reports whether the session is still active at t.
// A session is valid iff t is strictly before ExpiresAt.
func (s *Session) IsValidAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is returned to the caller; the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashSessionToken(token), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. Returns an error wrapping
	// ErrConstraintViolation if the token hash already exists.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash, expired or not.
	// Returns ErrNotFound if no session has the hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// DeleteByTokenHash removes the session with the given token hash and
	// reports whether a row was removed. Deleting a missing session is not
	// an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error)

	// DeleteExpired removes all sessions with expires_at <= now and returns
	// the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
