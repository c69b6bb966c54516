// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identity is a registered principal. It carries no credential material.
type Identity struct {
	ID        ulid.ULID
	Name      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIdentity creates an Identity with a fresh ID. A blank name is stored as nil.
func NewIdentity(name string, now time.Time) *Identity {
	var namePtr *string
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		namePtr = &trimmed
	}
	return &Identity{
		ID:        ulid.Make(),
		Name:      namePtr,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credential is the email/password pair belonging to exactly one Identity.
type Credential struct {
	ID           ulid.ULID
	IdentityID   ulid.ULID
	Email        string
	PasswordHash string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCredential creates a validated Credential for identityID.
func NewCredential(identityID ulid.ULID, email, passwordHash string, now time.Time) (*Credential, error) {
	if identityID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("CREDENTIAL_INVALID_IDENTITY").Errorf("identity ID cannot be zero")
	}
	if email == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &Credential{
		ID:           ulid.Make(),
		IdentityID:   identityID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Profile is the caller-facing projection of an Identity joined with its
// credential email.
type Profile struct {
	ID        ulid.ULID
	Name      *string
	Email     string
	CreatedAt time.Time
}

// DisplayName returns the profile name, or "" when none was given.
func (p *Profile) DisplayName() string {
	if p.Name == nil {
		return ""
	}
	return *p.Name
}

// IdentityRepository manages identity persistence.
type IdentityRepository interface {
	// Create stores a new identity.
	Create(ctx context.Context, identity *Identity) error

	// GetProfile returns the identity joined with its credential email.
	// Returns ErrNotFound if either row is missing.
	GetProfile(ctx context.Context, id ulid.ULID) (*Profile, error)

	// Search returns at most limit profiles whose name or email contains
	// term, compared case-insensitively.
	Search(ctx context.Context, term string, limit int) ([]*Profile, error)
}

// CredentialRepository manages credential persistence.
// Email uniqueness is the only integrity invariant it enforces.
type CredentialRepository interface {
	// Create stores a new credential. Returns an error wrapping
	// ErrConstraintViolation if the email is already registered.
	Create(ctx context.Context, credential *Credential) error

	// GetByEmail retrieves a credential by exact email match.
	// Returns ErrNotFound if no credential has the given email.
	GetByEmail(ctx context.Context, email string) (*Credential, error)
}

// Transactor runs fn inside a single storage transaction. Repository calls
// made with the ctx passed to fn participate in that transaction. If fn
// returns an error, every write made through it is rolled back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
