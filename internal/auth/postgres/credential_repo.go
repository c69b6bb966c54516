// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/authd/authd/internal/auth"
)

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
// Email comparison follows the column collation (case-sensitive by default).
type CredentialRepository struct {
	conn
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(pool Pool) *CredentialRepository {
	return &CredentialRepository{conn{pool: pool}}
}

// Create stores a new credential.
func (r *CredentialRepository) Create(ctx context.Context, credential *auth.Credential) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO credentials (id, identity_id, email, password_hash, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		credential.ID.String(),
		credential.IdentityID.String(),
		credential.Email,
		credential.PasswordHash,
		credential.IsVerified,
		credential.CreatedAt,
		credential.UpdatedAt,
	)
	if err != nil {
		return oops.With("identity_id", credential.IdentityID.String()).
			Wrap(wrapWriteErr(err, "CREDENTIAL_CREATE_FAILED", "insert credential"))
	}
	return nil
}

// GetByEmail retrieves a credential by exact email match.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	var (
		idStr         string
		identityIDStr string
		credential    auth.Credential
	)
	err := r.q(ctx).QueryRow(ctx, `
		SELECT id, identity_id, email, password_hash, is_verified, created_at, updated_at
		FROM credentials
		WHERE email = $1
	`, email).Scan(
		&idStr,
		&identityIDStr,
		&credential.Email,
		&credential.PasswordHash,
		&credential.IsVerified,
		&credential.CreatedAt,
		&credential.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_BY_EMAIL_FAILED").
			With("operation", "get credential by email").
			Wrap(err)
	}

	if credential.ID, err = parseULID(idStr, "id"); err != nil {
		return nil, err
	}
	if credential.IdentityID, err = parseULID(identityIDStr, "identity_id"); err != nil {
		return nil, err
	}
	return &credential, nil
}

// Compile-time interface check.
var _ auth.CredentialRepository = (*CredentialRepository)(nil)
