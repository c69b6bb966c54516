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

// RoleRepository implements auth.RoleRepository using PostgreSQL.
type RoleRepository struct {
	conn
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool Pool) *RoleRepository {
	return &RoleRepository{conn{pool: pool}}
}

// Assign appends a role row.
func (r *RoleRepository) Assign(ctx context.Context, assignment *auth.RoleAssignment) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO roles (id, identity_id, role, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		assignment.ID.String(),
		assignment.IdentityID.String(),
		assignment.Role,
		assignment.Title,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		return oops.With("identity_id", assignment.IdentityID.String()).
			Wrap(wrapWriteErr(err, "ROLE_ASSIGN_FAILED", "insert role"))
	}
	return nil
}

// Current returns the latest role row for the identity.
// Rows with equal created_at are ordered by id, which is time-ordered.
func (r *RoleRepository) Current(ctx context.Context, identityID ulid.ULID) (*auth.RoleAssignment, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT id, identity_id, role, title, created_at, updated_at
		FROM roles
		WHERE identity_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, identityID.String())

	assignment, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").
			With("identity_id", identityID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_CURRENT_FAILED").
			With("operation", "get current role").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	return assignment, nil
}

// History returns all role rows for the identity, newest first.
func (r *RoleRepository) History(ctx context.Context, identityID ulid.ULID) ([]*auth.RoleAssignment, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT id, identity_id, role, title, created_at, updated_at
		FROM roles
		WHERE identity_id = $1
		ORDER BY created_at DESC, id DESC
	`, identityID.String())
	if err != nil {
		return nil, oops.Code("ROLE_HISTORY_FAILED").
			With("operation", "get role history").
			With("identity_id", identityID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var history []*auth.RoleAssignment
	for rows.Next() {
		assignment, err := scanRole(rows)
		if err != nil {
			return nil, oops.Code("ROLE_SCAN_FAILED").
				With("operation", "scan role row").
				Wrap(err)
		}
		history = append(history, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_ROWS_ERROR").
			With("operation", "iterate role rows").
			Wrap(err)
	}
	return history, nil
}

// scanRole scans a single role row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanRole(row pgx.Row) (*auth.RoleAssignment, error) {
	var (
		idStr         string
		identityIDStr string
		assignment    auth.RoleAssignment
		createdAt     time.Time
		updatedAt     time.Time
	)
	if err := row.Scan(&idStr, &identityIDStr, &assignment.Role, &assignment.Title, &createdAt, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}

	var err error
	if assignment.ID, err = parseULID(idStr, "id"); err != nil {
		return nil, err
	}
	if assignment.IdentityID, err = parseULID(identityIDStr, "identity_id"); err != nil {
		return nil, err
	}
	assignment.CreatedAt = createdAt
	assignment.UpdatedAt = updatedAt
	return &assignment, nil
}

// Compile-time interface check.
var _ auth.RoleRepository = (*RoleRepository)(nil)
