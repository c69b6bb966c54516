// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authd/authd/internal/auth"
)

// IdentityRepository implements auth.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	conn
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(pool Pool) *IdentityRepository {
	return &IdentityRepository{conn{pool: pool}}
}

// Create stores a new identity.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	_, err := r.q(ctx).Exec(ctx, `
		INSERT INTO identities (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`,
		identity.ID.String(),
		identity.Name,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		return oops.With("identity_id", identity.ID.String()).
			Wrap(wrapWriteErr(err, "IDENTITY_CREATE_FAILED", "insert identity"))
	}
	return nil
}

// GetProfile returns the identity joined with its credential email.
func (r *IdentityRepository) GetProfile(ctx context.Context, id ulid.ULID) (*auth.Profile, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT i.id, i.name, c.email, i.created_at
		FROM identities i
		INNER JOIN credentials c ON c.identity_id = i.id
		WHERE i.id = $1
		ORDER BY c.created_at
		LIMIT 1
	`, id.String())

	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_PROFILE_FAILED").
			With("operation", "get profile").
			With("id", id.String()).
			Wrap(err)
	}
	return profile, nil
}

// Search returns at most limit profiles whose name or email contains term,
// ignoring case.
func (r *IdentityRepository) Search(ctx context.Context, term string, limit int) ([]*auth.Profile, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT i.id, i.name, c.email, i.created_at
		FROM identities i
		INNER JOIN credentials c ON c.identity_id = i.id
		WHERE i.name ILIKE $1 OR c.email ILIKE $1
		ORDER BY i.id
		LIMIT $2
	`, "%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, oops.Code("IDENTITY_SEARCH_FAILED").
			With("operation", "search identities").
			Wrap(err)
	}
	defer rows.Close()

	profiles := []*auth.Profile{}
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, oops.Code("IDENTITY_SCAN_FAILED").
				With("operation", "scan profile row").
				Wrap(err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_ROWS_ERROR").
			With("operation", "iterate profile rows").
			Wrap(err)
	}
	return profiles, nil
}

// scanProfile scans a single profile row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanProfile(row pgx.Row) (*auth.Profile, error) {
	var (
		idStr     string
		name      *string
		email     string
		createdAt time.Time
	)
	if err := row.Scan(&idStr, &name, &email, &createdAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	id, err := parseULID(idStr, "id")
	if err != nil {
		return nil, err
	}
	return &auth.Profile{ID: id, Name: name, Email: email, CreatedAt: createdAt}, nil
}

// escapeLike escapes LIKE wildcards so term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// Compile-time interface check.
var _ auth.IdentityRepository = (*IdentityRepository)(nil)
