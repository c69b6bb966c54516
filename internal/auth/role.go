// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Known role labels. Role is free-form; these are the values in use.
const (
	RoleUser     = "user"
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleClient   = "client"
	RoleBot      = "bot"
)

// DefaultRole is assigned at registration and assumed at sign-in when an
// identity has no role rows.
const DefaultRole = RoleUser

// RoleAssignment is one row of an identity's append-only role history.
// The current role is the row with the latest CreatedAt; equal timestamps
// are ordered by ID.
type RoleAssignment struct {
	ID         ulid.ULID
	IdentityID ulid.ULID
	Role       string
	Title      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewRoleAssignment creates a validated RoleAssignment. Title may be nil.
func NewRoleAssignment(identityID ulid.ULID, role string, title *string, now time.Time) (*RoleAssignment, error) {
	if identityID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("ROLE_INVALID_IDENTITY").Errorf("identity ID cannot be zero")
	}
	if role == "" {
		return nil, oops.Code("ROLE_INVALID_LABEL").Errorf("role cannot be empty")
	}
	return &RoleAssignment{
		ID:         ulid.Make(),
		IdentityID: identityID,
		Role:       role,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsKnownRole reports whether role is one of the labels in use.
func IsKnownRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleEmployee, RoleClient, RoleBot:
		return true
	default:
		return false
	}
}

// Newer reports whether r supersedes other as the current role.
func (r *RoleAssignment) Newer(other *RoleAssignment) bool {
	if other == nil {
		return true
	}
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.After(other.CreatedAt)
	}
	return r.ID.Compare(other.ID) > 0
}

// RoleRepository manages role history. There is no update-in-place.
type RoleRepository interface {
	// Assign appends a role row.
	Assign(ctx context.Context, assignment *RoleAssignment) error

	// Current returns the latest role row for the identity.
	// Returns ErrNotFound if the identity has no role rows.
	Current(ctx context.Context, identityID ulid.ULID) (*RoleAssignment, error)

	// History returns all role rows for the identity, newest first.
	History(ctx context.Context, identityID ulid.ULID) ([]*RoleAssignment, error)
}
