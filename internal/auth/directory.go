// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"strings"

	"github.com/samber/oops"
)

// DefaultSearchLimit is the maximum number of profiles Search returns.
const DefaultSearchLimit = 10

// Directory looks up registered identities by name or email.
type Directory struct {
	identities IdentityRepository
}

// NewDirectory creates a new Directory.
func NewDirectory(identities IdentityRepository) (*Directory, error) {
	if identities == nil {
		return nil, oops.Code("AUTH_STORES_INVALID").Errorf("identities repository is required")
	}
	return &Directory{identities: identities}, nil
}

// Search returns up to DefaultSearchLimit profiles whose name or email
// contains term, ignoring case. A blank term matches nothing.
func (d *Directory) Search(ctx context.Context, term string) ([]*Profile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*Profile{}, nil
	}

	profiles, err := d.identities.Search(ctx, term, DefaultSearchLimit)
	if err != nil {
		failure, cause := recode("AUTH_SEARCH_FAILED", err)
		return nil, failure.
			With("operation", "search identities").
			Wrap(cause)
	}
	return profiles, nil
}
