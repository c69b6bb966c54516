// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import "github.com/samber/oops"

// Stores groups the repositories sharing one backing store and the
// transaction boundary that spans them.
type Stores struct {
	Identities  IdentityRepository
	Credentials CredentialRepository
	Sessions    SessionRepository
	Roles       RoleRepository
	Tx          Transactor
}

// validate checks that every repository is present.
func (s Stores) validate() error {
	switch {
	case s.Identities == nil:
		return oops.Code("AUTH_STORES_INVALID").Errorf("identities repository is required")
	case s.Credentials == nil:
		return oops.Code("AUTH_STORES_INVALID").Errorf("credentials repository is required")
	case s.Sessions == nil:
		return oops.Code("AUTH_STORES_INVALID").Errorf("sessions repository is required")
	case s.Roles == nil:
		return oops.Code("AUTH_STORES_INVALID").Errorf("roles repository is required")
	case s.Tx == nil:
		return oops.Code("AUTH_STORES_INVALID").Errorf("transactor is required")
	}
	return nil
}
