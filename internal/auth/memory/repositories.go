// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/authd/authd/internal/auth"
)

// IdentityRepository implements auth.IdentityRepository in memory.
type IdentityRepository struct {
	store *Store
}

// Create stores a new identity.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	return r.store.do(ctx, func(st *state) error {
		if _, exists := st.identities[identity.ID]; exists {
			return oops.Code(auth.CodeConstraintViolation).
				With("constraint", "identities_pkey").
				Wrap(auth.ErrConstraintViolation)
		}
		st.identities[identity.ID] = cloneIdentity(*identity)
		return nil
	})
}

// GetProfile returns the identity joined with its credential email.
func (r *IdentityRepository) GetProfile(ctx context.Context, id ulid.ULID) (*auth.Profile, error) {
	var profile *auth.Profile
	err := r.store.do(ctx, func(st *state) error {
		identity, ok := st.identities[id]
		if !ok {
			return oops.Code("IDENTITY_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
		}
		credential, ok := credentialFor(st, id)
		if !ok {
			return oops.Code("IDENTITY_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
		}
		profile = buildProfile(identity, credential)
		return nil
	})
	return profile, err
}

// Search returns at most limit profiles whose name or email contains term.
func (r *IdentityRepository) Search(ctx context.Context, term string, limit int) ([]*auth.Profile, error) {
	needle := strings.ToLower(term)
	profiles := []*auth.Profile{}
	err := r.store.do(ctx, func(st *state) error {
		ids := make([]ulid.ULID, 0, len(st.identities))
		for id := range st.identities {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })

		for _, id := range ids {
			if limit > 0 && len(profiles) >= limit {
				break
			}
			credential, ok := credentialFor(st, id)
			if !ok {
				continue
			}
			identity := st.identities[id]
			name := ""
			if identity.Name != nil {
				name = *identity.Name
			}
			if strings.Contains(strings.ToLower(name), needle) ||
				strings.Contains(strings.ToLower(credential.Email), needle) {
				profiles = append(profiles, buildProfile(identity, credential))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// CredentialRepository implements auth.CredentialRepository in memory.
// Emails are compared exactly.
type CredentialRepository struct {
	store *Store
}

// Create stores a new credential.
func (r *CredentialRepository) Create(ctx context.Context, credential *auth.Credential) error {
	return r.store.do(ctx, func(st *state) error {
		if _, ok := st.identities[credential.IdentityID]; !ok {
			return oops.Code(auth.CodeConstraintViolation).
				With("constraint", "credentials_identity_id_fkey").
				Wrap(auth.ErrConstraintViolation)
		}
		if _, taken := st.emails[credential.Email]; taken {
			return oops.Code(auth.CodeConstraintViolation).
				With("constraint", "credentials_email_key").
				Wrap(auth.ErrConstraintViolation)
		}
		st.credentials[credential.ID] = *credential
		st.emails[credential.Email] = credential.ID
		return nil
	})
}

// GetByEmail retrieves a credential by exact email match.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	var found *auth.Credential
	err := r.store.do(ctx, func(st *state) error {
		id, ok := st.emails[email]
		if !ok {
			return oops.Code("CREDENTIAL_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		credential := st.credentials[id]
		found = &credential
		return nil
	})
	return found, err
}

// SessionRepository implements auth.SessionRepository in memory.
type SessionRepository struct {
	store *Store
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return r.store.do(ctx, func(st *state) error {
		if _, ok := st.identities[session.IdentityID]; !ok {
			return oops.Code(auth.CodeConstraintViolation).
				With("constraint", "sessions_identity_id_fkey").
				Wrap(auth.ErrConstraintViolation)
		}
		if _, taken := st.sessions[session.TokenHash]; taken {
			return oops.Code(auth.CodeConstraintViolation).
				With("constraint", "sessions_token_hash_key").
				Wrap(auth.ErrConstraintViolation)
		}
		st.sessions[session.TokenHash] = *session
		return nil
	})
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var found *auth.Session
	err := r.store.do(ctx, func(st *state) error {
		session, ok := st.sessions[tokenHash]
		if !ok {
			return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		found = &session
		return nil
	})
	return found, err
}

// DeleteByTokenHash removes the session with the given token hash, if any.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	var deleted bool
	err := r.store.do(ctx, func(st *state) error {
		_, deleted = st.sessions[tokenHash]
		delete(st.sessions, tokenHash)
		return nil
	})
	return deleted, err
}

// DeleteExpired removes sessions with ExpiresAt <= now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.store.do(ctx, func(st *state) error {
		for hash, session := range st.sessions {
			if !session.IsValidAt(now) {
				delete(st.sessions, hash)
				n++
			}
		}
		return nil
	})
	return n, err
}

// RoleRepository implements auth.RoleRepository in memory.
type RoleRepository struct {
	store *Store
}

// Assign appends a role row.
func (r *RoleRepository) Assign(ctx context.Context, assignment *auth.RoleAssignment) error {
	return r.store.do(ctx, func(st *state) error {
		if _, ok := st.identities[assignment.IdentityID]; !ok {
			return oops.Code(auth.CodeConstraintViolation).
				With("constraint", "roles_identity_id_fkey").
				Wrap(auth.ErrConstraintViolation)
		}
		st.roles[assignment.IdentityID] = append(st.roles[assignment.IdentityID], *assignment)
		return nil
	})
}

// Current returns the latest role row for the identity.
func (r *RoleRepository) Current(ctx context.Context, identityID ulid.ULID) (*auth.RoleAssignment, error) {
	var current *auth.RoleAssignment
	err := r.store.do(ctx, func(st *state) error {
		for i := range st.roles[identityID] {
			row := st.roles[identityID][i]
			if row.Newer(current) {
				current = &row
			}
		}
		if current == nil {
			return oops.Code("ROLE_NOT_FOUND").
				With("identity_id", identityID.String()).
				Wrap(auth.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// History returns all role rows for the identity, newest first.
func (r *RoleRepository) History(ctx context.Context, identityID ulid.ULID) ([]*auth.RoleAssignment, error) {
	var history []*auth.RoleAssignment
	err := r.store.do(ctx, func(st *state) error {
		for i := range st.roles[identityID] {
			row := st.roles[identityID][i]
			history = append(history, &row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Newer(history[j]) })
	return history, nil
}

func credentialFor(st *state, identityID ulid.ULID) (auth.Credential, bool) {
	for _, credential := range st.credentials {
		if credential.IdentityID == identityID {
			return credential, true
		}
	}
	return auth.Credential{}, false
}

func buildProfile(identity auth.Identity, credential auth.Credential) *auth.Profile {
	clone := cloneIdentity(identity)
	return &auth.Profile{
		ID:        identity.ID,
		Name:      clone.Name,
		Email:     credential.Email,
		CreatedAt: identity.CreatedAt,
	}
}

func cloneIdentity(identity auth.Identity) auth.Identity {
	if identity.Name != nil {
		name := *identity.Name
		identity.Name = &name
	}
	return identity
}

// Compile-time interface checks.
var (
	_ auth.IdentityRepository   = (*IdentityRepository)(nil)
	_ auth.CredentialRepository = (*CredentialRepository)(nil)
	_ auth.SessionRepository    = (*SessionRepository)(nil)
	_ auth.RoleRepository       = (*RoleRepository)(nil)
)
