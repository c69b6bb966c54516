// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package memory provides an in-process implementation of the auth
// repositories. It enforces the same uniqueness and reference constraints as
// the PostgreSQL schema and supports transactions with rollback.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/authd/authd/internal/auth"
)

// state is the full contents of the store. It is copied for rollback.
type state struct {
	identities  map[ulid.ULID]auth.Identity
	credentials map[ulid.ULID]auth.Credential
	emails      map[string]ulid.ULID // email -> credential ID
	sessions    map[string]auth.Session
	roles       map[ulid.ULID][]auth.RoleAssignment // identity ID -> history
}

func newState() *state {
	return &state{
		identities:  make(map[ulid.ULID]auth.Identity),
		credentials: make(map[ulid.ULID]auth.Credential),
		emails:      make(map[string]ulid.ULID),
		sessions:    make(map[string]auth.Session),
		roles:       make(map[ulid.ULID][]auth.RoleAssignment),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.identities {
		c.identities[k] = v
	}
	for k, v := range st.credentials {
		c.credentials[k] = v
	}
	for k, v := range st.emails {
		c.emails[k] = v
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.roles {
		c.roles[k] = append([]auth.RoleAssignment(nil), v...)
	}
	return c
}

// Store is an in-memory backing store for all auth repositories.
//
// A transaction holds the store lock for its whole duration, so concurrent
// readers never observe its partial writes. Repository calls inside the
// transaction must use the ctx passed to the transaction function.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

// txKey marks a context running inside InTransaction on a given store.
type txKey struct{}

// Stores returns the repositories and transactor backed by s.
func (s *Store) Stores() auth.Stores {
	return auth.Stores{
		Identities:  &IdentityRepository{store: s},
		Credentials: &CredentialRepository{store: s},
		Sessions:    &SessionRepository{store: s},
		Roles:       &RoleRepository{store: s},
		Tx:          s,
	}
}

// InTransaction runs fn while holding the store lock. If fn returns an
// error every write it made is discarded.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Stats reports row counts per table.
type Stats struct {
	Identities  int
	Credentials int
	Sessions    int
	Roles       int
}

// Stats returns the current row counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles := 0
	for _, history := range s.st.roles {
		roles += len(history)
	}
	return Stats{
		Identities:  len(s.st.identities),
		Credentials: len(s.st.credentials),
		Sessions:    len(s.st.sessions),
		Roles:       roles,
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// do runs fn against the store state, taking the lock unless ctx already
// belongs to a transaction on s.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Compile-time interface check.
var _ auth.Transactor = (*Store)(nil)
