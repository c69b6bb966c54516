// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// Registrar creates identities together with their credential and default role.
type Registrar struct {
	identities  IdentityRepository
	credentials CredentialRepository
	roles       RoleRepository
	tx          Transactor
	hasher      PasswordHasher
	logger      *slog.Logger
	now         Clock
}

// NewRegistrar creates a new Registrar.
func NewRegistrar(stores Stores, hasher PasswordHasher, opts ...Option) (*Registrar, error) {
	if err := stores.validate(); err != nil {
		return nil, err
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_STORES_INVALID").Errorf("password hasher is required")
	}
	o := buildOptions(opts)
	return &Registrar{
		identities:  stores.Identities,
		credentials: stores.Credentials,
		roles:       stores.Roles,
		tx:          stores.Tx,
		hasher:      hasher,
		logger:      o.logger,
		now:         o.now,
	}, nil
}

// Register creates an identity for email and returns its ID.
//
// The email pre-check only avoids hashing for an obvious duplicate. The
// unique constraint checked inside the transaction is authoritative: a
// concurrent registration of the same email aborts the whole transaction and
// is reported as AUTH_CREATION_FAILED, with no rows left behind.
func (r *Registrar) Register(ctx context.Context, email, password, name string) (id ulid.ULID, err error) {
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { endSpan(span, err) }()

	if err := ValidateRegistration(email, password); err != nil {
		Registrations.WithLabelValues(OutcomeInvalidInput).Inc()
		return ulid.ULID{}, err
	}

	_, lookupErr := r.credentials.GetByEmail(ctx, email)
	switch {
	case lookupErr == nil:
		Registrations.WithLabelValues(OutcomeDuplicate).Inc()
		return ulid.ULID{}, oops.Code(CodeDuplicateEmail).Errorf("email already exists")
	case !errors.Is(lookupErr, ErrNotFound):
		return ulid.ULID{}, r.creationFailed(ctx, "check existing email", lookupErr)
	}

	passwordHash, err := r.hasher.Hash(ctx, password)
	if err != nil {
		return ulid.ULID{}, r.creationFailed(ctx, "hash password", err)
	}

	now := r.now()
	identity := NewIdentity(name, now)
	span.SetAttributes(attribute.String("identity.id", identity.ID.String()))

	err = r.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := r.identities.Create(ctx, identity); err != nil {
			return err
		}

		credential, err := NewCredential(identity.ID, email, passwordHash, now)
		if err != nil {
			return err
		}
		if err := r.credentials.Create(ctx, credential); err != nil {
			return err
		}

		role, err := NewRoleAssignment(identity.ID, DefaultRole, nil, now)
		if err != nil {
			return err
		}
		return r.roles.Assign(ctx, role)
	})
	if err != nil {
		return ulid.ULID{}, r.creationFailed(ctx, "create identity", err)
	}

	Registrations.WithLabelValues(OutcomeSuccess).Inc()
	r.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID.String())
	return identity.ID, nil
}

// creationFailed logs cause and returns the generic creation error wrapping it.
func (r *Registrar) creationFailed(ctx context.Context, operation string, cause error) error {
	Registrations.WithLabelValues(OutcomeError).Inc()
	failure, flat := recode(CodeCreationFailed, cause)
	err := failure.
		With("operation", operation).
		Wrapf(flat, "failed to create user")
	r.logger.WarnContext(ctx, "registration failed",
		"operation", operation,
		"constraint_violation", errors.Is(cause, ErrConstraintViolation),
		"error", cause)
	return err
}
