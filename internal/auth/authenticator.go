// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// dummyPasswordHash is verified when an email is unknown so that both
// rejection paths do the same argon2id work. Its parameters match the ones
// Argon2idHasher uses. It is not a credential and never matches.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SignInResult is returned by a successful SignIn.
type SignInResult struct {
	Token      string
	IdentityID ulid.ULID
	Role       string
	Title      *string
	ExpiresAt  time.Time
}

// SignOutResult is returned by SignOut. Success is always true.
type SignOutResult struct {
	Success bool
}

// Authenticator verifies credentials and manages the sessions they grant.
type Authenticator struct {
	identities  IdentityRepository
	credentials CredentialRepository
	roles       RoleRepository
	sessions    *SessionManager
	hasher      PasswordHasher
	logger      *slog.Logger
	sessionTTL  time.Duration
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(stores Stores, sessions *SessionManager, hasher PasswordHasher, opts ...Option) (*Authenticator, error) {
	if err := stores.validate(); err != nil {
		return nil, err
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_STORES_INVALID").Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_STORES_INVALID").Errorf("password hasher is required")
	}
	o := buildOptions(opts)
	return &Authenticator{
		identities:  stores.Identities,
		credentials: stores.Credentials,
		roles:       stores.Roles,
		sessions:    sessions,
		hasher:      hasher,
		logger:      o.logger,
		sessionTTL:  o.sessionTTL,
	}, nil
}

// SignIn verifies email and password and issues a session.
//
// An unknown email and a wrong password return the same
// AUTH_INVALID_CREDENTIALS error and are logged identically. A malformed
// stored hash is also reported as invalid credentials.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (result *SignInResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.sign_in")
	defer func() { endSpan(span, err) }()

	credential, lookupErr := a.credentials.GetByEmail(ctx, email)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = credential.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		credential = nil
	default:
		SignIns.WithLabelValues(OutcomeError).Inc()
		failure, cause := recode("AUTH_SIGN_IN_FAILED", lookupErr)
		return nil, failure.
			With("operation", "get credential by email").
			Wrap(cause)
	}

	// Always verify, even for unknown emails.
	valid, verifyErr := a.hasher.Verify(ctx, password, targetHash)
	if verifyErr != nil {
		if !HasCode(verifyErr, CodeInvalidHash) {
			SignIns.WithLabelValues(OutcomeError).Inc()
			failure, cause := recode("AUTH_SIGN_IN_FAILED", verifyErr)
			return nil, failure.
				With("operation", "verify password").
				Wrap(cause)
		}
		if credential != nil {
			a.logger.ErrorContext(ctx, "stored password hash is malformed",
				"identity_id", credential.IdentityID.String(),
				"error", verifyErr)
		}
		valid = false
	}

	if credential == nil || !valid {
		SignIns.WithLabelValues(OutcomeInvalidCredentials).Inc()
		a.logger.InfoContext(ctx, "sign-in rejected")
		return nil, errInvalidCredentials()
	}

	span.SetAttributes(attribute.String("identity.id", credential.IdentityID.String()))

	session, token, err := a.sessions.Issue(ctx, credential.IdentityID, a.sessionTTL)
	if err != nil {
		SignIns.WithLabelValues(OutcomeError).Inc()
		failure, cause := recode("AUTH_SIGN_IN_FAILED", err)
		return nil, failure.
			With("operation", "issue session").
			Wrap(cause)
	}

	role, title := DefaultRole, (*string)(nil)
	current, roleErr := a.roles.Current(ctx, credential.IdentityID)
	switch {
	case roleErr == nil:
		role, title = current.Role, current.Title
	case errors.Is(roleErr, ErrNotFound):
		a.logger.WarnContext(ctx, "identity has no role, assuming default",
			"identity_id", credential.IdentityID.String(),
			"role", DefaultRole)
	default:
		a.logger.ErrorContext(ctx, "role lookup failed, assuming default",
			"identity_id", credential.IdentityID.String(),
			"role", DefaultRole,
			"error", roleErr)
	}

	SignIns.WithLabelValues(OutcomeSuccess).Inc()
	return &SignInResult{
		Token:      token,
		IdentityID: credential.IdentityID,
		Role:       role,
		Title:      title,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// WhoAmI returns the profile of the identity owning token.
// Returns AUTH_UNAUTHORIZED if the session is missing or expired.
func (a *Authenticator) WhoAmI(ctx context.Context, token string) (*Profile, error) {
	session, err := a.authorize(ctx, token)
	if err != nil {
		return nil, err
	}

	profile, err := a.identities.GetProfile(ctx, session.IdentityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.logger.ErrorContext(ctx, "session refers to missing identity",
				"identity_id", session.IdentityID.String())
			return nil, errUnauthorized()
		}
		failure, cause := recode("AUTH_WHOAMI_FAILED", err)
		return nil, failure.
			With("operation", "get profile").
			With("identity_id", session.IdentityID.String()).
			Wrap(cause)
	}
	return profile, nil
}

// CurrentRole returns the current role of the identity owning token.
// Returns AUTH_UNAUTHORIZED for an invalid session and AUTH_ROLE_NOT_FOUND
// when the identity has no role rows.
func (a *Authenticator) CurrentRole(ctx context.Context, token string) (*RoleAssignment, error) {
	session, err := a.authorize(ctx, token)
	if err != nil {
		return nil, err
	}

	role, err := a.roles.Current(ctx, session.IdentityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			failure, cause := recode(CodeRoleNotFound, err)
			return nil, failure.
				With("identity_id", session.IdentityID.String()).
				Wrap(cause)
		}
		failure, cause := recode("AUTH_ROLE_LOOKUP_FAILED", err)
		return nil, failure.
			With("operation", "get current role").
			With("identity_id", session.IdentityID.String()).
			Wrap(cause)
	}
	return role, nil
}

// Verify reports whether token belongs to an active session. It never fails;
// store errors are logged and reported as false.
func (a *Authenticator) Verify(ctx context.Context, token string) bool {
	_, err := a.sessions.Validate(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		a.logger.WarnContext(ctx, "session verification failed", "error", err)
	}
	return err == nil
}

// SignOut revokes the session for token. The result is always successful,
// whether or not the token was active.
func (a *Authenticator) SignOut(ctx context.Context, token string) SignOutResult {
	if err := a.sessions.Revoke(ctx, token); err != nil {
		a.logger.ErrorContext(ctx, "session revoke failed", "error", err)
	}
	return SignOutResult{Success: true}
}

// authorize validates token and maps a missing or expired session to
// AUTH_UNAUTHORIZED.
func (a *Authenticator) authorize(ctx context.Context, token string) (*Session, error) {
	session, err := a.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errUnauthorized()
		}
		failure, cause := recode("AUTH_SESSION_CHECK_FAILED", err)
		return nil, failure.
			With("operation", "validate session").
			Wrap(cause)
	}
	return session, nil
}
