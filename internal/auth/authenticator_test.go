// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/authd/authd/internal/auth"
	"github.com/authd/authd/internal/auth/memory"
	"github.com/authd/authd/internal/auth/mocks"
	"github.com/authd/authd/pkg/errutil"
)

// fixture wires every service onto one memory store.
type fixture struct {
	store    *memory.Store
	stores   auth.Stores
	clock    *fakeClock
	reg      *auth.Registrar
	sessions *auth.SessionManager
	authn    *auth.Authenticator
	logs     *logCapture
}

func newFixture(t *testing.T, stores auth.Stores, hasher auth.PasswordHasher, opts ...auth.Option) *fixture {
	t.Helper()
	clock := newFakeClock()
	logs, logger := newLogCapture()
	opts = append([]auth.Option{auth.WithClock(clock.Now), auth.WithLogger(logger)}, opts...)

	sessions, err := auth.NewSessionManager(stores.Sessions, opts...)
	require.NoError(t, err)
	reg, err := auth.NewRegistrar(stores, hasher, opts...)
	require.NoError(t, err)
	authn, err := auth.NewAuthenticator(stores, sessions, hasher, opts...)
	require.NoError(t, err)

	return &fixture{
		stores:   stores,
		clock:    clock,
		reg:      reg,
		sessions: sessions,
		authn:    authn,
		logs:     logs,
	}
}

func newMemoryFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()
	store := memory.New()
	f := newFixture(t, store.Stores(), plainHasher{}, opts...)
	f.store = store
	return f
}

func TestNewAuthenticator_NilDependencies(t *testing.T) {
	stores := memory.New().Stores()
	sessions, err := auth.NewSessionManager(stores.Sessions)
	require.NoError(t, err)

	_, err = auth.NewAuthenticator(stores, nil, plainHasher{})
	assert.ErrorContains(t, err, "session manager is required")

	_, err = auth.NewAuthenticator(stores, sessions, nil)
	assert.ErrorContains(t, err, "password hasher is required")

	stores.Roles = nil
	_, err = auth.NewAuthenticator(stores, sessions, plainHasher{})
	assert.ErrorContains(t, err, "roles repository is required")
}

func TestAuthenticator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New().Stores(), auth.NewArgon2idHasher(2))

	id, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
	require.NoError(t, err)

	result, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, id, result.IdentityID)
	assert.Equal(t, auth.RoleUser, result.Role)
	assert.Nil(t, result.Title)
	assert.Len(t, result.Token, 64)
	assert.Equal(t, f.clock.Now().Add(auth.DefaultSessionTTL), result.ExpiresAt)

	profile, err := f.authn.WhoAmI(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, id, profile.ID)
	assert.Equal(t, "Ann", profile.DisplayName())
	assert.Equal(t, "ann@x.io", profile.Email)

	assert.True(t, f.authn.Verify(ctx, result.Token))

	assert.True(t, f.authn.SignOut(ctx, result.Token).Success)
	assert.False(t, f.authn.Verify(ctx, result.Token))

	_, err = f.authn.WhoAmI(ctx, result.Token)
	errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
}

func TestAuthenticator_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)

		_, wrongPassword := f.authn.SignIn(ctx, "ann@x.io", "wrong-password")
		_, unknownEmail := f.authn.SignIn(ctx, "bob@x.io", "hunter22")

		require.Error(t, wrongPassword)
		require.Error(t, unknownEmail)
		errutil.AssertErrorCode(t, wrongPassword, auth.CodeInvalidCredentials)
		errutil.AssertErrorCode(t, unknownEmail, auth.CodeInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		errutil.AssertNoSecret(t, wrongPassword, "wrong-password")
		assert.Equal(t, "Invalid credentials", auth.PublicMessage(unknownEmail))

		var rejections []map[string]any
		for _, entry := range f.logs.entries(t) {
			if entry["msg"] == "sign-in rejected" {
				rejections = append(rejections, entry)
			}
		}
		require.Len(t, rejections, 2)
		assert.Equal(t, rejections[0], withoutTime(rejections[1], rejections[0]["time"]))
	})

	t.Run("unknown email still verifies against dummy hash", func(t *testing.T) {
		stores := memory.New().Stores()
		hasher := mocks.NewMockPasswordHasher(t)
		f := newFixture(t, stores, hasher)

		hasher.On("Verify", mock.Anything, "hunter22", auth.DummyPasswordHash).Return(false, nil).Once()

		_, err := f.authn.SignIn(ctx, "nobody@x.io", "hunter22")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("failed sign-in creates no session", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)

		before := testutil.ToFloat64(auth.SignIns.WithLabelValues(auth.OutcomeInvalidCredentials))
		_, err = f.authn.SignIn(ctx, "ann@x.io", "nope-nope")
		require.Error(t, err)
		assert.Equal(t, 0, f.store.Stats().Sessions)
		assert.InDelta(t, before+1, testutil.ToFloat64(auth.SignIns.WithLabelValues(auth.OutcomeInvalidCredentials)), 0)
	})

	t.Run("malformed stored hash is invalid credentials", func(t *testing.T) {
		f := newMemoryFixture(t)
		id := registerIdentity(t, f.stores, "broken@x.io") // stored digest "hash" is not plain:

		_, err := f.authn.SignIn(ctx, "broken@x.io", "whatever1")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)

		entry := f.logs.find(t, "stored password hash is malformed")
		require.NotNil(t, entry)
		assert.Equal(t, "ERROR", entry["level"])
		assert.Equal(t, id.String(), entry["identity_id"])
	})

	t.Run("hasher failure is not invalid credentials", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		f := newFixture(t, memory.New().Stores(), hasher)
		registerIdentity(t, f.stores, "ann@x.io")

		hasher.On("Verify", mock.Anything, "hunter22", "hash").Return(false, errors.New("hasher busy"))

		_, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		errutil.AssertErrorCode(t, err, "AUTH_SIGN_IN_FAILED")
		errutil.AssertNoSecret(t, err, "hunter22")
	})

	t.Run("credential lookup failure", func(t *testing.T) {
		stores := memory.New().Stores()
		credentials := mocks.NewMockCredentialRepository(t)
		stores.Credentials = credentials
		f := newFixture(t, stores, plainHasher{})

		credentials.On("GetByEmail", mock.Anything, "ann@x.io").Return(nil, errors.New("connection reset"))

		_, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		errutil.AssertErrorCode(t, err, "AUTH_SIGN_IN_FAILED")
		errutil.AssertErrorContext(t, err, "operation", "get credential by email")
	})

	t.Run("missing role falls back to default", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		f := newFixture(t, memory.New().Stores(), hasher)
		id := registerIdentity(t, f.stores, "norole@x.io")

		hasher.On("Verify", mock.Anything, "hunter22", "hash").Return(true, nil)

		result, err := f.authn.SignIn(ctx, "norole@x.io", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, id, result.IdentityID)
		assert.Equal(t, auth.DefaultRole, result.Role)
		assert.Nil(t, result.Title)

		entry := f.logs.find(t, "identity has no role, assuming default")
		require.NotNil(t, entry)
		assert.Equal(t, "WARN", entry["level"])
	})

	t.Run("latest role is returned with title", func(t *testing.T) {
		f := newMemoryFixture(t)
		id, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)

		title := "Head of Support"
		promoted, err := auth.NewRoleAssignment(id, auth.RoleEmployee, &title, f.clock.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, f.stores.Roles.Assign(ctx, promoted))

		result, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleEmployee, result.Role)
		require.NotNil(t, result.Title)
		assert.Equal(t, title, *result.Title)
	})

	t.Run("session ttl option is honoured", func(t *testing.T) {
		f := newMemoryFixture(t, auth.WithSessionTTL(time.Hour))
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)

		result, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now().Add(time.Hour), result.ExpiresAt)

		f.clock.Advance(time.Hour)
		assert.False(t, f.authn.Verify(ctx, result.Token))
		_, err = f.authn.WhoAmI(ctx, result.Token)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("each sign-in issues an independent session", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)

		first, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)
		second, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		f.authn.SignOut(ctx, first.Token)
		assert.False(t, f.authn.Verify(ctx, first.Token))
		assert.True(t, f.authn.Verify(ctx, second.Token))
	})
}

func TestAuthenticator_WhoAmI(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.authn.WhoAmI(ctx, "deadbeef")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
		assert.Equal(t, "Unauthorized", auth.PublicMessage(err))
	})

	t.Run("empty token", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.authn.WhoAmI(ctx, "")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("session store failure is not unauthorized", func(t *testing.T) {
		stores := memory.New().Stores()
		sessions := mocks.NewMockSessionRepository(t)
		stores.Sessions = sessions
		f := newFixture(t, stores, plainHasher{})

		sessions.On("GetByTokenHash", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := f.authn.WhoAmI(ctx, "token")
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_CHECK_FAILED")
	})

	t.Run("profile store failure", func(t *testing.T) {
		stores := memory.New().Stores()
		identities := mocks.NewMockIdentityRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		stores.Identities = identities
		stores.Sessions = sessions
		f := newFixture(t, stores, plainHasher{})

		identityID := ulid.Make()
		sessions.On("GetByTokenHash", mock.Anything, auth.HashSessionToken("token")).Return(&auth.Session{
			IdentityID: identityID,
			ExpiresAt:  f.clock.Now().Add(time.Hour),
		}, nil)
		identities.On("GetProfile", mock.Anything, identityID).Return(nil, errors.New("db down"))

		_, err := f.authn.WhoAmI(ctx, "token")
		errutil.AssertErrorCode(t, err, "AUTH_WHOAMI_FAILED")
	})

	t.Run("missing identity is unauthorized", func(t *testing.T) {
		stores := memory.New().Stores()
		identities := mocks.NewMockIdentityRepository(t)
		sessions := mocks.NewMockSessionRepository(t)
		stores.Identities = identities
		stores.Sessions = sessions
		f := newFixture(t, stores, plainHasher{})

		identityID := ulid.Make()
		sessions.On("GetByTokenHash", mock.Anything, mock.Anything).Return(&auth.Session{
			IdentityID: identityID,
			ExpiresAt:  f.clock.Now().Add(time.Hour),
		}, nil)
		identities.On("GetProfile", mock.Anything, identityID).Return(nil, auth.ErrNotFound)

		_, err := f.authn.WhoAmI(ctx, "token")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})
}

func TestAuthenticator_CurrentRole(t *testing.T) {
	ctx := context.Background()

	t.Run("returns latest role", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)
		result, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)

		role, err := f.authn.CurrentRole(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, role.Role)
	})

	t.Run("identity without roles", func(t *testing.T) {
		f := newMemoryFixture(t)
		id := registerIdentity(t, f.stores, "norole@x.io")
		_, token := issueFor(t, f.sessions, id, time.Hour)

		_, err := f.authn.CurrentRole(ctx, token)
		errutil.AssertErrorCode(t, err, auth.CodeRoleNotFound)
		assert.Equal(t, "Role not found", auth.PublicMessage(err))
	})

	t.Run("invalid session", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.authn.CurrentRole(ctx, "missing")
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})
}

func TestAuthenticator_SignOut(t *testing.T) {
	ctx := context.Background()

	t.Run("always succeeds", func(t *testing.T) {
		f := newMemoryFixture(t)
		assert.True(t, f.authn.SignOut(ctx, "").Success)
		assert.True(t, f.authn.SignOut(ctx, "never-issued").Success)
	})

	t.Run("second sign-out of same token succeeds", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)
		result, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)

		assert.True(t, f.authn.SignOut(ctx, result.Token).Success)
		assert.True(t, f.authn.SignOut(ctx, result.Token).Success)
		assert.Equal(t, 0, f.store.Stats().Sessions)
	})

	t.Run("revoked counter tracks removed sessions only", func(t *testing.T) {
		f := newMemoryFixture(t)
		_, err := f.reg.Register(ctx, "ann@x.io", "hunter22", "Ann")
		require.NoError(t, err)
		result, err := f.authn.SignIn(ctx, "ann@x.io", "hunter22")
		require.NoError(t, err)

		before := testutil.ToFloat64(auth.SessionsRevoked)
		f.authn.SignOut(ctx, "never-issued")
		f.authn.SignOut(ctx, "")
		assert.InDelta(t, before, testutil.ToFloat64(auth.SessionsRevoked), 0)

		f.authn.SignOut(ctx, result.Token)
		f.authn.SignOut(ctx, result.Token)
		assert.InDelta(t, before+1, testutil.ToFloat64(auth.SessionsRevoked), 0)
	})

	t.Run("store failure is logged but still succeeds", func(t *testing.T) {
		stores := memory.New().Stores()
		sessions := mocks.NewMockSessionRepository(t)
		stores.Sessions = sessions
		f := newFixture(t, stores, plainHasher{})

		sessions.On("DeleteByTokenHash", mock.Anything, auth.HashSessionToken("token")).Return(false, errors.New("db down"))

		assert.True(t, f.authn.SignOut(ctx, "token").Success)
		entry := f.logs.find(t, "session revoke failed")
		require.NotNil(t, entry)
		assert.Equal(t, "ERROR", entry["level"])
	})
}

func TestAuthenticator_Verify_StoreFailure(t *testing.T) {
	stores := memory.New().Stores()
	sessions := mocks.NewMockSessionRepository(t)
	stores.Sessions = sessions
	f := newFixture(t, stores, plainHasher{})

	sessions.On("GetByTokenHash", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	assert.False(t, f.authn.Verify(context.Background(), "token"))
	assert.NotNil(t, f.logs.find(t, "session verification failed"))
}

// withoutTime returns entry with its time field replaced by ts.
func withoutTime(entry map[string]any, ts any) map[string]any {
	out := make(map[string]any, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	out["time"] = ts
	return out
}
