// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package mocks

import (
	context "context"

	auth "github.com/authd/authd/internal/auth"
	mock "github.com/stretchr/testify/mock"

	ulid "github.com/oklog/ulid/v2"
)

// MockIdentityRepository is a mock type for the IdentityRepository type
type MockIdentityRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, identity
func (_m *MockIdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	ret := _m.Called(ctx, identity)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.Identity) error); ok {
		r0 = rf(ctx, identity)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetProfile provides a mock function with given fields: ctx, id
func (_m *MockIdentityRepository) GetProfile(ctx context.Context, id ulid.ULID) (*auth.Profile, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetProfile")
	}

	var r0 *auth.Profile
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) (*auth.Profile, error)); ok {
		return rf(ctx, id)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*auth.Profile)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Search provides a mock function with given fields: ctx, term, limit
func (_m *MockIdentityRepository) Search(ctx context.Context, term string, limit int) ([]*auth.Profile, error) {
	ret := _m.Called(ctx, term, limit)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 []*auth.Profile
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) ([]*auth.Profile, error)); ok {
		return rf(ctx, term, limit)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*auth.Profile)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockIdentityRepository creates a new instance of MockIdentityRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockIdentityRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIdentityRepository {
	m := &MockIdentityRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
