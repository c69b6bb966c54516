// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package mocks

import (
	context "context"

	auth "github.com/authd/authd/internal/auth"
	mock "github.com/stretchr/testify/mock"

	ulid "github.com/oklog/ulid/v2"
)

// MockRoleRepository is a mock type for the RoleRepository type
type MockRoleRepository struct {
	mock.Mock
}

// Assign provides a mock function with given fields: ctx, assignment
func (_m *MockRoleRepository) Assign(ctx context.Context, assignment *auth.RoleAssignment) error {
	ret := _m.Called(ctx, assignment)

	if len(ret) == 0 {
		panic("no return value specified for Assign")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.RoleAssignment) error); ok {
		r0 = rf(ctx, assignment)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Current provides a mock function with given fields: ctx, identityID
func (_m *MockRoleRepository) Current(ctx context.Context, identityID ulid.ULID) (*auth.RoleAssignment, error) {
	ret := _m.Called(ctx, identityID)

	if len(ret) == 0 {
		panic("no return value specified for Current")
	}

	var r0 *auth.RoleAssignment
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) (*auth.RoleAssignment, error)); ok {
		return rf(ctx, identityID)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*auth.RoleAssignment)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// History provides a mock function with given fields: ctx, identityID
func (_m *MockRoleRepository) History(ctx context.Context, identityID ulid.ULID) ([]*auth.RoleAssignment, error) {
	ret := _m.Called(ctx, identityID)

	if len(ret) == 0 {
		panic("no return value specified for History")
	}

	var r0 []*auth.RoleAssignment
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ulid.ULID) ([]*auth.RoleAssignment, error)); ok {
		return rf(ctx, identityID)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*auth.RoleAssignment)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockRoleRepository creates a new instance of MockRoleRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockRoleRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRoleRepository {
	m := &MockRoleRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
