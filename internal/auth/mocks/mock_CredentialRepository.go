// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package mocks

import (
	context "context"

	auth "github.com/authd/authd/internal/auth"
	mock "github.com/stretchr/testify/mock"
)

// MockCredentialRepository is a mock type for the CredentialRepository type
type MockCredentialRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, credential
func (_m *MockCredentialRepository) Create(ctx context.Context, credential *auth.Credential) error {
	ret := _m.Called(ctx, credential)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.Credential) error); ok {
		r0 = rf(ctx, credential)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetByEmail provides a mock function with given fields: ctx, email
func (_m *MockCredentialRepository) GetByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	ret := _m.Called(ctx, email)

	if len(ret) == 0 {
		panic("no return value specified for GetByEmail")
	}

	var r0 *auth.Credential
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Credential, error)); ok {
		return rf(ctx, email)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*auth.Credential)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockCredentialRepository creates a new instance of MockCredentialRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCredentialRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCredentialRepository {
	m := &MockCredentialRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
