// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package mocks

import (
	context "context"

	mock "github.com/stretchr/testify/mock"
)

// MockPasswordHasher is a mock type for the PasswordHasher type
type MockPasswordHasher struct {
	mock.Mock
}

// Hash provides a mock function with given fields: ctx, password
func (_m *MockPasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	ret := _m.Called(ctx, password)

	if len(ret) == 0 {
		panic("no return value specified for Hash")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, password)
	}
	r0 = ret.Get(0).(string)
	r1 = ret.Error(1)

	return r0, r1
}

// Verify provides a mock function with given fields: ctx, password, digest
func (_m *MockPasswordHasher) Verify(ctx context.Context, password string, digest string) (bool, error) {
	ret := _m.Called(ctx, password, digest)

	if len(ret) == 0 {
		panic("no return value specified for Verify")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (bool, error)); ok {
		return rf(ctx, password, digest)
	}
	r0 = ret.Get(0).(bool)
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockPasswordHasher creates a new instance of MockPasswordHasher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
