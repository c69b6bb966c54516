// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package mocks

import (
	context "context"

	auth "github.com/authd/authd/internal/auth"
	mock "github.com/stretchr/testify/mock"

	time "time"
)

// MockSessionRepository is a mock type for the SessionRepository type
type MockSessionRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, session
func (_m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ret := _m.Called(ctx, session)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *auth.Session) error); ok {
		r0 = rf(ctx, session)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// DeleteByTokenHash provides a mock function with given fields: ctx, tokenHash
func (_m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	ret := _m.Called(ctx, tokenHash)

	if len(ret) == 0 {
		panic("no return value specified for DeleteByTokenHash")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (bool, error)); ok {
		return rf(ctx, tokenHash)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) bool); ok {
		r0 = rf(ctx, tokenHash)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, tokenHash)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// DeleteExpired provides a mock function with given fields: ctx, now
func (_m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := _m.Called(ctx, now)

	if len(ret) == 0 {
		panic("no return value specified for DeleteExpired")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) (int64, error)); ok {
		return rf(ctx, now)
	}
	r0 = ret.Get(0).(int64)
	r1 = ret.Error(1)

	return r0, r1
}

// GetByTokenHash provides a mock function with given fields: ctx, tokenHash
func (_m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := _m.Called(ctx, tokenHash)

	if len(ret) == 0 {
		panic("no return value specified for GetByTokenHash")
	}

	var r0 *auth.Session
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*auth.Session, error)); ok {
		return rf(ctx, tokenHash)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*auth.Session)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockSessionRepository creates a new instance of MockSessionRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
