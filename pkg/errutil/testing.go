// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package errutil

import (
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err is an oops error with the given code.
// oops reports the innermost code in the chain.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err, "expected error with code %s", code)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	errCtx := oopsErr.Context()
	require.Contains(t, errCtx, key)
	assert.Equal(t, value, errCtx[key])
}

// AssertNoSecret asserts that secret appears neither in the message of err
// nor in any of its context values.
func AssertNoSecret(t *testing.T, err error, secret string) {
	t.Helper()
	require.Error(t, err)
	require.NotEmpty(t, secret)
	assert.NotContains(t, err.Error(), secret, "error message leaks secret")
	if oopsErr, ok := oops.AsOops(err); ok {
		for key, value := range oopsErr.Context() {
			assert.NotContains(t, fmt.Sprint(value), secret, "context key %q leaks secret", key)
		}
	}
}
