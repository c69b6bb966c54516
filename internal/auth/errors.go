// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConstraintViolation is returned by repositories when a write violates a
// storage integrity constraint, such as a duplicate credential email.
var ErrConstraintViolation = errors.New("constraint violation")

// Error codes attached to errors returned by the services in this package.
// Transport layers map these to caller-visible outcomes.
const (
	CodeDuplicateEmail      = "AUTH_DUPLICATE_EMAIL"
	CodeCreationFailed      = "AUTH_CREATION_FAILED"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeUnauthorized        = "AUTH_UNAUTHORIZED"
	CodeRoleNotFound        = "AUTH_ROLE_NOT_FOUND"
	CodeInvalidHash         = "AUTH_INVALID_HASH"
	CodeInvalidInput        = "AUTH_INVALID_INPUT"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeConstraintViolation = "STORE_CONSTRAINT_VIOLATION"
)

// ErrorCode returns the oops code carried by err, or "" if err has none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// recode prepares cause to be wrapped under code. oops reports the innermost
// code of a chain, so an oops cause is flattened: the returned builder
// carries its context, and the returned error keeps its message and its
// ErrNotFound, ErrConstraintViolation or context identity, but not its code.
func recode(code string, cause error) (oops.OopsErrorBuilder, error) {
	builder := oops.Code(code)
	oopsErr, ok := oops.AsOops(cause)
	if !ok {
		return builder, cause
	}
	for k, v := range oopsErr.Context() {
		builder = builder.With(k, v)
	}
	flat := &flatError{msg: cause.Error()}
	for _, kind := range flatKinds {
		if errors.Is(cause, kind) {
			flat.kind = kind
			break
		}
	}
	return builder, flat
}

var flatKinds = []error{ErrNotFound, ErrConstraintViolation, context.Canceled, context.DeadlineExceeded}

// flatError is an oops error with its chain removed.
type flatError struct {
	msg  string
	kind error
}

func (e *flatError) Error() string { return e.msg }

func (e *flatError) Unwrap() error { return e.kind }

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

func errUnauthorized() error {
	return oops.Code(CodeUnauthorized).Errorf("unauthorized")
}

// publicMessages are the caller-visible messages for each service error code.
// They never include store details.
var publicMessages = map[string]string{
	CodeDuplicateEmail:     "Email already exists",
	CodeCreationFailed:     "Failed to create user",
	CodeInvalidCredentials: "Invalid credentials",
	CodeUnauthorized:       "Unauthorized",
	CodeRoleNotFound:       "Role not found",
	CodeInvalidInput:       "Invalid input",
}

// PublicMessage returns the message a transport layer may show for err.
// Errors without a known code map to a generic internal error message.
func PublicMessage(err error) string {
	if msg, ok := publicMessages[ErrorCode(err)]; ok {
		return msg
	}
	return "Internal error"
}
