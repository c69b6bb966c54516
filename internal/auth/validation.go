// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum password length in characters.
const MinPasswordLength = 8

// ValidateRegistration checks the email and password given to Register.
// No password policy beyond MinPasswordLength is applied.
func ValidateRegistration(email, password string) error {
	err := validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.Email),
		"password": validation.Validate(password, validation.Required, validation.Length(MinPasswordLength, 0)),
	}.Filter()
	if err != nil {
		return oops.Code(CodeInvalidInput).Wrap(err)
	}
	return nil
}
