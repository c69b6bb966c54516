// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package auth provides the authentication core of authd: credential
// verification, bearer sessions and role lookup.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewIdentity - creates an Identity with an optional display name
//   - NewCredential - creates a Credential with validated identity, email and hash
//   - NewSession - creates a Session with validated identity and expiry
//   - NewRoleAssignment - creates one row of an identity's role history
//
// Repository implementations (postgres, memory) receive pre-validated types.
//
// # Services
//
//   - Registrar - atomic creation of identity, credential and default role
//   - Authenticator - sign-in, whoami, verify, sign-out
//   - SessionManager - issue, validate and revoke bearer sessions
//   - Directory - identity search by name or email
//   - Sweeper - periodic deletion of expired sessions
//
// Services report failures as oops errors carrying the Code* constants.
// ErrorCode and PublicMessage map them to caller-visible outcomes.
package auth
