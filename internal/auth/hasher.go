// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes

	// maxArgon2Memory caps the memory cost accepted from a stored hash (1 GB).
	maxArgon2Memory = 1 << 20
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-contained, salted digest of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks if the password matches the digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, and
	// (false, error) with code AUTH_INVALID_HASH when the digest is malformed.
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id.
//
// Each computation allocates argon2Memory, so the number of computations in
// flight is bounded by a weighted semaphore. Waiting for a slot honours ctx.
type Argon2idHasher struct {
	slots *semaphore.Weighted
}

// NewArgon2idHasher creates a new Argon2idHasher allowing maxConcurrent
// simultaneous computations. maxConcurrent <= 0 selects GOMAXPROCS.
func NewArgon2idHasher(maxConcurrent int) *Argon2idHasher {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &Argon2idHasher{slots: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	hash := h.compute([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	h.slots.Release(1)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks if the password matches the encoded argon2id hash.
func (h *Argon2idHasher) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	params, err := parseArgon2idHash(encodedHash)
	if err != nil {
		return false, err
	}

	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	computed := h.compute([]byte(password), params.salt, params.time, params.memory, params.threads, uint32(len(params.key)))
	h.slots.Release(1)

	return subtle.ConstantTimeCompare(computed, params.key) == 1, nil
}

func (h *Argon2idHasher) acquire(ctx context.Context) error {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return oops.Code("AUTH_HASHER_BUSY").
			With("operation", "acquire hashing slot").
			Wrap(err)
	}
	return nil
}

func (h *Argon2idHasher) compute(password, salt []byte, t, m uint32, p uint8, keyLen uint32) []byte {
	start := time.Now()
	key := argon2.IDKey(password, salt, t, m, p, keyLen)
	PasswordHashDuration.Observe(time.Since(start).Seconds())
	return key
}

type argon2idParams struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// parseArgon2idHash decodes a PHC-formatted argon2id string.
func parseArgon2idHash(encoded string) (*argon2idParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code(CodeInvalidHash).Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, oops.Code(CodeInvalidHash).Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code(CodeInvalidHash).Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code(CodeInvalidHash).Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, oops.Code(CodeInvalidHash).Wrap(err)
	}

	// Validate threads fits in uint8 to prevent silent truncation
	if threads == 0 || threads > 255 {
		return nil, oops.Code(CodeInvalidHash).Errorf("invalid threads value %d", threads)
	}
	if memory == 0 || memory > maxArgon2Memory || iterations == 0 {
		return nil, oops.Code(CodeInvalidHash).Errorf("invalid cost parameters m=%d t=%d", memory, iterations)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code(CodeInvalidHash).Wrap(err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code(CodeInvalidHash).Wrap(err)
	}

	if len(key) == 0 || len(key) > 1<<10 {
		return nil, oops.Code(CodeInvalidHash).Errorf("invalid hash key length: %d", len(key))
	}

	return &argon2idParams{
		memory:  memory,
		time:    iterations,
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}

// Compile-time interface check.
var _ PasswordHasher = (*Argon2idHasher)(nil)
