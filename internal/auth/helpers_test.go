// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/authd/authd/internal/auth"
)

// plainHasher is a fast PasswordHasher for service tests.
// Digests are "plain:" + password; anything else is a malformed digest.
type plainHasher struct{}

func (plainHasher) Hash(_ context.Context, password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "plain:" + password, nil
}

func (plainHasher) Verify(_ context.Context, password, digest string) (bool, error) {
	if digest == auth.DummyPasswordHash {
		return false, nil
	}
	stored, ok := strings.CutPrefix(digest, "plain:")
	if !ok {
		return false, oops.Code(auth.CodeInvalidHash).Errorf("malformed digest")
	}
	return stored == password, nil
}

// logCapture collects JSON log lines.
type logCapture struct {
	buf bytes.Buffer
}

func newLogCapture() (*logCapture, *slog.Logger) {
	c := &logCapture{}
	return c, slog.New(slog.NewJSONHandler(&c.buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// entries parses every captured line.
func (c *logCapture) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(c.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

// find returns the first entry with the given message, or nil.
func (c *logCapture) find(t *testing.T, msg string) map[string]any {
	t.Helper()
	for _, entry := range c.entries(t) {
		if entry["msg"] == msg {
			return entry
		}
	}
	return nil
}
