// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authd/authd/internal/auth"
	"github.com/authd/authd/pkg/errutil"
)

func ready(context.Context) error { return nil }

func notReady(context.Context) error { return errors.New("database down") }

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func startServer(t *testing.T, checker ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checker, nil)
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, ready)

	auth.Registrations.WithLabelValues(auth.OutcomeSuccess).Inc()
	auth.SignIns.WithLabelValues(auth.OutcomeInvalidCredentials).Inc()

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `authd_registrations_total{outcome="success"}`)
	assert.Contains(t, body, `authd_sign_ins_total{outcome="invalid_credentials"}`)
	assert.Contains(t, body, "authd_password_hash_duration_seconds")
}

func TestServer_RegistryCollectsAuthMetrics(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	before := testutil.ToFloat64(auth.SessionsRevoked)
	auth.SessionsRevoked.Inc()

	count, err := testutil.GatherAndCount(server.Registry(), "authd_sessions_revoked_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.InDelta(t, before+1, testutil.ToFloat64(auth.SessionsRevoked), 0)
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := startServer(t, notReady)

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checker    ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{"ready", ready, http.StatusOK, "ok"},
		{"not ready", notReady, http.StatusServiceUnavailable, "not ready"},
		{"nil checker", nil, http.StatusOK, "ok"},
		{"database reachable", PingReadiness(fakePinger{}), http.StatusOK, "ok"},
		{"database unreachable", PingReadiness(fakePinger{err: errors.New("refused")}), http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("127.0.0.1:0", tt.checker, nil)
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
		})
	}
}

func TestServer_ReadinessCheckHasDeadline(t *testing.T) {
	var hadDeadline bool
	server := NewServer("127.0.0.1:0", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/readiness", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hadDeadline)
}

func TestPingReadiness_WrapsError(t *testing.T) {
	err := PingReadiness(fakePinger{err: errors.New("refused")})(context.Background())
	errutil.AssertErrorCode(t, err, "DB_UNAVAILABLE")
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	_, err := server.Start()
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_ALREADY_RUNNING")
}

func TestServer_StartListenFailure(t *testing.T) {
	server := NewServer("256.0.0.1:bad", nil, nil)

	_, err := server.Start()
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_LISTEN_FAILED")
	assert.Empty(t, server.Addr())
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Errorf("stop without start should not error: %v", err)
	}
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	if server.Addr() == "" {
		t.Fatal("server address is empty")
	}

	// Closing the listener makes Serve fail.
	_ = server.listener.Close()

	select {
	case serveErr := <-errCh:
		if serveErr == nil {
			t.Error("expected an error from the error channel after closing listener")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error on error channel")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Stop(ctx)
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			t.Errorf("unexpected error on normal shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error channel to close")
	}
}
