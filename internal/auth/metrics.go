// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess            = "success"
	OutcomeDuplicate          = "duplicate"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// Registrations counts registration attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_registrations_total",
		Help: "Total number of registration attempts by outcome",
	},
	[]string{"outcome"},
)

// SignIns counts sign-in attempts by outcome.
var SignIns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_sign_ins_total",
		Help: "Total number of sign-in attempts by outcome",
	},
	[]string{"outcome"},
)

// SessionsRevoked counts sessions deleted by an explicit revoke.
var SessionsRevoked = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authd_sessions_revoked_total",
		Help: "Total number of sessions revoked by sign-out",
	},
)

// SessionsPruned counts expired sessions deleted by the sweeper.
var SessionsPruned = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authd_sessions_pruned_total",
		Help: "Total number of expired sessions deleted",
	},
)

// PasswordHashDuration observes argon2id computation time.
var PasswordHashDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "authd_password_hash_duration_seconds",
		Help:    "Password hash computation duration in seconds",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Registrations)
	reg.MustRegister(SignIns)
	reg.MustRegister(SessionsRevoked)
	reg.MustRegister(SessionsPruned)
	reg.MustRegister(PasswordHashDuration)
}
