// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"log/slog"
	"time"
)

// options holds settings shared by the services in this package.
type options struct {
	logger     *slog.Logger
	now        Clock
	sessionTTL time.Duration
}

// Option configures a service constructed by this package.
type Option func(*options)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source. A nil clock is ignored.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithSessionTTL sets the lifetime of sessions issued at sign-in.
// Non-positive values keep DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.sessionTTL = ttl
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     slog.Default(),
		now:        time.Now,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
