// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authd/authd/pkg/errutil"
)

// Sweeper periodically deletes expired sessions.
//
// Validation never depends on it: an expired session is rejected whether or
// not its row has been swept.
type Sweeper struct {
	sessions *SessionManager
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(sessions *SessionManager, interval time.Duration, opts ...Option) (*Sweeper, error) {
	if sessions == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("session manager is required")
	}
	if interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID").
			With("interval", interval.String()).
			Errorf("interval must be positive")
	}
	o := buildOptions(opts)
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   o.logger,
	}, nil
}

// RunOnce deletes expired sessions once and returns how many were removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.sessions.PruneExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		SessionsPruned.Add(float64(n))
		s.logger.InfoContext(ctx, "pruned expired sessions", "count", n)
	}
	return n, nil
}

// Start begins periodic sweeping until ctx is cancelled or Stop is called.
// Calling Start on a running Sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the sweeper and waits for the current cycle to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				errutil.LogError(ctx, s.logger, "session sweep failed", err)
			}
		}
	}
}
