// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package pipeline keeps one streaming connection to the VRChat event
// pipeline alive for the authenticated session, reconnecting with capped
// exponential backoff.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/vfriends/vfriends/internal/observability"
	"github.com/vfriends/vfriends/pkg/errutil"
)

// Supervisor defaults.
const (
	DefaultUserAgent = "vfriends"
	DefaultBaseDelay = 5 * time.Second
	DefaultMaxDelay  = 60 * time.Second
)

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	Listener Listener
	// Handler receives every inbound payload. It runs on the read loop and
	// must not block.
	Handler   func(payload string)
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	// OnBackoff, if set, observes every delay before it is slept.
	OnBackoff func(delay time.Duration)
}

// Supervisor runs at most one supervised listen loop at a time.
type Supervisor struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor validates cfg and applies defaults.
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.Listener == nil {
		return nil, oops.Errorf("listener is required")
	}
	if cfg.Handler == nil {
		cfg.Handler = func(string) {}
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		return nil, oops.With("base_delay", cfg.BaseDelay, "max_delay", cfg.MaxDelay).
			Errorf("max delay must not be below base delay")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{cfg: cfg, logger: logger}, nil
}

// Start extracts the auth token from a session Cookie header and starts
// the loop. It reports false, and leaves any running loop untouched, when
// the header carries no token.
func (s *Supervisor) Start(cookieHeader, userAgent string) bool {
	token, ok := AuthTokenFromCookieHeader(cookieHeader)
	if !ok {
		s.logger.Warn("pipeline start skipped: auth token not found in cookie header")
		return false
	}
	s.StartWithToken(token, userAgent)
	return true
}

// StartWithToken stops any running loop, waits for it to exit and starts a
// new one.
func (s *Supervisor) StartWithToken(token, userAgent string) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	s.logger.Info("pipeline starting")
	go func() {
		defer close(done)
		s.run(ctx, token, userAgent)
	}()
}

// Stop cancels the running loop, if any, and waits for it to exit. It is
// safe to call repeatedly.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Supervisor) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.logger.Info("pipeline stopped")
}

// run loops until ctx is cancelled. Each pass is one retry.Do sequence: it
// ends when a connection closes cleanly, so the next pass starts again from
// the base delay.
func (s *Supervisor) run(ctx context.Context, token, userAgent string) {
	for ctx.Err() == nil {
		err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
			err := s.cfg.Listener.Listen(ctx, token, userAgent, s.cfg.Handler)
			if err == nil || ctx.Err() != nil {
				return err
			}
			errutil.LogWarn(s.logger, "pipeline disconnected", err)
			return retry.RetryableError(err)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errutil.LogError(s.logger, "pipeline loop ended", err)
			return
		}
	}
}

// backoff doubles from BaseDelay, is capped at MaxDelay and never gives up.
func (s *Supervisor) backoff() retry.Backoff {
	b := newBackoff(s.cfg.BaseDelay, s.cfg.MaxDelay)
	return retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := b.Next()
		s.logger.Info("pipeline reconnecting", "retry_in", delay)
		s.cfg.Metrics.Reconnect()
		if s.cfg.OnBackoff != nil {
			s.cfg.OnBackoff(delay)
		}
		return delay, stop
	})
}

func newBackoff(base, maxDelay time.Duration) retry.Backoff {
	return retry.WithCappedDuration(maxDelay, retry.NewExponential(base))
}
