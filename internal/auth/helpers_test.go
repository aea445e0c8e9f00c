// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vfriends/vfriends/internal/secret"
	"github.com/vfriends/vfriends/internal/vrchat"
)

const testCookie = "auth=authcookie_0123; twoFactorAuth=tfa_456"

// mockAPI records the network calls made by every client a factory builds.
type mockAPI struct {
	mock.Mock
	// cookie is what the server "sets" after a successful probe.
	cookie string
}

func (a *mockAPI) CurrentUser(ctx context.Context) (*vrchat.CurrentUserResult, error) {
	args := a.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vrchat.CurrentUserResult), args.Error(1)
}

func (a *mockAPI) verify(ctx context.Context, method, code string) error {
	return a.MethodCalled(method, ctx, code).Error(0)
}

// fakeClient keeps per-session credential and cookie state and forwards
// network calls to the shared mockAPI.
type fakeClient struct {
	api *mockAPI

	mu          sync.Mutex
	creds       string
	cookie      string
	clearPanics bool
}

func (c *fakeClient) SetCredentials(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = username + ":" + password
}

func (c *fakeClient) ClearCredentials() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearPanics {
		panic("credential wipe exploded")
	}
	c.creds = ""
}

func (c *fakeClient) HasCredentials() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds != ""
}

func (c *fakeClient) CookieHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cookie
}

func (c *fakeClient) UserAgent() string { return "vfriends-test" }

func (c *fakeClient) CurrentUser(ctx context.Context) (*vrchat.CurrentUserResult, error) {
	res, err := c.api.CurrentUser(ctx)
	if err == nil && c.api.cookie != "" {
		c.mu.Lock()
		c.cookie = c.api.cookie
		c.mu.Unlock()
	}
	return res, err
}

func (c *fakeClient) VerifyTOTP(ctx context.Context, code string) error {
	return c.api.verify(ctx, "VerifyTOTP", code)
}

func (c *fakeClient) VerifyEmailOTP(ctx context.Context, code string) error {
	return c.api.verify(ctx, "VerifyEmailOTP", code)
}

func (c *fakeClient) VerifyRecoveryCode(ctx context.Context, code string) error {
	return c.api.verify(ctx, "VerifyRecoveryCode", code)
}

// mockPipeline is a mock for PipelineController.
type mockPipeline struct {
	mock.Mock
}

func (p *mockPipeline) Start(cookieHeader, userAgent string) bool {
	return p.Called(cookieHeader, userAgent).Bool(0)
}

func (p *mockPipeline) Stop() {
	p.Called()
}

// recorder collects emitted outcomes.
type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) Emit(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) take() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.outcomes
	r.outcomes = nil
	return out
}

func (r *recorder) types() []OutcomeType {
	var types []OutcomeType
	for _, o := range r.take() {
		types = append(types, o.Type)
	}
	return types
}

// failingStore fails every operation that has an error configured.
type failingStore struct {
	getErr, setErr, deleteErr error
	deleted                   int
}

func (s *failingStore) Get() (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return "", secret.ErrNotFound
}

func (s *failingStore) Set(string) error { return s.setErr }

func (s *failingStore) Delete() error {
	s.deleted++
	return s.deleteErr
}

type harness struct {
	api      *mockAPI
	secrets  secret.Store
	pipeline *mockPipeline
	events   *recorder
	logger   *slog.Logger
	mgr      *Manager

	mu           sync.Mutex
	clients      []*fakeClient
	seeds        []string
	panicNext    bool
	panicOnClear bool
}

type harnessOption func(*harness)

func withSecrets(s secret.Store) harnessOption {
	return func(h *harness) { h.secrets = s }
}

func withLogger(l *slog.Logger) harnessOption {
	return func(h *harness) { h.logger = l }
}

func withSavedCookie(cookie string) harnessOption {
	return func(h *harness) {
		store := secret.NewMemoryStore()
		_ = store.Set(cookie)
		h.secrets = store
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		api:      &mockAPI{cookie: testCookie},
		secrets:  secret.NewMemoryStore(),
		pipeline: &mockPipeline{},
		events:   &recorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pipeline.On("Start", mock.Anything, mock.Anything).Return(true).Maybe()
	h.pipeline.On("Stop").Return().Maybe()

	mgr, err := NewManager(ManagerConfig{
		Clients:  h.factory,
		Secrets:  h.secrets,
		Pipeline: h.pipeline,
		Events:   h.events,
		Logger:   h.logger,
	})
	require.NoError(t, err)
	h.mgr = mgr
	return h
}

func (h *harness) factory(cookieHeader string) (APIClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicNext {
		h.panicNext = false
		panic("client construction exploded")
	}
	c := &fakeClient{api: h.api, cookie: cookieHeader, clearPanics: h.panicOnClear}
	h.clients = append(h.clients, c)
	h.seeds = append(h.seeds, cookieHeader)
	return c, nil
}

func (h *harness) saved() (string, bool) {
	v, err := h.secrets.Get()
	if errors.Is(err, secret.ErrNotFound) {
		return "", false
	}
	return v, err == nil
}

func userResult(id, name string) *vrchat.CurrentUserResult {
	return &vrchat.CurrentUserResult{User: &vrchat.User{ID: id, DisplayName: name, Username: name}}
}

func challenge(methods ...string) *vrchat.CurrentUserResult {
	return &vrchat.CurrentUserResult{TwoFactorMethods: methods}
}
