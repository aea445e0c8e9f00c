// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vfriends/vfriends/internal/app"
	"github.com/vfriends/vfriends/internal/auth"
	"github.com/vfriends/vfriends/internal/config"
	"github.com/vfriends/vfriends/internal/observability"
	"github.com/vfriends/vfriends/internal/vrchat"
)

// fakeApp is a scripted Application.
type fakeApp struct {
	mu sync.Mutex

	beginOutcome  auth.Outcome
	verifyOutputs []auth.Outcome
	pending       bool
	restoreUser   *auth.User
	friends       []vrchat.Friend
	world         *vrchat.World
	fetchErr      error
	runErr        error

	logins    []string
	codes     []string
	methods   []string
	worldIDs  []string
	loggedOut bool
	closed    atomic.Bool
	ran       atomic.Bool
}

func (f *fakeApp) BeginLogin(_ context.Context, username, _ string) auth.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, username)
	f.pending = f.beginOutcome.Type == auth.OutcomeTwoFactorRequired
	return f.beginOutcome
}

func (f *fakeApp) VerifyTwoFactor(_ context.Context, code, method string) auth.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	f.methods = append(f.methods, method)
	if len(f.verifyOutputs) == 0 {
		return auth.Outcome{Type: auth.OutcomeFailure, Message: "2FA session not found. Please log in again"}
	}
	o := f.verifyOutputs[0]
	f.verifyOutputs = f.verifyOutputs[1:]
	if o.Type == auth.OutcomeSuccess {
		f.pending = false
	}
	return o
}

func (f *fakeApp) RestoreSession(context.Context) *auth.User { return f.restoreUser }

func (f *fakeApp) Logout() auth.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	return auth.Outcome{Type: auth.OutcomeLoggedOut}
}

func (f *fakeApp) State() auth.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return auth.State{PendingTwoFactor: f.pending}
}

func (f *fakeApp) FetchFriends(context.Context) ([]vrchat.Friend, error) {
	return f.friends, f.fetchErr
}

func (f *fakeApp) FetchWorld(_ context.Context, id string) (*vrchat.World, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.worldIDs = append(f.worldIDs, id)
	return f.world, f.fetchErr
}

func (f *fakeApp) Ready() bool           { return f.restoreUser != nil }
func (f *fakeApp) PipelineRunning() bool { return false }

func (f *fakeApp) Registry() *prometheus.Registry { return prometheus.NewRegistry() }

func (f *fakeApp) Run(ctx context.Context) error {
	f.ran.Store(true)
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeApp) Close() { f.closed.Store(true) }

// fakeObsServer records its lifecycle.
type fakeObsServer struct {
	addr     string
	startErr error
	errCh    chan error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (s *fakeObsServer) Start() (<-chan error, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	s.started.Store(true)
	return s.errCh, nil
}

func (s *fakeObsServer) Stop(context.Context) error {
	s.stopped.Store(true)
	return nil
}

func (s *fakeObsServer) Addr() string { return s.addr }

// scriptedPrompter answers prompts in order.
type scriptedPrompter struct {
	answers []string
	labels  []string
}

func (p *scriptedPrompter) next(label string) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.answers) == 0 {
		return "", context.Canceled
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Prompt(label string) (string, error)       { return p.next(label) }
func (p *scriptedPrompter) PromptSecret(label string) (string, error) { return p.next(label) }

// testDeps wires fakes into Deps. cfg may be modified before use.
func testDeps(a *fakeApp, prompter Prompter, obs *fakeObsServer) (*Deps, *config.Config) {
	defaults := config.Default()
	cfg := &defaults
	cfg.Log.Level = "error"
	return &Deps{
		ConfigLoader: func(*cobra.Command) (*config.Config, error) { return cfg, nil },
		AppFactory:   func(app.Options) (Application, error) { return a, nil },
		ObservabilityServerFactory: func(string, *prometheus.Registry, observability.ReadinessChecker) ObservabilityServer {
			return obs
		},
		PrompterFactory: func(*cobra.Command) Prompter { return prompter },
	}, cfg
}

// execute runs the root command with args and returns stdout and stderr.
func execute(deps *Deps, args ...string) (string, string, error) {
	configFile = ""
	cmd := newRootCmd(deps)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
