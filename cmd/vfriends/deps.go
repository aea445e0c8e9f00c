// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vfriends/vfriends/internal/app"
	"github.com/vfriends/vfriends/internal/auth"
	"github.com/vfriends/vfriends/internal/config"
	"github.com/vfriends/vfriends/internal/observability"
	"github.com/vfriends/vfriends/internal/vrchat"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// ConfigLoader loads configuration for a command.
	// Default: loadConfig
	ConfigLoader func(cmd *cobra.Command) (*config.Config, error)

	// AppFactory creates the application.
	// Default: app.New
	AppFactory func(opts app.Options) (Application, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, registry *prometheus.Registry, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// PrompterFactory creates the interactive prompter used by login.
	// Default: newTerminalPrompter
	PrompterFactory func(cmd *cobra.Command) Prompter
}

// Application is the surface of app.App the commands drive.
type Application interface {
	BeginLogin(ctx context.Context, username, password string) auth.Outcome
	VerifyTwoFactor(ctx context.Context, code, method string) auth.Outcome
	RestoreSession(ctx context.Context) *auth.User
	Logout() auth.Outcome
	State() auth.State
	FetchFriends(ctx context.Context) ([]vrchat.Friend, error)
	FetchWorld(ctx context.Context, id string) (*vrchat.World, error)
	Ready() bool
	PipelineRunning() bool
	Registry() *prometheus.Registry
	Run(ctx context.Context) error
	Close()
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// withDefaults returns a copy of d with nil fields filled in.
func (d *Deps) withDefaults() *Deps {
	var out Deps
	if d != nil {
		out = *d
	}
	if out.ConfigLoader == nil {
		out.ConfigLoader = loadConfig
	}
	if out.AppFactory == nil {
		out.AppFactory = func(opts app.Options) (Application, error) {
			return app.New(opts)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, registry *prometheus.Registry, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, registry, ready)
		}
	}
	if out.PrompterFactory == nil {
		out.PrompterFactory = newTerminalPrompter
	}
	return &out
}

// setupApp loads config and builds the application for cmd.
func setupApp(cmd *cobra.Command, deps *Deps) (*config.Config, Application, error) {
	cfg, err := deps.ConfigLoader(cmd)
	if err != nil {
		return nil, nil, err
	}
	a, err := deps.AppFactory(app.Options{Config: cfg, Logger: newLogger(cmd, cfg)})
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}
