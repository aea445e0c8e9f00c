// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package app wires the session manager, event pipeline and notification
// dispatcher into the command surface a UI drives.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/vfriends/vfriends/internal/auth"
	"github.com/vfriends/vfriends/internal/config"
	"github.com/vfriends/vfriends/internal/event"
	"github.com/vfriends/vfriends/internal/eventbus"
	"github.com/vfriends/vfriends/internal/friends"
	"github.com/vfriends/vfriends/internal/notify"
	"github.com/vfriends/vfriends/internal/observability"
	"github.com/vfriends/vfriends/internal/pipeline"
	"github.com/vfriends/vfriends/internal/secret"
	"github.com/vfriends/vfriends/internal/settings"
	"github.com/vfriends/vfriends/internal/vrchat"
	"github.com/vfriends/vfriends/internal/xdg"
)

// Event types published on eventbus.TopicFriends.
const (
	EventFriendsList = "list"
)

const msgNotLoggedIn = "Not logged in"

// Options configures an App. Only Config is required; every other field
// falls back to what Config describes.
type Options struct {
	Config *config.Config
	// Secrets overrides the store selected by Config.Secrets.
	Secrets secret.Store
	// Notifier overrides the notifier built from Config.Notify.
	Notifier notify.Notifier
	Logger   *slog.Logger
	// Registry receives the vfriends metrics. A fresh one is created when nil.
	Registry *prometheus.Registry
}

// App owns one session and everything hanging off it.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *observability.Metrics
	bus        *eventbus.Bus
	settings   *settings.Store
	dispatcher *notify.Dispatcher
	supervisor *pipeline.Supervisor
	auth       *auth.Manager

	closeOnce sync.Once
}

// worldGetter is the part of the API client FetchWorld needs.
type worldGetter interface {
	World(ctx context.Context, id string) (*vrchat.World, error)
}

// New builds an App. The saved session cookie is loaded but not verified;
// call RestoreSession or Run for that.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, oops.Errorf("config is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := opts.Registry
	if registry == nil {
		registry = observability.NewRegistry()
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  observability.NewMetrics(registry),
	}

	bus, err := eventbus.NewWithLogger(logger.With("component", "eventbus"))
	if err != nil {
		return nil, err
	}
	a.bus = bus

	settingsPath := cfg.Settings.File
	if settingsPath == "" {
		settingsPath = xdg.SettingsFile()
	}
	a.settings, err = settings.NewStoreWithLogger(settingsPath, logger.With("component", "settings"))
	if err != nil {
		return nil, err
	}

	resolver, err := notify.NewResolver(a.settings)
	if err != nil {
		return nil, err
	}

	var icons notify.IconFetcher
	if cfg.Notify.Icons {
		cache, err := notify.NewIconCache(xdg.IconCacheDir(), &http.Client{Timeout: cfg.API.Timeout}, cfg.API.UserAgent)
		if err != nil {
			return nil, err
		}
		icons = cache
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = a.defaultNotifier()
	}

	a.dispatcher, err = notify.NewDispatcher(notify.DispatcherConfig{
		Resolver:   resolver,
		Notifier:   notifier,
		Icons:      icons,
		Title:      cfg.Notify.Title,
		Workers:    cfg.Notify.Workers,
		QueueSize:  cfg.Notify.QueueSize,
		MaxPending: cfg.Notify.MaxPending,
		Logger:     logger.With("component", "notify"),
		Metrics:    a.metrics,
		OnEvent: func(ev event.Event) {
			a.bus.Publish(eventbus.TopicPipeline, ev.Kind(), ev)
		},
	})
	if err != nil {
		return nil, err
	}

	a.supervisor, err = pipeline.NewSupervisor(pipeline.SupervisorConfig{
		Listener: &pipeline.StreamClient{
			URL:     cfg.Pipeline.URL,
			Origin:  cfg.Pipeline.Origin,
			Logger:  logger.With("component", "stream"),
			Metrics: a.metrics,
		},
		Handler:   a.dispatcher.Handle,
		BaseDelay: cfg.Pipeline.BaseDelay,
		MaxDelay:  cfg.Pipeline.MaxDelay,
		Logger:    logger.With("component", "pipeline"),
		Metrics:   a.metrics,
	})
	if err != nil {
		a.dispatcher.Close()
		return nil, err
	}

	secrets := opts.Secrets
	if secrets == nil {
		secrets, err = openSecrets(cfg.Secrets)
		if err != nil {
			a.dispatcher.Close()
			return nil, err
		}
	}

	authEvents := a.bus.Emitter(eventbus.TopicAuth)
	a.auth, err = auth.NewManager(auth.ManagerConfig{
		Clients:  a.newClient,
		Secrets:  secrets,
		Pipeline: a.supervisor,
		Events: auth.EmitterFunc(func(o auth.Outcome) {
			authEvents.Emit(string(o.Type), o)
		}),
		Logger:  logger.With("component", "auth"),
		Metrics: a.metrics,
	})
	if err != nil {
		a.dispatcher.Close()
		return nil, err
	}

	return a, nil
}

func openSecrets(cfg config.SecretsConfig) (secret.Store, error) {
	opts := secret.OpenOptions{
		Backend:      cfg.Backend,
		File:         cfg.File,
		IdentityFile: cfg.IdentityFile,
	}
	if opts.File == "" {
		opts.File = xdg.SessionFile()
	}
	if opts.IdentityFile == "" {
		opts.IdentityFile = xdg.IdentityFile()
	}
	return secret.Open(opts)
}

func (a *App) defaultNotifier() notify.Notifier {
	logged := notify.LogNotifier{Logger: a.logger.With("component", "notifier")}
	if a.cfg.Notify.Command == "" {
		return logged
	}
	return notify.MultiNotifier{logged, notify.CommandNotifier{Command: a.cfg.Notify.Command}}
}

func (a *App) newClient(cookieHeader string) (auth.APIClient, error) {
	return vrchat.NewClient(vrchat.Options{
		BaseURL:      a.cfg.API.BaseURL,
		UserAgent:    a.cfg.API.UserAgent,
		Timeout:      a.cfg.API.Timeout,
		RateLimit:    a.cfg.API.RateLimit,
		RateBurst:    a.cfg.API.RateBurst,
		CookieHeader: cookieHeader,
		Logger:       a.logger.With("component", "vrchat"),
	})
}

// BeginLogin starts a credential login. See auth.Manager.BeginLogin.
func (a *App) BeginLogin(ctx context.Context, username, password string) auth.Outcome {
	return a.auth.BeginLogin(ctx, username, password)
}

// VerifyTwoFactor answers a pending challenge. See auth.Manager.VerifyTwoFactor.
func (a *App) VerifyTwoFactor(ctx context.Context, code, method string) auth.Outcome {
	return a.auth.VerifyTwoFactor(ctx, code, method)
}

// RestoreSession validates the saved cookie and, on success, starts the
// pipeline. It returns nil when there is no usable session.
func (a *App) RestoreSession(ctx context.Context) *auth.User {
	return a.auth.RestoreSession(ctx)
}

// Logout ends the session and forgets the saved cookie.
func (a *App) Logout() auth.Outcome {
	return a.auth.Logout()
}

// State returns a snapshot of the session.
func (a *App) State() auth.State {
	return a.auth.State()
}

// Ready reports whether a session is authenticated.
func (a *App) Ready() bool {
	return a.auth.State().Authenticated()
}

// FetchFriends lists every friend of the logged-in account and publishes the
// result on eventbus.TopicFriends.
func (a *App) FetchFriends(ctx context.Context) ([]vrchat.Friend, error) {
	if !a.Ready() {
		return nil, oops.Code("APP_NOT_AUTHENTICATED").Public(msgNotLoggedIn).Errorf("fetch friends without a session")
	}
	lister, ok := a.auth.Client().(friends.Lister)
	if !ok {
		return nil, oops.Code("APP_CLIENT").Errorf("API client cannot list friends")
	}

	list, err := friends.FetchAll(ctx, lister)
	if err != nil {
		return nil, err
	}
	a.bus.Emitter(eventbus.TopicFriends).Emit(EventFriendsList, list)
	return list, nil
}

// FetchWorld looks up a world by id.
func (a *App) FetchWorld(ctx context.Context, id string) (*vrchat.World, error) {
	if !a.Ready() {
		return nil, oops.Code("APP_NOT_AUTHENTICATED").Public(msgNotLoggedIn).Errorf("fetch world without a session")
	}
	getter, ok := a.auth.Client().(worldGetter)
	if !ok {
		return nil, oops.Code("APP_CLIENT").Errorf("API client cannot fetch worlds")
	}
	return getter.World(ctx, id)
}

// Settings returns the notification preferences store.
func (a *App) Settings() *settings.Store {
	return a.settings
}

// Bus returns the application event bus.
func (a *App) Bus() *eventbus.Bus {
	return a.bus
}

// Registry returns the registry holding the vfriends metrics.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// PipelineRunning reports whether the event stream is being supervised.
func (a *App) PipelineRunning() bool {
	return a.supervisor.Running()
}

// Run restores the saved session, hot reloads settings and blocks until ctx
// is cancelled. A missing or rejected session is not an error: the app
// keeps running and waits for a login.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.settings.Snapshot(ctx); err != nil {
		return err
	}

	if user := a.RestoreSession(ctx); user != nil {
		a.logger.Info("session restored", "user_id", user.ID, "display_name", user.DisplayName)
	} else {
		a.logger.Info("no saved session, waiting for login")
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- a.settings.Watch(ctx)
	}()

	select {
	case <-ctx.Done():
		<-watchErr
		return nil
	case err := <-watchErr:
		if err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
}

// Close stops the pipeline and drains pending notifications. The session
// cookie stays saved. Close is idempotent.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.supervisor.Stop()
		a.dispatcher.Close()
	})
}
