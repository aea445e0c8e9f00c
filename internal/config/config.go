// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package config loads vfriends configuration from defaults, an optional YAML
// file and command-line flags.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Secret storage backends.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Config is the complete vfriends configuration.
type Config struct {
	API         APIConfig      `koanf:"api" json:"api,omitempty"`
	Pipeline    PipelineConfig `koanf:"pipeline" json:"pipeline,omitempty"`
	Notify      NotifyConfig   `koanf:"notify" json:"notify,omitempty"`
	Secrets     SecretsConfig  `koanf:"secrets" json:"secrets,omitempty"`
	Settings    SettingsConfig `koanf:"settings" json:"settings,omitempty"`
	Log         LogConfig      `koanf:"log" json:"log,omitempty"`
	MetricsAddr string         `koanf:"metrics-addr" json:"metrics-addr,omitempty" jsonschema:"description=metrics/health HTTP address (empty disables)"`
}

// APIConfig configures the remote REST client.
type APIConfig struct {
	BaseURL   string        `koanf:"base-url" json:"base-url,omitempty" jsonschema:"format=uri"`
	UserAgent string        `koanf:"user-agent" json:"user-agent,omitempty"`
	Timeout   time.Duration `koanf:"timeout" json:"timeout,omitempty"`
	RateLimit float64       `koanf:"rate-limit" json:"rate-limit,omitempty" jsonschema:"minimum=0,description=requests per second (0 disables limiting)"`
	RateBurst int           `koanf:"rate-burst" json:"rate-burst,omitempty" jsonschema:"minimum=1"`
}

// PipelineConfig configures the event stream and its reconnect backoff.
type PipelineConfig struct {
	URL       string        `koanf:"url" json:"url,omitempty" jsonschema:"format=uri"`
	Origin    string        `koanf:"origin" json:"origin,omitempty"`
	BaseDelay time.Duration `koanf:"base-delay" json:"base-delay,omitempty"`
	MaxDelay  time.Duration `koanf:"max-delay" json:"max-delay,omitempty"`
}

// NotifyConfig configures notification dispatch.
type NotifyConfig struct {
	Workers    int    `koanf:"workers" json:"workers,omitempty" jsonschema:"minimum=1"`
	QueueSize  int    `koanf:"queue-size" json:"queue-size,omitempty" jsonschema:"minimum=1"`
	MaxPending int    `koanf:"max-pending" json:"max-pending,omitempty" jsonschema:"minimum=1"`
	Command    string `koanf:"command" json:"command,omitempty" jsonschema:"description=desktop notification helper (empty logs only)"`
	Icons      bool   `koanf:"icons" json:"icons,omitempty"`
	Title      string `koanf:"title" json:"title,omitempty"`
}

// SecretsConfig selects where the session cookie is persisted.
type SecretsConfig struct {
	Backend      string `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=keyring,enum=file,enum=memory"`
	File         string `koanf:"file" json:"file,omitempty"`
	IdentityFile string `koanf:"identity-file" json:"identity-file,omitempty"`
}

// SettingsConfig locates the notification preferences file.
type SettingsConfig struct {
	File string `koanf:"file" json:"file,omitempty"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=text,enum=json"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "https://api.vrchat.cloud/api/1",
			UserAgent: "vfriends",
			Timeout:   30 * time.Second,
			RateLimit: 5,
			RateBurst: 10,
		},
		Pipeline: PipelineConfig{
			URL:       "wss://pipeline.vrchat.cloud/",
			Origin:    "https://vrchat.com",
			BaseDelay: 5 * time.Second,
			MaxDelay:  60 * time.Second,
		},
		Notify: NotifyConfig{
			Workers:   2,
			QueueSize:  64,
			MaxPending: 10000,
			Icons:     true,
			Title:     "VRChat",
		},
		Secrets: SecretsConfig{
			Backend: BackendKeyring,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// RegisterFlags adds one flag per config key to fs, defaulted from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("api.base-url", d.API.BaseURL, "remote API base URL")
	fs.String("api.user-agent", d.API.UserAgent, "User-Agent sent to the API and pipeline")
	fs.Duration("api.timeout", d.API.Timeout, "per-request timeout")
	fs.Float64("api.rate-limit", d.API.RateLimit, "API requests per second (0 disables limiting)")
	fs.Int("api.rate-burst", d.API.RateBurst, "API request burst")
	fs.String("pipeline.url", d.Pipeline.URL, "event pipeline websocket URL")
	fs.String("pipeline.origin", d.Pipeline.Origin, "Origin header for the pipeline handshake")
	fs.Duration("pipeline.base-delay", d.Pipeline.BaseDelay, "initial reconnect delay")
	fs.Duration("pipeline.max-delay", d.Pipeline.MaxDelay, "maximum reconnect delay")
	fs.Int("notify.workers", d.Notify.Workers, "notification workers")
	fs.Int("notify.queue-size", d.Notify.QueueSize, "notification backlog that triggers a warning")
	fs.Int("notify.max-pending", d.Notify.MaxPending, "notification backlog limit")
	fs.String("notify.command", d.Notify.Command, "notification helper command, e.g. notify-send (empty logs only)")
	fs.Bool("notify.icons", d.Notify.Icons, "download friend icons for notifications")
	fs.String("notify.title", d.Notify.Title, "notification title")
	fs.String("secrets.backend", d.Secrets.Backend, "session storage backend (keyring, file or memory)")
	fs.String("secrets.file", d.Secrets.File, "sealed session file (default: XDG_DATA_HOME/vfriends/session.age)")
	fs.String("secrets.identity-file", d.Secrets.IdentityFile, "age identity file (default: XDG_CONFIG_HOME/vfriends/identity.txt)")
	fs.String("settings.file", d.Settings.File, "notification preferences file (default: XDG_CONFIG_HOME/vfriends/settings.json)")
	fs.String("log.format", d.Log.Format, "log format (json or text)")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
}

// Load builds a Config from defaults, the YAML file at path and flags.
// A missing file is only an error when required is true. Flags that were
// explicitly set override the file; unset flags never do.
func Load(path string, required bool, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own flag or XDG dir
		switch {
		case errors.Is(err, fs.ErrNotExist) && !required:
		case err != nil:
			return nil, oops.Code("CONFIG_READ").With("path", path).Wrap(err)
		default:
			if err := ValidateSchema(data); err != nil {
				return nil, oops.Code("CONFIG_SCHEMA").With("path", path).Wrap(err)
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_PARSE").With("path", path).Wrap(err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	errb := oops.Code("CONFIG_INVALID")
	switch {
	case c.API.BaseURL == "":
		return errb.Errorf("api.base-url is required")
	case c.API.Timeout <= 0:
		return errb.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	case c.API.RateLimit < 0:
		return errb.Errorf("api.rate-limit must not be negative, got %v", c.API.RateLimit)
	case c.API.RateLimit > 0 && c.API.RateBurst < 1:
		return errb.Errorf("api.rate-burst must be at least 1, got %d", c.API.RateBurst)
	case c.Pipeline.URL == "":
		return errb.Errorf("pipeline.url is required")
	case c.Pipeline.BaseDelay <= 0:
		return errb.Errorf("pipeline.base-delay must be positive, got %s", c.Pipeline.BaseDelay)
	case c.Pipeline.MaxDelay < c.Pipeline.BaseDelay:
		return errb.Errorf("pipeline.max-delay (%s) must not be less than pipeline.base-delay (%s)",
			c.Pipeline.MaxDelay, c.Pipeline.BaseDelay)
	case c.Notify.Workers < 1:
		return errb.Errorf("notify.workers must be at least 1, got %d", c.Notify.Workers)
	case c.Notify.QueueSize < 1:
		return errb.Errorf("notify.queue-size must be at least 1, got %d", c.Notify.QueueSize)
	case c.Notify.MaxPending < c.Notify.QueueSize:
		return errb.Errorf("notify.max-pending (%d) must not be less than notify.queue-size (%d)",
			c.Notify.MaxPending, c.Notify.QueueSize)
	}

	switch c.Secrets.Backend {
	case BackendKeyring, BackendFile, BackendMemory:
	default:
		return errb.Errorf("secrets.backend must be 'keyring', 'file' or 'memory', got %q", c.Secrets.Backend)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return errb.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}
