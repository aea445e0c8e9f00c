// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfriends/vfriends/pkg/errutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false, nil)
	require.NoError(t, err)

	want := Default()
	assert.Equal(t, &want, cfg)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.MaxDelay)
}

func TestLoad_RequiredFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true, nil)
	errutil.AssertErrorCode(t, err, "CONFIG_READ")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  base-delay: 2s
  max-delay: 30s
notify:
  workers: 4
  command: notify-send
secrets:
  backend: memory
log:
  format: json
`)

	cfg, err := Load(path, true, newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Pipeline.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.MaxDelay)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.Equal(t, "notify-send", cfg.Notify.Command)
	assert.Equal(t, BackendMemory, cfg.Secrets.Backend)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched keys keep their defaults
	assert.Equal(t, 64, cfg.Notify.QueueSize)
	assert.Equal(t, 10000, cfg.Notify.MaxPending)
	assert.Equal(t, "vfriends", cfg.API.UserAgent)
}

func TestLoad_ExplicitFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
notify:
  workers: 4
log:
  format: json
`)

	cfg, err := Load(path, true, newFlags(t, "--notify.workers=8", "--pipeline.base-delay=1s"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Notify.Workers)
	assert.Equal(t, time.Second, cfg.Pipeline.BaseDelay)
	assert.Equal(t, "json", cfg.Log.Format, "unset flag must not clobber file value")
}

func TestLoad_SchemaRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  retries: 3\n")

	_, err := Load(path, true, nil)
	errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  base-delay: 10s\n  max-delay: 5s\n")

	_, err := Load(path, true, nil)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "api.base-url"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: "api.timeout"},
		{name: "negative rate", mutate: func(c *Config) { c.API.RateLimit = -1 }, wantErr: "api.rate-limit"},
		{name: "zero burst", mutate: func(c *Config) { c.API.RateBurst = 0 }, wantErr: "api.rate-burst"},
		{name: "unlimited ignores burst", mutate: func(c *Config) { c.API.RateLimit = 0; c.API.RateBurst = 0 }},
		{name: "empty pipeline url", mutate: func(c *Config) { c.Pipeline.URL = "" }, wantErr: "pipeline.url"},
		{name: "zero base delay", mutate: func(c *Config) { c.Pipeline.BaseDelay = 0 }, wantErr: "pipeline.base-delay"},
		{name: "max below base", mutate: func(c *Config) { c.Pipeline.MaxDelay = time.Second }, wantErr: "pipeline.max-delay"},
		{name: "no workers", mutate: func(c *Config) { c.Notify.Workers = 0 }, wantErr: "notify.workers"},
		{name: "no queue", mutate: func(c *Config) { c.Notify.QueueSize = 0 }, wantErr: "notify.queue-size"},
		{name: "limit below queue", mutate: func(c *Config) { c.Notify.MaxPending = 10 }, wantErr: "notify.max-pending"},
		{name: "unknown backend", mutate: func(c *Config) { c.Secrets.Backend = "vault" }, wantErr: "secrets.backend"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, SchemaID, schema["$id"])

	props := schema["properties"].(map[string]any)
	for _, key := range []string{"api", "pipeline", "notify", "secrets", "settings", "log", "metrics-addr"} {
		assert.Contains(t, props, key)
	}

	pipeline := props["pipeline"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "string", pipeline["base-delay"].(map[string]any)["type"])
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "empty document", yaml: ""},
		{name: "comment only", yaml: "# nothing\n"},
		{name: "valid", yaml: "api:\n  rate-limit: 2.5\n  timeout: 10s\nmetrics-addr: 127.0.0.1:9464\n"},
		{name: "bad backend", yaml: "secrets:\n  backend: vault\n", wantErr: true},
		{name: "bare duration", yaml: "pipeline:\n  base-delay: 5\n", wantErr: true},
		{name: "malformed duration", yaml: "pipeline:\n  base-delay: soon\n", wantErr: true},
		{name: "wrong type", yaml: "notify:\n  workers: many\n", wantErr: true},
		{name: "unknown top-level", yaml: "friends: []\n", wantErr: true},
		{name: "broken yaml", yaml: "api: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
