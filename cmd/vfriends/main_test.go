// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfriends/vfriends/internal/config"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	subcommands := []string{"run", "login", "logout", "status", "friends", "world", "settings", "version"}
	for _, sub := range subcommands {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "config flag",
			args:     []string{"--config", "/path/to/config.yaml", "--help"},
			wantFlag: "/path/to/config.yaml",
		},
		{
			name:     "config flag with equals",
			args:     []string{"--config=/etc/vfriends.yaml", "--help"},
			wantFlag: "/etc/vfriends.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""

			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestRootCommand_RegistersConfigFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"api.base-url", "pipeline.base-delay", "notify.command", "secrets.backend", "metrics-addr"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %q", name)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(nil, "version")

	require.NoError(t, err)
	assert.Contains(t, stdout, "vfriends "+version)
	assert.Contains(t, stdout, "commit: "+commit)
}

func TestLoadConfig_ExplicitFileMustExist(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, _, err := execute(nil, "--config", "/nonexistent/vfriends.yaml", "settings", "show")

	require.Error(t, err)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  base-delay: 2s\n  max-delay: 30s\n"), 0o600))
	configFile = path
	t.Cleanup(func() { configFile = "" })

	cmd := &cobra.Command{}
	config.RegisterFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--pipeline.max-delay=45s"}))

	cfg, err := loadConfig(cmd)

	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.BaseDelay)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.MaxDelay)
}
