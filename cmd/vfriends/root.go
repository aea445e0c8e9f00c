// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vfriends/vfriends/internal/config"
	"github.com/vfriends/vfriends/internal/logging"
	"github.com/vfriends/vfriends/internal/xdg"
)

const serviceName = "vfriends"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the vfriends CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vfriends",
		Short: "vfriends - friend-online notifications for VRChat",
		Long: `vfriends signs in to VRChat, listens to the realtime event pipeline
and raises a desktop notification when a friend comes online.`,
		SilenceUsage: true,
	}
	// Command output is data; diagnostics and prompts go to stderr.
	cmd.SetOut(os.Stdout)

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/vfriends/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRunCmd(deps))
	cmd.AddCommand(newLoginCmd(deps))
	cmd.AddCommand(newLogoutCmd(deps))
	cmd.AddCommand(newStatusCmd(deps))
	cmd.AddCommand(newFriendsCmd(deps))
	cmd.AddCommand(newWorldCmd(deps))
	cmd.AddCommand(newSettingsCmd(deps))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig reads the config file and the command's flags. The default
// file location is optional; an explicit --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	required := path != ""
	if path == "" {
		path = xdg.ConfigFile()
	}
	return config.Load(path, required, cmd.Flags())
}

// newLogger builds the command's logger from cfg, writing to stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.Setup(serviceName, version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())
}
