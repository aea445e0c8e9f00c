// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package xdg provides XDG Base Directory paths for vfriends.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "vfriends"

// ConfigDir returns the XDG config directory for vfriends.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	return dir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for vfriends.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	return dir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// CacheDir returns the XDG cache directory for vfriends.
// Checks XDG_CACHE_HOME first, falls back to ~/.cache.
func CacheDir() string {
	return dir("XDG_CACHE_HOME", ".cache")
}

// ConfigFile is the default location of config.yaml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// SettingsFile is the default location of the notification preferences.
func SettingsFile() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// SessionFile is the default location of the age-sealed session cookie.
func SessionFile() string {
	return filepath.Join(DataDir(), "session.age")
}

// IdentityFile is the default location of the age identity that seals SessionFile.
func IdentityFile() string {
	return filepath.Join(ConfigDir(), "identity.txt")
}

// IconCacheDir holds downloaded friend icons.
func IconCacheDir() string {
	return filepath.Join(CacheDir(), "icons")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

func dir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, appName)
}
