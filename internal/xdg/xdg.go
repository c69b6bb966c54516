// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

// Package xdg resolves XDG Base Directory paths for authd.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "authd"

// ConfigFileName is the config file looked up in ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for authd.
// Checks XDG_CONFIG_HOME first, falls back to $HOME/.config.
// Returns "" when neither variable is set.
func ConfigDir(getenv func(string) string) string {
	base := getenv("XDG_CONFIG_HOME")
	if base == "" {
		home := getenv("HOME")
		if home == "" {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of config.yaml in ConfigDir if that
// file exists, or "" otherwise.
func DefaultConfigFile(getenv func(string) string) string {
	dir := ConfigDir(getenv)
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

