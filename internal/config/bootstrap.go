// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

//go:embed contentloop.yaml.default
var DefaultConfigYAML []byte

// SearchPaths lists the directories scanned for contentloop.yaml, in order.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "contentloop"))
	}
	return append(paths, "/etc/contentloop")
}

// DefaultConfigPath returns ~/.config/contentloop/contentloop.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", looperr.Errorf(looperr.CodeConfigLoadReadFailure, "resolving home directory: %v", err)
	}
	return filepath.Join(home, ".config", "contentloop", "contentloop.yaml"), nil
}

// BootstrapConfig writes the commented default config to path if nothing is
// there yet. It returns true when a file was written. Failures are logged
// and skipped.
func BootstrapConfig(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return false
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return false
	}

	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", path, "error", err)
		return false
	}

	slog.Info("created default config", "path", path)
	return true
}
