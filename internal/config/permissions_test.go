// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

//go:build !windows

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestWarnInsecurePermissions(t *testing.T) {
	tests := []struct {
		name       string
		perm       os.FileMode
		expectWarn bool
	}{
		{name: "owner only 0600", perm: 0o600},
		{name: "read only 0400", perm: 0o400},
		{name: "group readable 0640", perm: 0o640, expectWarn: true},
		{name: "other readable 0604", perm: 0o604, expectWarn: true},
		{name: "world readable 0644", perm: 0o644, expectWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "contentloop.yaml")
			require.NoError(t, os.WriteFile(path, []byte("sessions:\n  ttl: 5m\n"), tt.perm))

			logs := captureLogs(t)
			WarnInsecurePermissions(path)

			if tt.expectWarn {
				assert.Contains(t, logs.String(), "insecure permissions")
				assert.Contains(t, logs.String(), path)
				assert.Contains(t, logs.String(), "0600")
			} else {
				assert.NotContains(t, logs.String(), "insecure permissions")
			}
		})
	}
}

func TestWarnInsecurePermissions_NoFile(t *testing.T) {
	logs := captureLogs(t)
	WarnInsecurePermissions("")
	assert.Empty(t, logs.String())

	WarnInsecurePermissions("/nonexistent/contentloop.yaml")
	assert.NotContains(t, logs.String(), "insecure permissions")
}
