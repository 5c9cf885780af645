// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestDoctor_RunsAllChecks(t *testing.T) {
	isolateHome(t)
	useMockStore(t)

	out, err := execute(t, "", "doctor", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	for _, name := range []string{"Binary:", "Platform:", "Config:", "Provider Keys:", "Gateway:", "Disk Space:"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "using defaults")
	assert.Contains(t, out, "none in keyring")
	assert.Contains(t, out, "not running at 127.0.0.1:1")
}

func TestDoctor_GatewayRunningAndKeysStored(t *testing.T) {
	isolateHome(t)
	store := useMockStore(t)
	store.data["contentloop/openai-api-key"] = "sk"
	store.data["contentloop/google-api-key"] = "AIza"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	out, err := execute(t, "", "doctor", "--address", addrOf(srv))
	require.NoError(t, err)
	assert.Contains(t, out, "ok at "+addrOf(srv))
	assert.Contains(t, out, "stored for google, openai")
}

func TestDoctor_ReportsConfigErrors(t *testing.T) {
	isolateHome(t)
	useMockStore(t)
	path := filepath.Join(t.TempDir(), "contentloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions:\n  ttl: 0s\n"), 0o600))

	out, err := execute(t, "", "doctor", "--config", path, "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "sessions.ttl")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 MB", formatBytes(3*1024*1024/2))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
