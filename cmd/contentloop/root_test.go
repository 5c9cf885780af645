// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func addrOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	for _, want := range []string{"contentloop", "start", "status", "version", "draft", "optimize", "secret", "--config", "--data-dir", "--verbose", "--address"} {
		assert.Contains(t, out, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "contentloop dev")
}

func TestStartCommand_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "", "start", "--config", "/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestStatusCommand_HealthyGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/api/v1/providers":
			_, _ = w.Write([]byte(`{"providers":[{"provider":"google","available":true,"message":"ok","failure_count":0}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := execute(t, "", "status", "--address", addrOf(srv))
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "PROVIDER")
	assert.Contains(t, out, "google")
}

func TestStatusCommand_GatewayDown(t *testing.T) {
	out, err := execute(t, "", "status", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}
