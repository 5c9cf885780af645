// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contentloop/contentloop/internal/config"
	"github.com/contentloop/contentloop/internal/provider"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGatewayConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.FromViper(config.New())
	require.NoError(t, err)
	cfg.Networking.Listen = "127.0.0.1:0"
	cfg.Providers = map[string]config.ProviderConfig{
		"openai":    {APIKey: "sk-test"},
		"anthropic": {APIKey: ""},
	}
	cfg.Models.Default = "openai/gpt-4.1"
	cfg.Models.Failover = []string{"anthropic/claude-sonnet-4", "openai/gpt-4.1-mini"}
	cfg.Storage.Backend = "memory"
	return cfg
}

func TestWireGateway(t *testing.T) {
	cfg := testGatewayConfig(t)

	gw, err := WireGateway(cfg, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	assert.NotNil(t, gw.Server)
	assert.NotNil(t, gw.Sessions)
	assert.NotNil(t, gw.Engine)
	assert.Equal(t, []string{"openai"}, gw.ProviderRegistry.Names(), "providers without keys are skipped")
	assert.Equal(t, "openai/gpt-4.1", gw.ProviderRegistry.DefaultRef())
	assert.Equal(t, 2, gw.ProviderRegistry.MaxAttempts(), "unregistered failover refs are dropped")

	srv := httptest.NewServer(gw.Server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sessions/stats")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.EqualValues(t, 0, stats["total"])
	assert.EqualValues(t, 300, stats["ttl_seconds"])
}

func TestWireGateway_SQLiteBackend(t *testing.T) {
	cfg := testGatewayConfig(t)
	cfg.Storage.Backend = "sqlite"

	gw, err := WireGateway(cfg, t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, gw.Close())
}

func TestWireGateway_MissingDefaultProvider(t *testing.T) {
	cfg := testGatewayConfig(t)
	cfg.Models.Default = "google/gemini-2.5-flash"

	_, err := WireGateway(cfg, "")
	require.Error(t, err)
	assert.True(t, looperr.HasCode(err, looperr.CodeCLISetupFailure))
	assert.Contains(t, err.Error(), "contentloop secret set google")
}

func TestWireGateway_FactoryFailureSkipsProvider(t *testing.T) {
	old := builtinProviderFactories["anthropic"]
	t.Cleanup(func() { builtinProviderFactories["anthropic"] = old })
	builtinProviderFactories["anthropic"] = func(config.ProviderConfig) (provider.Provider, error) {
		return nil, errors.New("boom")
	}

	cfg := testGatewayConfig(t)
	cfg.Providers["anthropic"] = config.ProviderConfig{APIKey: "sk-ant"}

	gw, err := WireGateway(cfg, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	assert.Equal(t, []string{"openai"}, gw.ProviderRegistry.Names())
}

func TestGateway_GracefulShutdown(t *testing.T) {
	cfg := testGatewayConfig(t)
	gw, err := WireGateway(cfg, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- gw.Start(ctx) }()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not shut down")
	}
	assert.NoError(t, gw.Close())
}

func TestWireGateway_InvalidSafetyMode(t *testing.T) {
	cfg := testGatewayConfig(t)
	cfg.Safety.OutputMode = "shred"

	_, err := WireGateway(cfg, "")
	require.Error(t, err)
	assert.True(t, looperr.HasCode(err, looperr.CodeSafetyModeInvalid))
}
