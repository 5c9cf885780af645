// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/contentloop/contentloop/internal/engine"
	"github.com/contentloop/contentloop/internal/generate"
	"github.com/contentloop/contentloop/internal/guard"
	"github.com/contentloop/contentloop/internal/optimize"
	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/internal/server"
	"github.com/contentloop/contentloop/internal/session"
	"github.com/contentloop/contentloop/internal/store/memory"
	"github.com/stretchr/testify/require"
)

// fakeGenerator drafts deterministically from the brief and appends each
// feedback line to the previous draft.
type fakeGenerator struct {
	mu        sync.Mutex
	reviseErr error
	calls     int
}

func (g *fakeGenerator) Draft(_ context.Context, req generate.DraftRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return "Draft about " + req.Brief, nil
}

func (g *fakeGenerator) Revise(_ context.Context, req generate.RevisionRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.reviseErr != nil {
		return "", g.reviseErr
	}
	return req.Draft + " + " + req.Feedback, nil
}

func (g *fakeGenerator) failRevisions(err error) {
	g.mu.Lock()
	g.reviseErr = err
	g.mu.Unlock()
}

// fakeCompleter returns a canned model reply.
type fakeCompleter struct {
	reply string
	err   error
}

func (c *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	return c.reply, c.err
}

type fakeProviders struct {
	statuses []provider.ProviderStatus
}

func (p *fakeProviders) Statuses(context.Context) []provider.ProviderStatus {
	return p.statuses
}

type testEnv struct {
	srv      *server.Server
	gen      *fakeGenerator
	sessions *session.Store
}

type envOption func(*envConfig)

type envConfig struct {
	guard     guard.Config
	completer *fakeCompleter
	providers server.ProviderService
	screener  engine.Screener
}

func withGuard(cfg guard.Config) envOption {
	return func(c *envConfig) { c.guard = cfg }
}

func withCompleter(c *fakeCompleter) envOption {
	return func(cfg *envConfig) { cfg.completer = c }
}

func withScreener(s engine.Screener) envOption {
	return func(c *envConfig) { c.screener = s }
}

func withProviders(p server.ProviderService) envOption {
	return func(c *envConfig) { c.providers = p }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{completer: &fakeCompleter{err: errors.New("model offline")}}
	for _, opt := range opts {
		opt(&cfg)
	}

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	g, err := guard.New(cfg.guard, done)
	require.NoError(t, err)

	sessions := session.New(memory.NewSessionStore(), session.Config{TTL: time.Hour, MaxPending: 8})
	t.Cleanup(func() { _ = sessions.Close() })

	gen := &fakeGenerator{}
	eng := engine.New(sessions, gen, g, engine.Config{GenerationTimeout: 5 * time.Second, Screener: cfg.screener})
	opt := optimize.New(cfg.completer, g)

	svc, err := server.NewServices(eng, sessions, opt, cfg.providers)
	require.NoError(t, err)
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Services: svc})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	return &testEnv{srv: srv, gen: gen, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

type sessionBody struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	Draft         string `json:"draft"`
	RevisionCount int    `json:"revision_count"`
	Message       string `json:"message"`
}

type errorBody struct {
	Status    int    `json:"status"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Reason    string `json:"reason"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Draft     string `json:"draft"`
}

func (e *testEnv) start(t *testing.T, brief string) sessionBody {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{
		"brief": brief, "content_length": "short", "style": "casual",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[sessionBody](t, w)
}

func newPreflight(path, origin string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	return req
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	return w
}
