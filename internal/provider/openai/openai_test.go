// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package openai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/internal/provider/openai"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ provider.Provider       = (*openai.Provider)(nil)
	_ provider.HealthReporter = (*openai.Provider)(nil)
)

func TestOpenAIProvider_MissingAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
	assert.True(t, looperr.HasCode(err, looperr.CodeProviderRequestInvalid))
}

func TestOpenAIProvider_Metadata(t *testing.T) {
	p := mustNewProvider(t, "")
	ctx := context.Background()

	assert.Equal(t, "openai", p.Name())
	models, err := p.ListModels(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, "gpt-4.1")

	status, err := p.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Available)
	assert.Equal(t, "openai", status.Provider)
}

func TestBuildParams(t *testing.T) {
	temp := float32(0.4)
	params, err := openai.BuildParams(provider.ChatRequest{
		Model:        "gpt-4.1",
		SystemPrompt: "system",
		Messages: []provider.Message{
			{Role: provider.MessageRoleUser, Content: "draft"},
			{Role: provider.MessageRoleAssistant, Content: "ok"},
		},
		Options: provider.ChatOptions{Temperature: &temp, MaxTokens: 300},
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", string(params.Model))
	assert.Len(t, params.Messages, 3, "system prompt is prepended")
	assert.Equal(t, int64(300), params.MaxCompletionTokens.Value)
	assert.InDelta(t, 0.4, params.Temperature.Value, 0.001)

	_, err = openai.BuildParams(provider.ChatRequest{Messages: []provider.Message{{Role: "tool"}}})
	assert.True(t, looperr.HasCode(err, looperr.CodeProviderRequestInvalid))
}

const completionStream = `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1","choices":[{"index":0,"delta":{"role":"assistant","content":"Ship "},"finish_reason":null}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1","choices":[{"index":0,"delta":{"content":"it."},"finish_reason":"stop"}]}

data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4.1","choices":[],"usage":{"prompt_tokens":9,"completion_tokens":3,"total_tokens":12}}

data: [DONE]

`

func TestOpenAIProvider_ChatStreamsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "contentloop", r.Header.Get("X-Title"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(completionStream))
	}))
	defer srv.Close()

	p, err := openai.NewCompatible("openai", openai.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Headers: map[string]string{"X-Title": "contentloop"},
	}, nil)
	require.NoError(t, err)

	events, err := p.Chat(context.Background(), provider.ChatRequest{
		Model:    "gpt-4.1",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	text, usage, err := provider.Collect(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, "Ship it.", text)
	assert.Equal(t, provider.Usage{InputTokens: 9, OutputTokens: 3}, usage)
}

func TestOpenAIProvider_ChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := mustNewProvider(t, srv.URL)
	events, err := p.Chat(context.Background(), provider.ChatRequest{
		Model:    "gpt-4.1",
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	_, _, err = provider.Collect(context.Background(), events)
	require.Error(t, err)
	assert.True(t, looperr.IsUpstreamFailure(err))
	assert.False(t, p.Available(context.Background()))
}

func mustNewProvider(t *testing.T, baseURL string) *openai.Provider {
	t.Helper()
	p, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return p
}
