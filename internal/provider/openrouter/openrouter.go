// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package openrouter routes drafts through OpenRouter's OpenAI-compatible API.
package openrouter

import (
	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/internal/provider/openai"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

const (
	providerName   = "openrouter"
	defaultBaseURL = "https://openrouter.ai/api/v1"
)

// Config holds OpenRouter provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, points the client at a mock server in tests
	// AppURL and AppTitle identify the caller on OpenRouter's dashboards.
	AppURL   string
	AppTitle string
}

// Provider is an OpenAI-compatible provider registered as "openrouter".
type Provider = openai.Provider

// New creates a new OpenRouter provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, looperr.New(looperr.CodeProviderRequestInvalid,
			"openrouter: missing api_key in config", looperr.FieldProvider(providerName))
	}

	base := defaultBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}

	headers := map[string]string{}
	if cfg.AppURL != "" {
		headers["HTTP-Referer"] = cfg.AppURL
	}
	if cfg.AppTitle != "" {
		headers["X-Title"] = cfg.AppTitle
	}

	return openai.NewCompatible(providerName, openai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: base,
		Headers: headers,
	}, knownModels())
}

// knownModels returns a curated set of writing-capable models on OpenRouter.
func knownModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{
			ID:       "anthropic/claude-sonnet-4-5",
			Name:     "Claude Sonnet 4.5",
			Provider: providerName,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				SupportsThinking:  true,
				MaxContextTokens:  200000,
				MaxOutputTokens:   16000,
			},
		},
		{
			ID:       "openai/gpt-4.1",
			Name:     "GPT-4.1",
			Provider: providerName,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  128000,
				MaxOutputTokens:   32768,
			},
		},
		{
			ID:       "meta-llama/llama-4-maverick",
			Name:     "Llama 4 Maverick",
			Provider: providerName,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  1000000,
				MaxOutputTokens:   16384,
			},
		},
	}
}
