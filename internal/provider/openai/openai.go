// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package openai

import (
	"context"

	"github.com/contentloop/contentloop/internal/provider"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/contentloop/contentloop/pkg/health"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Config holds configuration for an OpenAI-compatible endpoint.
type Config struct {
	APIKey  string
	BaseURL string // optional, points the client at a mock server in tests
	// Headers are sent with every request. OpenRouter uses them for
	// app attribution.
	Headers map[string]string
}

// Provider talks to any endpoint that speaks the Chat Completions API.
type Provider struct {
	name   string
	models []provider.ModelInfo
	client openaisdk.Client
	health *health.Tracker
}

// New creates a provider for the OpenAI API itself.
func New(cfg Config) (*Provider, error) {
	return NewCompatible("openai", cfg, knownModels())
}

// NewCompatible creates a Chat Completions provider registered under name.
func NewCompatible(name string, cfg Config, models []provider.ModelInfo) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, looperr.New(looperr.CodeProviderRequestInvalid,
			name+": missing api_key in config", looperr.FieldProvider(name))
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	tracker, err := health.NewTracker(health.DefaultCooldown)
	if err != nil {
		return nil, err
	}
	return &Provider{
		name:   name,
		models: models,
		client: openaisdk.NewClient(opts...),
		health: tracker,
	}, nil
}

func knownModels() []provider.ModelInfo {
	return []provider.ModelInfo{
		{
			ID:       "gpt-4.1",
			Name:     "GPT-4.1",
			Provider: "openai",
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  128000,
				MaxOutputTokens:   32768,
			},
		},
		{
			ID:       "gpt-4.1-mini",
			Name:     "GPT-4.1 Mini",
			Provider: "openai",
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  128000,
				MaxOutputTokens:   16384,
			},
		},
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.Available()
}

func (p *Provider) HealthMetrics() health.Metrics { return p.health.Metrics() }

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return append([]provider.ModelInfo(nil), p.models...), nil
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	events := make(chan provider.ChatEvent, 64)
	go func() {
		defer close(events)
		p.stream(ctx, params, events)
	}()
	return events, nil
}

func (p *Provider) Status(ctx context.Context) (provider.ProviderStatus, error) {
	m := p.health.Metrics()
	return provider.ProviderStatus{
		Available: p.Available(ctx),
		Provider:  p.name,
		Message:   "ok",
		Health:    &m,
	}, nil
}

func (p *Provider) Close() error { return nil }

func buildParams(req provider.ChatRequest) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages, req.SystemPrompt)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
		StreamOptions: openaisdk.ChatCompletionStreamOptionsParam{
			IncludeUsage: param.NewOpt(true),
		},
	}
	if req.Options.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.Options.MaxTokens))
	}
	if req.Options.Temperature != nil {
		params.Temperature = param.NewOpt(float64(*req.Options.Temperature))
	}
	if len(req.Options.StopSequences) > 0 {
		params.Stop = openaisdk.ChatCompletionNewParamsStopUnion{
			OfStringArray: req.Options.StopSequences,
		}
	}
	return params, nil
}

// convertMessages prepends the system prompt as a system message.
func convertMessages(msgs []provider.Message, systemPrompt string) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, openaisdk.SystemMessage(systemPrompt))
	}

	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			out = append(out, openaisdk.UserMessage(msg.Content))
		case provider.MessageRoleAssistant:
			out = append(out, openaisdk.AssistantMessage(msg.Content))
		case provider.MessageRoleSystem:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		default:
			return nil, looperr.Errorf(looperr.CodeProviderRequestInvalid,
				"unsupported message role %q", msg.Role)
		}
	}
	return out, nil
}

func (p *Provider) stream(ctx context.Context, params openaisdk.ChatCompletionNewParams, ch chan<- provider.ChatEvent) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		chunk := stream.Current()

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: choice.Delta.Content}
			}
		}

		// With include_usage the final chunk carries usage and no choices.
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			ch <- provider.ChatEvent{
				Type: provider.EventTypeUsage,
				Usage: &provider.Usage{
					InputTokens:     int(chunk.Usage.PromptTokens),
					OutputTokens:    int(chunk.Usage.CompletionTokens),
					CacheReadTokens: int(chunk.Usage.PromptTokensDetails.CachedTokens),
				},
			}
		}
	}

	if err := stream.Err(); err != nil {
		p.health.Fail(err)
		ch <- provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()}
		return
	}

	p.health.Succeed()
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
}
