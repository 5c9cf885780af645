// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package anthropic

import (
	"context"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/contentloop/contentloop/internal/provider"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/contentloop/contentloop/pkg/health"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 2048
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, points the client at a mock server in tests
}

// Provider writes drafts through the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
	health *health.Tracker
}

// New creates a new Anthropic provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, looperr.New(looperr.CodeProviderRequestInvalid,
			"anthropic: missing api_key in config", looperr.FieldProvider(providerName))
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	tracker, err := health.NewTracker(health.DefaultCooldown)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client: anthropicsdk.NewClient(opts...),
		health: tracker,
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.Available()
}

func (p *Provider) HealthMetrics() health.Metrics { return p.health.Metrics() }

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{
		{
			ID:       "claude-sonnet-4-5",
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
			ID:       "claude-haiku-4-5",
			Name:     "Claude Haiku 4.5",
			Provider: providerName,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				MaxContextTokens:  200000,
				MaxOutputTokens:   8192,
			},
		},
	}, nil
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
		Provider:  providerName,
		Message:   "ok",
		Health:    &m,
	}, nil
}

func (p *Provider) Close() error { return nil }

func buildParams(req provider.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return anthropicsdk.MessageNewParams{}, err
	}

	maxTokens := int64(req.Options.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Options.Temperature != nil {
		params.Temperature = anthropicsdk.Float(float64(*req.Options.Temperature))
	}
	if len(req.Options.StopSequences) > 0 {
		params.StopSequences = req.Options.StopSequences
	}
	return params, nil
}

// convertMessages maps conversation turns onto Anthropic message params.
// System turns travel in the top-level system field and are skipped here.
func convertMessages(msgs []provider.Message) ([]anthropicsdk.MessageParam, error) {
	out := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			out = append(out, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.MessageRoleAssistant:
			out = append(out, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.MessageRoleSystem:
			continue
		default:
			return nil, looperr.Errorf(looperr.CodeProviderRequestInvalid,
				"anthropic: unsupported message role %q", msg.Role)
		}
	}
	if len(out) == 0 {
		return nil, looperr.New(looperr.CodeProviderRequestInvalid,
			"anthropic: request has no user or assistant messages")
	}
	return out, nil
}

func (p *Provider) stream(ctx context.Context, params anthropicsdk.MessageNewParams, ch chan<- provider.ChatEvent) {
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "message_start":
			u := event.Message.Usage
			if u.InputTokens > 0 || u.OutputTokens > 0 {
				ch <- provider.ChatEvent{
					Type: provider.EventTypeUsage,
					Usage: &provider.Usage{
						InputTokens:     int(u.InputTokens),
						OutputTokens:    int(u.OutputTokens),
						CacheReadTokens: int(u.CacheReadInputTokens),
					},
				}
			}

		case "content_block_delta":
			if event.Delta.Type == "text_delta" {
				ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: event.Delta.Text}
			}

		case "message_delta":
			// Carries the output token count for the whole message.
			ch <- provider.ChatEvent{
				Type:  provider.EventTypeUsage,
				Usage: &provider.Usage{OutputTokens: int(event.Usage.OutputTokens)},
			}

		case "message_stop":
			p.health.Succeed()
			ch <- provider.ChatEvent{Type: provider.EventTypeDone}
			return
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
