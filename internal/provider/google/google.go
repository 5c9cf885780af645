// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package google

import (
	"context"

	"github.com/contentloop/contentloop/internal/provider"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/contentloop/contentloop/pkg/health"
	"google.golang.org/genai"
)

const providerName = "google"

// Config holds Google provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, points the client at a mock server in tests
}

// Provider writes drafts through the Gemini API.
type Provider struct {
	client *genai.Client
	health *health.Tracker
}

// New creates a new Google provider. Returns an error if the API key is missing.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, looperr.New(looperr.CodeProviderRequestInvalid,
			"google: missing api_key in config", looperr.FieldProvider(providerName))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, looperr.Wrapf(err, looperr.CodeProviderUpstreamFailure, "google: creating client")
	}

	tracker, err := health.NewTracker(health.DefaultCooldown)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client, health: tracker}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Available(_ context.Context) bool {
	return p.health.Available()
}

func (p *Provider) HealthMetrics() health.Metrics { return p.health.Metrics() }

func (p *Provider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{
		{
			ID:       "gemini-2.5-pro",
			Name:     "Gemini 2.5 Pro",
			Provider: providerName,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				SupportsThinking:  true,
				MaxContextTokens:  1000000,
				MaxOutputTokens:   65536,
			},
		},
		{
			ID:       "gemini-2.5-flash",
			Name:     "Gemini 2.5 Flash",
			Provider: providerName,
			Capabilities: provider.ModelCapabilities{
				SupportsStreaming: true,
				SupportsThinking:  true,
				MaxContextTokens:  1000000,
				MaxOutputTokens:   65536,
			},
		},
	}, nil
}

func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	config := buildConfig(req)

	events := make(chan provider.ChatEvent, 64)
	go func() {
		defer close(events)
		p.stream(ctx, req.Model, contents, config, events)
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

func buildConfig(req provider.ChatRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.Options.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Options.Temperature)
	}
	if req.Options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Options.MaxTokens)
	}
	if len(req.Options.StopSequences) > 0 {
		cfg.StopSequences = req.Options.StopSequences
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return cfg
}

// convertMessages maps turns onto Gemini contents. Gemini calls the
// assistant role "model"; system turns go through SystemInstruction.
func convertMessages(msgs []provider.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case provider.MessageRoleAssistant:
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleModel))
		case provider.MessageRoleSystem:
			continue
		default:
			return nil, looperr.Errorf(looperr.CodeProviderRequestInvalid,
				"google: unsupported message role %q", msg.Role)
		}
	}
	return out, nil
}

func (p *Provider) stream(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	ch chan<- provider.ChatEvent,
) {
	// Usage metadata is cumulative per chunk, so only the last one is reported.
	var usage *genai.GenerateContentResponseUsageMetadata

	for result, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			p.health.Fail(err)
			ch <- provider.ChatEvent{Type: provider.EventTypeError, Error: err.Error()}
			return
		}

		for _, candidate := range result.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" && !part.Thought {
					ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: part.Text}
				}
			}
		}
		if result.UsageMetadata != nil {
			usage = result.UsageMetadata
		}
	}

	if usage != nil {
		ch <- provider.ChatEvent{
			Type: provider.EventTypeUsage,
			Usage: &provider.Usage{
				InputTokens:     int(usage.PromptTokenCount),
				OutputTokens:    int(usage.CandidatesTokenCount),
				CacheReadTokens: int(usage.CachedContentTokenCount),
			},
		}
	}
	p.health.Succeed()
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
}
