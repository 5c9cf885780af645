// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package generate turns briefs and feedback into drafts using the
// configured LLM providers.
package generate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// DefaultTemperature keeps drafts close to the user's ideas.
const DefaultTemperature float32 = 0.1

// Router picks a provider for each attempt. *provider.Registry satisfies it.
type Router interface {
	Route(ctx context.Context, modelName string, exclude []string) (provider.Provider, string, error)
	MaxAttempts() int
}

// Config controls model selection and sampling.
type Config struct {
	// Model is a "provider/model" ref. Empty uses the router default.
	Model       string
	Temperature float32
	MaxTokens   int
}

// DraftRequest describes the first draft of a session.
type DraftRequest struct {
	Brief       string
	Constraints store.Constraints
}

// RevisionRequest asks for a new draft that applies Feedback to Draft.
// History holds feedback accepted on earlier revisions.
type RevisionRequest struct {
	Brief       string
	Constraints store.Constraints
	Draft       string
	Feedback    string
	History     []string
}

// Generator implements the draft and revision capabilities on top of a
// provider router, failing over between providers on error.
type Generator struct {
	router Router
	cfg    Config
}

func New(router Router, cfg Config) *Generator {
	return &Generator{router: router, cfg: cfg}
}

// Draft produces the initial draft for a brief.
func (g *Generator) Draft(ctx context.Context, req DraftRequest) (string, error) {
	return g.Complete(ctx, writerSystemPrompt, draftPrompt(req))
}

// Revise produces a revised draft.
func (g *Generator) Revise(ctx context.Context, req RevisionRequest) (string, error) {
	return g.Complete(ctx, writerSystemPrompt, revisionPrompt(req))
}

// Complete sends one system+user exchange and returns the trimmed reply.
// Each failed attempt excludes its provider from the next route.
func (g *Generator) Complete(ctx context.Context, system, user string) (string, error) {
	var (
		tried   []string
		lastErr error
	)

	for attempt := 1; attempt <= g.router.MaxAttempts(); attempt++ {
		prov, model, err := g.router.Route(ctx, g.cfg.Model, tried)
		if err != nil {
			if lastErr != nil {
				return "", lastErr
			}
			return "", err
		}

		text, err := g.once(ctx, prov, model, system, user)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		slog.Warn("generation attempt failed",
			"provider", prov.Name(),
			"model", model,
			"attempt", attempt,
			"error", err,
		)
		lastErr = err
		tried = append(tried, prov.Name())
	}

	if lastErr == nil {
		lastErr = looperr.New(looperr.CodeProviderAllUnavailable, "no generation attempt was made")
	}
	return "", lastErr
}

func (g *Generator) once(ctx context.Context, prov provider.Provider, model, system, user string) (string, error) {
	temp := g.cfg.Temperature
	events, err := prov.Chat(ctx, provider.ChatRequest{
		Model:        model,
		SystemPrompt: system,
		Messages:     []provider.Message{{Role: provider.MessageRoleUser, Content: user}},
		Options: provider.ChatOptions{
			Temperature: &temp,
			MaxTokens:   g.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", looperr.Wrapf(err, looperr.CodeProviderUpstreamFailure, "chat call to %s", prov.Name())
	}

	text, usage, err := provider.Collect(ctx, events)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", looperr.New(looperr.CodeProviderResponseInvalid, "provider returned empty text",
			looperr.FieldProvider(prov.Name()))
	}

	slog.Debug("generation complete",
		"provider", prov.Name(),
		"model", model,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	return text, nil
}
