// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package provider_test

import (
	"context"

	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/pkg/health"
)

// mockProviderBase provides a reusable base implementation of provider.Provider
// for use in tests. Embed this in test-specific mocks and override methods as needed.
type mockProviderBase struct {
	name      string
	available bool
	closed    bool
}

func newMockProviderBase(name string, available bool) *mockProviderBase {
	return &mockProviderBase{name: name, available: available}
}

func (m *mockProviderBase) Name() string { return m.name }

func (m *mockProviderBase) Available(_ context.Context) bool { return m.available }

func (m *mockProviderBase) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}

func (m *mockProviderBase) Chat(_ context.Context, _ provider.ChatRequest) (<-chan provider.ChatEvent, error) {
	ch := make(chan provider.ChatEvent, 3)
	ch <- provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: "hello"}
	ch <- provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &provider.Usage{InputTokens: 10, OutputTokens: 5}}
	ch <- provider.ChatEvent{Type: provider.EventTypeDone}
	close(ch)
	return ch, nil
}

func (m *mockProviderBase) Status(_ context.Context) (provider.ProviderStatus, error) {
	return provider.ProviderStatus{Available: m.available, Provider: m.name, Message: "ok"}, nil
}

func (m *mockProviderBase) Close() error {
	m.closed = true
	return nil
}

// mockProviderWithHealth extends mockProviderBase with a real health tracker.
type mockProviderWithHealth struct {
	*mockProviderBase
	healthTracker *health.Tracker
}

func (m *mockProviderWithHealth) Available(_ context.Context) bool {
	return m.healthTracker.Available()
}
