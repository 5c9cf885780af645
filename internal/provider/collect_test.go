// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package provider_test

import (
	"context"
	"testing"

	"github.com/contentloop/contentloop/internal/provider"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(events ...provider.ChatEvent) <-chan provider.ChatEvent {
	ch := make(chan provider.ChatEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestCollect_ConcatenatesTextAndUsage(t *testing.T) {
	text, usage, err := provider.Collect(context.Background(), stream(
		provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: "Hello, "},
		provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &provider.Usage{InputTokens: 7}},
		provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: "world"},
		provider.ChatEvent{Type: provider.EventTypeUsage, Usage: &provider.Usage{OutputTokens: 3}},
		provider.ChatEvent{Type: provider.EventTypeDone},
	))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", text)
	assert.Equal(t, provider.Usage{InputTokens: 7, OutputTokens: 3}, usage)
}

func TestCollect_ErrorEvent(t *testing.T) {
	text, _, err := provider.Collect(context.Background(), stream(
		provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: "partial"},
		provider.ChatEvent{Type: provider.EventTypeError, Error: "overloaded"},
	))
	require.Error(t, err)
	assert.Equal(t, "partial", text)
	assert.True(t, looperr.IsUpstreamFailure(err))
	assert.Contains(t, err.Error(), "overloaded")
}

func TestCollect_StreamClosedEarly(t *testing.T) {
	_, _, err := provider.Collect(context.Background(), stream(
		provider.ChatEvent{Type: provider.EventTypeTextDelta, Text: "cut"},
	))
	require.Error(t, err)
	assert.True(t, looperr.HasCode(err, looperr.CodeProviderUpstreamFailure))
}

func TestCollect_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := provider.Collect(ctx, make(chan provider.ChatEvent))
	require.ErrorIs(t, err, context.Canceled)
}
