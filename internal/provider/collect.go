// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package provider

import (
	"context"
	"strings"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// Collect drains a chat stream into a single text, summing usage. An error
// event or a stream that closes without a done event is an upstream failure.
func Collect(ctx context.Context, events <-chan ChatEvent) (string, Usage, error) {
	var sb strings.Builder
	var usage Usage

	for {
		select {
		case <-ctx.Done():
			return sb.String(), usage, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return sb.String(), usage, looperr.New(looperr.CodeProviderUpstreamFailure,
					"stream closed before completion")
			}
			switch ev.Type {
			case EventTypeTextDelta:
				sb.WriteString(ev.Text)
			case EventTypeUsage:
				if ev.Usage != nil {
					usage.InputTokens += ev.Usage.InputTokens
					usage.OutputTokens += ev.Usage.OutputTokens
					usage.CacheReadTokens += ev.Usage.CacheReadTokens
				}
			case EventTypeError:
				return sb.String(), usage, looperr.New(looperr.CodeProviderUpstreamFailure, ev.Error)
			case EventTypeDone:
				return sb.String(), usage, nil
			}
		}
	}
}
