// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package anthropic

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/contentloop/contentloop/internal/provider"
)

// BuildParams exposes buildParams for white-box testing.
func BuildParams(req provider.ChatRequest) (anthropicsdk.MessageNewParams, error) {
	return buildParams(req)
}
