// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package openai

import (
	"github.com/contentloop/contentloop/internal/provider"
	openaisdk "github.com/openai/openai-go"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.ChatRequest) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(req)
}
