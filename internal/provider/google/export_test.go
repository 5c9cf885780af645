// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package google

import (
	"github.com/contentloop/contentloop/internal/provider"
	"google.golang.org/genai"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = convertMessages

// BuildConfig exposes buildConfig for white-box testing.
func BuildConfig(req provider.ChatRequest) *genai.GenerateContentConfig {
	return buildConfig(req)
}
