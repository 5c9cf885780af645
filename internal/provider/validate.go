// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package provider

import (
	"context"
	"io"
	"net/http"
	"strings"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// keyEndpoint describes how to probe a vendor's models listing with a key.
type keyEndpoint struct {
	baseURL string
	path    string
	auth    func(req *http.Request, key string)
}

func bearer(req *http.Request, key string) {
	req.Header.Set("Authorization", "Bearer "+key)
}

var keyEndpoints = map[string]keyEndpoint{
	"anthropic": {
		baseURL: "https://api.anthropic.com",
		path:    "/v1/models",
		auth: func(req *http.Request, key string) {
			req.Header.Set("x-api-key", key)
			req.Header.Set("anthropic-version", "2023-06-01")
		},
	},
	"openai": {
		baseURL: "https://api.openai.com",
		path:    "/v1/models",
		auth:    bearer,
	},
	"openrouter": {
		baseURL: "https://openrouter.ai",
		path:    "/api/v1/models",
		auth:    bearer,
	},
	"google": {
		baseURL: "https://generativelanguage.googleapis.com",
		path:    "/v1/models",
		// The Generative Language API only accepts the key as a query parameter.
		auth: func(req *http.Request, key string) {
			q := req.URL.Query()
			q.Set("key", key)
			req.URL.RawQuery = q.Encode()
		},
	},
}

// KeyChecker confirms API keys against a vendor's models endpoint before
// they are written to the keyring.
type KeyChecker struct {
	Client *http.Client
	// BaseURLs overrides the vendor host per provider name.
	BaseURLs map[string]string
}

// ValidateKey checks key with the vendor's default endpoint.
func ValidateKey(ctx context.Context, client *http.Client, providerName, key string) error {
	return (&KeyChecker{Client: client}).Check(ctx, providerName, key)
}

// Check issues a single authenticated GET. 401 and 403 mean the key is
// rejected; any other failure means the check itself could not complete.
func (c *KeyChecker) Check(ctx context.Context, providerName, key string) error {
	ep, ok := keyEndpoints[providerName]
	if !ok {
		return looperr.New(looperr.CodeProviderKeyInvalid, "unknown provider: "+providerName,
			looperr.FieldProvider(providerName))
	}
	if strings.TrimSpace(key) == "" {
		return looperr.New(looperr.CodeProviderKeyInvalid, "empty API key",
			looperr.FieldProvider(providerName))
	}

	base := ep.baseURL
	if override := c.BaseURLs[providerName]; override != "" {
		base = strings.TrimRight(override, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+ep.path, nil)
	if err != nil {
		return looperr.Wrap(err, looperr.CodeProviderKeyCheckFailed, "building validation request",
			looperr.FieldProvider(providerName))
	}
	ep.auth(req, key)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return looperr.Wrap(err, looperr.CodeProviderKeyCheckFailed, "validating "+providerName+" key",
			looperr.FieldProvider(providerName))
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return looperr.Errorf(looperr.CodeProviderKeyInvalid, "invalid %s API key (HTTP %d)", providerName, resp.StatusCode)
	case resp.StatusCode >= 400:
		return looperr.Errorf(looperr.CodeProviderKeyCheckFailed, "%s validation failed (HTTP %d)", providerName, resp.StatusCode)
	}
	return nil
}
