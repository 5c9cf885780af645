// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package secrets keeps provider API keys out of config files. Config values
// of the form keyring://service/key are replaced with the stored secret at
// load time.
package secrets

// DefaultService is the keyring service the CLI writes provider keys under.
const DefaultService = "contentloop"

// Store is a service/key secret store.
type Store interface {
	Set(service, key, value string) error
	// Get returns a CodeSecretNotFound error for a missing key.
	Get(service, key string) (string, error)
	Delete(service, key string) error
}

// ProviderKeyName is the keyring key holding the API key for a provider.
func ProviderKeyName(provider string) string {
	return provider + "-api-key"
}
