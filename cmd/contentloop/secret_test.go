// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"testing"

	"github.com/contentloop/contentloop/internal/secrets"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSecretStore is an in-memory secrets.Store keyed by "service/key".
type mockSecretStore struct {
	data map[string]string
}

func (m *mockSecretStore) Set(service, key, value string) error {
	m.data[service+"/"+key] = value
	return nil
}

func (m *mockSecretStore) Get(service, key string) (string, error) {
	v, ok := m.data[service+"/"+key]
	if !ok {
		return "", looperr.Errorf(looperr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(service, key string) error {
	if _, ok := m.data[service+"/"+key]; !ok {
		return looperr.Errorf(looperr.CodeSecretNotFound, "not found")
	}
	delete(m.data, service+"/"+key)
	return nil
}

func useMockStore(t *testing.T) *mockSecretStore {
	t.Helper()
	m := &mockSecretStore{data: map[string]string{}}
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return m }
	t.Cleanup(func() { secretStoreFactory = old })
	return m
}

func TestSecretSet_FromArgument(t *testing.T) {
	store := useMockStore(t)

	out, err := execute(t, "", "secret", "set", "openai", "sk-test-1234567890")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234567890", store.data["contentloop/openai-api-key"])
	assert.Contains(t, out, "keyring://contentloop/openai-api-key")
}

func TestSecretSet_FromStdin(t *testing.T) {
	store := useMockStore(t)

	_, err := execute(t, "  AIza-from-stdin \n", "secret", "set", "google")
	require.NoError(t, err)
	assert.Equal(t, "AIza-from-stdin", store.data["contentloop/google-api-key"])
}

func TestSecretSet_RejectsBadInput(t *testing.T) {
	store := useMockStore(t)

	_, err := execute(t, "", "secret", "set", "mistral", "key")
	assert.True(t, looperr.HasCode(err, looperr.CodeCLIInputInvalid))

	_, err = execute(t, "\n", "secret", "set", "openai")
	assert.True(t, looperr.HasCode(err, looperr.CodeCLIInputInvalid))
	assert.Empty(t, store.data)
}

func TestSecretSet_Validate(t *testing.T) {
	store := useMockStore(t)
	var checked []string
	old := keyValidator
	t.Cleanup(func() { keyValidator = old })
	keyValidator = func(_ *cobra.Command, providerName, key string) error {
		checked = append(checked, providerName+"="+key)
		if key == "bad" {
			return looperr.New(looperr.CodeProviderKeyInvalid, "key rejected")
		}
		return nil
	}

	_, err := execute(t, "", "secret", "set", "--validate", "anthropic", "bad")
	assert.True(t, looperr.HasCode(err, looperr.CodeProviderKeyInvalid))
	assert.Empty(t, store.data, "rejected key is not stored")

	out, err := execute(t, "", "secret", "set", "--validate", "anthropic", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "Key accepted by anthropic")
	assert.Equal(t, []string{"anthropic=bad", "anthropic=good"}, checked)
	assert.Equal(t, "good", store.data["contentloop/anthropic-api-key"])
}

func TestSecretGet(t *testing.T) {
	store := useMockStore(t)
	store.data["contentloop/openrouter-api-key"] = "sk-or-abcdefghijklmnop"

	out, err := execute(t, "", "secret", "get", "openrouter")
	require.NoError(t, err)
	assert.Equal(t, "sk-o**************mnop\n", out)

	out, err = execute(t, "", "secret", "get", "--reveal", "openrouter")
	require.NoError(t, err)
	assert.Equal(t, "sk-or-abcdefghijklmnop\n", out)

	_, err = execute(t, "", "secret", "get", "openai")
	assert.True(t, looperr.HasCode(err, looperr.CodeSecretNotFound))
}

func TestSecretDelete(t *testing.T) {
	store := useMockStore(t)
	store.data["contentloop/google-api-key"] = "AIza"

	out, err := execute(t, "", "secret", "delete", "google")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted google API key")
	assert.Empty(t, store.data)

	_, err = execute(t, "", "secret", "delete", "google")
	assert.True(t, looperr.HasCode(err, looperr.CodeSecretNotFound))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "******", maskSecret("abcdef"))
	assert.Equal(t, "abcd*****xyz9", maskSecret("abcdefghixyz9"))
}
