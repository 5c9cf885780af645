// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package secrets_test

import (
	"testing"

	"github.com/contentloop/contentloop/internal/secrets"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		uri     string
		want    secrets.Ref
		wantErr bool
	}{
		{uri: "keyring://contentloop/openai-api-key", want: secrets.Ref{Service: "contentloop", Key: "openai-api-key"}},
		{uri: "keyring://svc/nested/key", want: secrets.Ref{Service: "svc", Key: "nested/key"}},
		{uri: "keyring://", wantErr: true},
		{uri: "keyring://svc", wantErr: true},
		{uri: "keyring:///key", wantErr: true},
		{uri: "vault://svc/key", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := secrets.ParseRef(tt.uri)
			if tt.wantErr {
				assert.True(t, looperr.HasCode(err, looperr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.uri, got.URI())
		})
	}
}

func TestResolve(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("test-resolve", "google-api-key", "AIza-secret"))

	val, err := secrets.Resolve(ks, "keyring://test-resolve/google-api-key")
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret", val)

	val, err = secrets.Resolve(ks, "sk-literal")
	require.NoError(t, err)
	assert.Equal(t, "sk-literal", val)

	_, err = secrets.Resolve(ks, "keyring://test-resolve/missing")
	assert.True(t, looperr.HasCode(err, looperr.CodeSecretResolveFailure))
}

func TestResolveViper(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("test-viper", "openai-api-key", "sk-openai"))

	v := viper.New()
	v.Set("providers.openai.api_key", "keyring://test-viper/openai-api-key")
	v.Set("providers.google.api_key", "keyring://test-viper/absent")
	v.Set("providers.anthropic.api_key", "sk-plain")
	v.Set("sessions.max_pending", 8)

	failures := secrets.ResolveViper(v, ks)

	assert.Equal(t, "sk-openai", v.GetString("providers.openai.api_key"))
	assert.Equal(t, "sk-plain", v.GetString("providers.anthropic.api_key"))
	assert.Equal(t, "keyring://test-viper/absent", v.GetString("providers.google.api_key"))
	require.Len(t, failures, 1)
	assert.Contains(t, failures, "providers.google.api_key")
}
