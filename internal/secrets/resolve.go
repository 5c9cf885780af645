// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package secrets

import (
	"strings"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/viper"
)

const scheme = "keyring://"

// Ref points at one secret in a Store.
type Ref struct {
	Service string
	Key     string
}

// URI renders the ref as keyring://service/key.
func (r Ref) URI() string {
	return scheme + r.Service + "/" + r.Key
}

// IsRef reports whether value uses the keyring:// scheme.
func IsRef(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// ParseRef parses keyring://service/key.
func ParseRef(uri string) (Ref, error) {
	if !IsRef(uri) {
		return Ref{}, looperr.Errorf(looperr.CodeSecretInvalidInput, "not a keyring reference: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if !ok || service == "" || key == "" {
		return Ref{}, looperr.Errorf(looperr.CodeSecretInvalidInput,
			"invalid keyring reference %q: expected keyring://service/key", uri)
	}
	return Ref{Service: service, Key: key}, nil
}

// Resolve returns value unchanged unless it is a keyring reference, in which
// case the referenced secret is returned.
func Resolve(store Store, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	ref, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(ref.Service, ref.Key)
	if err != nil {
		return "", looperr.Errorf(looperr.CodeSecretResolveFailure, "resolving %s: %v", value, err)
	}
	return secret, nil
}

// ResolveViper replaces every keyring reference among v's string values
// with its secret. Unresolvable references are left in place and reported
// per config key, so the caller decides whether a missing key is fatal.
func ResolveViper(v *viper.Viper, store Store) map[string]error {
	failures := map[string]error{}
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !IsRef(val) {
			continue
		}
		resolved, err := Resolve(store, val)
		if err != nil {
			failures[key] = err
			continue
		}
		v.Set(key, resolved)
	}
	return failures
}
