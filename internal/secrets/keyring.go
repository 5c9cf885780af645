// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package secrets

import (
	"errors"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/zalando/go-keyring"
)

// KeyringStore stores secrets in the OS keyring: Keychain on macOS,
// secret-service on Linux, Credential Manager on Windows.
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (KeyringStore) Set(service, key, value string) error {
	if err := checkRef(service, key); err != nil {
		return err
	}
	if value == "" {
		return looperr.New(looperr.CodeSecretInvalidInput, "secret value must not be empty")
	}
	if err := keyring.Set(service, key, value); err != nil {
		return looperr.Wrapf(err, looperr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (KeyringStore) Get(service, key string) (string, error) {
	if err := checkRef(service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", looperr.Errorf(looperr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", looperr.Wrapf(err, looperr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (KeyringStore) Delete(service, key string) error {
	if err := checkRef(service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return looperr.Errorf(looperr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return looperr.Wrapf(err, looperr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

func checkRef(service, key string) error {
	if service == "" || key == "" {
		return looperr.New(looperr.CodeSecretInvalidInput, "secret service and key must not be empty")
	}
	return nil
}
