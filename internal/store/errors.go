// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package store

import (
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// ErrSessionNotFound builds the error every backend returns for a missing id.
func ErrSessionNotFound(id string) error {
	return looperr.New(looperr.CodeStoreSessionGetNotFound, "session not found", looperr.FieldSessionID(id))
}

// ErrSessionExists builds the error returned when creating a duplicate id.
func ErrSessionExists(id string) error {
	return looperr.New(looperr.CodeStoreSessionCreateConflict, "session already exists", looperr.FieldSessionID(id))
}
