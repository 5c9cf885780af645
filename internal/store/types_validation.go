// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package store

import (
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// Valid reports whether the state is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StateGenerating, StateAwaitingFeedback, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether the length is one of the supported labels.
func (l Length) Valid() bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	default:
		return false
	}
}

// Validate checks that the Session has all required fields set correctly.
func (s Session) Validate() error {
	if s.ID == "" {
		return looperr.New(looperr.CodeStoreInvalidInput, "session: ID is required")
	}
	if !s.State.Valid() {
		return looperr.Errorf(looperr.CodeStoreInvalidInput, "session: invalid state %q", s.State)
	}
	if s.Brief == "" {
		return looperr.New(looperr.CodeStoreInvalidInput, "session: Brief is required")
	}
	if !s.Constraints.Length.Valid() {
		return looperr.Errorf(looperr.CodeStoreInvalidInput, "session: invalid length %q", s.Constraints.Length)
	}
	if s.RevisionCount < 0 {
		return looperr.Errorf(looperr.CodeStoreInvalidInput, "session: RevisionCount must be >= 0, got %d", s.RevisionCount)
	}
	if s.CreatedAt.IsZero() {
		return looperr.New(looperr.CodeStoreInvalidInput, "session: CreatedAt is required")
	}
	return nil
}
