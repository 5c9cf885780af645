// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package store

import (
	"slices"
	"strings"
	"time"
)

// --- Session types ---

// State is the position of a refinement session in its lifecycle.
type State string

const (
	StateGenerating       State = "GENERATING"
	StateAwaitingFeedback State = "AWAITING_FEEDBACK"
	StateCompleted        State = "COMPLETED"
	StateFailed           State = "FAILED"
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Length is the requested size of the generated content.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// ParseLength maps a case-insensitive label onto a Length.
func ParseLength(raw string) (Length, bool) {
	l := Length(strings.ToLower(strings.TrimSpace(raw)))
	if !l.Valid() {
		return "", false
	}
	return l, true
}

// Constraints are the immutable generation parameters chosen at start.
type Constraints struct {
	Length Length
	Style  string
}

// Session is one human-in-the-loop refinement of a single piece of content.
type Session struct {
	ID            string
	State         State
	Brief         string
	Constraints   Constraints
	CurrentDraft  string
	RevisionCount int
	// Feedback holds the accepted revision requests, oldest first.
	Feedback  []string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy safe to hand to callers outside the session lane.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Feedback = slices.Clone(s.Feedback)
	return &c
}

// Touch refreshes UpdatedAt.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Expired reports whether the session has been idle for longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}
