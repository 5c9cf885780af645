// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package store_test

import (
	"testing"
	"time"

	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStateTerminal(t *testing.T) {
	assert.False(t, store.StateGenerating.Terminal())
	assert.False(t, store.StateAwaitingFeedback.Terminal())
	assert.True(t, store.StateCompleted.Terminal())
	assert.True(t, store.StateFailed.Terminal())
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		in   string
		want store.Length
		ok   bool
	}{
		{"short", store.LengthShort, true},
		{" Medium ", store.LengthMedium, true},
		{"LONG", store.LengthLong, true},
		{"epic", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := store.ParseLength(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := &store.Session{ID: "a", Feedback: []string{"one"}}
	c := s.Clone()
	c.Feedback[0] = "changed"
	assert.Equal(t, "one", s.Feedback[0])
	assert.Nil(t, (*store.Session)(nil).Clone())
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &store.Session{UpdatedAt: now.Add(-10 * time.Minute)}
	assert.True(t, s.Expired(now, 5*time.Minute))
	assert.False(t, s.Expired(now, 15*time.Minute))
	assert.False(t, s.Expired(now, 0))
}

func TestSessionValidate(t *testing.T) {
	valid := store.Session{
		ID:          "a",
		State:       store.StateGenerating,
		Brief:       "ideas",
		Constraints: store.Constraints{Length: store.LengthShort},
		CreatedAt:   time.Now(),
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*store.Session)
	}{
		{"missing id", func(s *store.Session) { s.ID = "" }},
		{"unknown state", func(s *store.Session) { s.State = "PAUSED" }},
		{"blank brief", func(s *store.Session) { s.Brief = "" }},
		{"bad length", func(s *store.Session) { s.Constraints.Length = "huge" }},
		{"negative revisions", func(s *store.Session) { s.RevisionCount = -1 }},
		{"zero created", func(s *store.Session) { s.CreatedAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.True(t, looperr.IsInvalidInput(s.Validate()))
		})
	}
}
