// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package memory provides the in-process session backend. Sessions do not
// survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/contentloop/contentloop/internal/store"
)

func init() {
	store.RegisterBackend("memory", func(string) (store.SessionStore, error) {
		return NewSessionStore(), nil
	})
}

var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in a map guarded by a RWMutex. Values are
// copied on the way in and out so callers never alias stored state.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*store.Session)}
}

func (m *SessionStore) CreateSession(_ context.Context, session *store.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return store.ErrSessionExists(session.ID)
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *SessionStore) GetSession(_ context.Context, id string) (*store.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound(id)
	}
	return s.Clone(), nil
}

func (m *SessionStore) UpdateSession(_ context.Context, session *store.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return store.ErrSessionNotFound(session.ID)
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *SessionStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ListSessions returns copies ordered by creation time, oldest first.
func (m *SessionStore) ListSessions(_ context.Context) ([]*store.Session, error) {
	m.mu.RLock()
	result := make([]*store.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *SessionStore) Close() error { return nil }
