// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package store

import "context"

// SessionStore persists refinement sessions. Implementations are safe for
// concurrent use but do not serialize read-modify-write cycles; callers
// coordinate that per session.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	// DeleteSession succeeds when the session does not exist.
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]*Session, error)
	Close() error
}
