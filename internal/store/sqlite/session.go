// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// Compile-time interface check.
var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore implements store.SessionStore backed by SQLite.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore opens (or creates) a SQLite database at dbPath and
// initialises the sessions table.
func NewSessionStore(dbPath string) (*SessionStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "migrating sqlite db")
	}

	return &SessionStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	state          TEXT NOT NULL,
	brief          TEXT NOT NULL,
	length         TEXT NOT NULL,
	style          TEXT NOT NULL DEFAULT '',
	current_draft  TEXT NOT NULL DEFAULT '',
	revision_count INTEGER NOT NULL DEFAULT 0,
	feedback       TEXT NOT NULL DEFAULT '[]',
	last_error     TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) CreateSession(ctx context.Context, session *store.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	feedback, err := marshalFeedback(session.Feedback)
	if err != nil {
		return err
	}

	const q = `INSERT INTO sessions (id, state, brief, length, style, current_draft, revision_count, feedback, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, q,
		session.ID,
		string(session.State),
		session.Brief,
		string(session.Constraints.Length),
		session.Constraints.Style,
		session.CurrentDraft,
		session.RevisionCount,
		feedback,
		session.LastError,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if isPrimaryKeyViolation(err) {
		return store.ErrSessionExists(session.ID)
	}
	if err != nil {
		return looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "creating session", looperr.FieldSessionID(session.ID))
	}
	return nil
}

const selectColumns = `SELECT id, state, brief, length, style, current_draft, revision_count, feedback, last_error, created_at, updated_at FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*store.Session, error) {
	var sess store.Session
	var feedback, createdAt, updatedAt string
	if err := row.Scan(
		&sess.ID,
		&sess.State,
		&sess.Brief,
		&sess.Constraints.Length,
		&sess.Constraints.Style,
		&sess.CurrentDraft,
		&sess.RevisionCount,
		&feedback,
		&sess.LastError,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(feedback), &sess.Feedback); err != nil {
		return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "decoding feedback history", looperr.FieldSessionID(sess.ID))
	}
	var err error
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, looperr.With(err, looperr.FieldSessionID(sess.ID))
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, looperr.With(err, looperr.FieldSessionID(sess.ID))
	}
	return &sess, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*store.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound(id)
	}
	if err != nil {
		return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "getting session", looperr.FieldSessionID(id))
	}
	return sess, nil
}

func (s *SessionStore) UpdateSession(ctx context.Context, session *store.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	feedback, err := marshalFeedback(session.Feedback)
	if err != nil {
		return err
	}

	const q = `UPDATE sessions SET state = ?, current_draft = ?, revision_count = ?, feedback = ?,
last_error = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, q,
		string(session.State),
		session.CurrentDraft,
		session.RevisionCount,
		feedback,
		session.LastError,
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "updating session", looperr.FieldSessionID(session.ID))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "checking rows affected", looperr.FieldSessionID(session.ID))
	}
	if rows == 0 {
		return store.ErrSessionNotFound(session.ID)
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "deleting session", looperr.FieldSessionID(id))
	}
	return nil
}

func (s *SessionStore) ListSessions(ctx context.Context) ([]*store.Session, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "listing sessions")
	}
	defer rows.Close()

	var sessions []*store.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, looperr.Wrap(err, looperr.CodeStoreDatabaseFailure, "scanning session row")
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func marshalFeedback(feedback []string) (string, error) {
	if feedback == nil {
		feedback = []string{}
	}
	raw, err := json.Marshal(feedback)
	if err != nil {
		return "", looperr.Wrap(err, looperr.CodeStoreInvalidInput, "encoding feedback history")
	}
	return string(raw), nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// timeLayout is RFC3339 with a fixed nine-digit fraction so that stored
// timestamps sort as text in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp. RFC3339Nano parsing accepts both the
// fixed-width layout and rows written with trimmed fractions.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, looperr.Wrapf(err, looperr.CodeStoreDatabaseFailure, "parsing stored timestamp %q", s)
	}
	return t, nil
}
