// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/contentloop/contentloop/internal/store"
	"github.com/contentloop/contentloop/internal/store/sqlite"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id string, created time.Time) *store.Session {
	return &store.Session{
		ID:           id,
		State:        store.StateAwaitingFeedback,
		Brief:        "launch post for our new espresso grinder",
		Constraints:  store.Constraints{Length: store.LengthMedium, Style: "playful"},
		CurrentDraft: "draft one",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestSessionStore_CRUD(t *testing.T) {
	ctx := context.Background()
	ss, err := sqlite.NewSessionStore(testDBPath(t, "sessions"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	created := time.Now().Truncate(time.Millisecond)
	require.NoError(t, ss.CreateSession(ctx, newSession("sess-1", created)))

	got, err := ss.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, store.StateAwaitingFeedback, got.State)
	assert.Equal(t, store.LengthMedium, got.Constraints.Length)
	assert.Equal(t, "playful", got.Constraints.Style)
	assert.Equal(t, "draft one", got.CurrentDraft)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Empty(t, got.Feedback)

	got.CurrentDraft = "draft two"
	got.RevisionCount = 1
	got.Feedback = []string{"more coffee puns"}
	got.LastError = ""
	got.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, ss.UpdateSession(ctx, got))

	again, err := ss.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "draft two", again.CurrentDraft)
	assert.Equal(t, 1, again.RevisionCount)
	assert.Equal(t, []string{"more coffee puns"}, again.Feedback)
	assert.True(t, created.Add(time.Minute).Equal(again.UpdatedAt))

	require.NoError(t, ss.DeleteSession(ctx, "sess-1"))
	_, err = ss.GetSession(ctx, "sess-1")
	assert.True(t, looperr.IsNotFound(err))
	assert.NoError(t, ss.DeleteSession(ctx, "sess-1"))
}

func TestSessionStore_DuplicateCreateConflicts(t *testing.T) {
	ctx := context.Background()
	ss, err := sqlite.NewSessionStore(testDBPath(t, "dupes"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	require.NoError(t, ss.CreateSession(ctx, newSession("sess-1", time.Now())))
	err = ss.CreateSession(ctx, newSession("sess-1", time.Now()))
	assert.True(t, looperr.IsConflict(err))
}

func TestSessionStore_UpdateMissing(t *testing.T) {
	ss, err := sqlite.NewSessionStore(testDBPath(t, "missing"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	err = ss.UpdateSession(context.Background(), newSession("ghost", time.Now()))
	assert.True(t, looperr.IsNotFound(err))
}

func TestSessionStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "reopen")

	ss, err := sqlite.NewSessionStore(path)
	require.NoError(t, err)
	require.NoError(t, ss.CreateSession(ctx, newSession("a", time.Now())))
	require.NoError(t, ss.CreateSession(ctx, newSession("b", time.Now().Add(time.Second))))
	require.NoError(t, ss.Close())

	reopened, err := sqlite.NewSessionStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	list, err := reopened.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestSessionStore_ListOrdersBySubSecondCreation(t *testing.T) {
	ctx := context.Background()
	ss, err := sqlite.NewSessionStore(testDBPath(t, "order"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Trimmed fractions ("…00.1Z" vs "…00.15Z") would sort these backwards.
	require.NoError(t, ss.CreateSession(ctx, newSession("late", base.Add(150*time.Millisecond))))
	require.NoError(t, ss.CreateSession(ctx, newSession("early", base.Add(100*time.Millisecond))))
	require.NoError(t, ss.CreateSession(ctx, newSession("first", base)))

	list, err := ss.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"first", "early", "late"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.True(t, base.Add(150*time.Millisecond).Equal(list[2].CreatedAt))
}

func TestSessionStore_CorruptTimestampIsAnError(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "corrupt")
	ss, err := sqlite.NewSessionStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })
	require.NoError(t, ss.CreateSession(ctx, newSession("a", time.Now())))

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `UPDATE sessions SET updated_at = 'yesterday' WHERE id = 'a'`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	_, err = ss.GetSession(ctx, "a")
	require.Error(t, err)
	assert.True(t, looperr.HasCode(err, looperr.CodeStoreDatabaseFailure))
	assert.Contains(t, err.Error(), "yesterday")
}
