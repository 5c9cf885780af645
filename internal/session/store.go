// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package session owns the lifecycle of refinement sessions: id assignment,
// serialized mutation, idle expiry and deletion.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultReapInterval = 10 * time.Minute
)

// Config controls session expiry and lane sizing.
type Config struct {
	TTL          time.Duration
	ReapInterval time.Duration
	MaxPending   int
}

func (c *Config) applyDefaults() {
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = DefaultReapInterval
	}
	if c.MaxPending == 0 {
		c.MaxPending = DefaultLaneCapacity
	}
}

// MutateFunc changes a session in place. Returning an error discards the
// change; returning nil persists it.
type MutateFunc func(ctx context.Context, sess *store.Session) error

// Stats summarizes the sessions currently held.
type Stats struct {
	Total   int
	Expired int
	Healthy int
	TTL     time.Duration
}

// Store wraps a store.SessionStore backend with per-session lanes so that at
// most one mutation per session is in flight.
type Store struct {
	backend store.SessionStore
	lanes   *LanePool
	cfg     Config

	now   func() time.Time
	newID func() (string, error)

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// laneAcquired, when set, runs after Mutate pins a lane and before it
	// submits work.
	laneAcquired func(id string)
}

// New creates a Store over backend. Call StartReaper to enable background
// expiry and Close on shutdown.
func New(backend store.SessionStore, cfg Config) *Store {
	cfg.applyDefaults()
	return &Store{
		backend: backend,
		lanes:   NewLanePool(cfg.MaxPending),
		cfg:     cfg,
		now:     time.Now,
		newID:   newSessionID,
		stop:    make(chan struct{}),
	}
}

// newSessionID returns a random (version 4) UUID string.
func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", looperr.Wrap(err, looperr.CodeSessionIDFailure, "generating session id")
	}
	return id.String(), nil
}

// TTL returns the configured idle expiry.
func (s *Store) TTL() time.Duration { return s.cfg.TTL }

// Create assigns a fresh id and timestamps to sess and persists it.
func (s *Store) Create(ctx context.Context, sess *store.Session) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", err
	}

	now := s.now()
	sess.ID = id
	sess.CreatedAt = now
	sess.UpdatedAt = now

	if err := s.backend.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	slog.Debug("session created", "session_id", id, "state", sess.State)
	return id, nil
}

// Get returns a snapshot of the session. Expired sessions are reported as
// not found even before the reaper removes them.
func (s *Store) Get(ctx context.Context, id string) (*store.Session, error) {
	sess, err := s.backend.GetSession(ctx, id)
	if looperr.IsNotFound(err) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now(), s.cfg.TTL) {
		return nil, errNotFound(id)
	}
	return sess, nil
}

// Mutate runs fn against the session on its lane and persists the result when
// fn returns nil. It returns the updated snapshot.
func (s *Store) Mutate(ctx context.Context, id string, fn MutateFunc) (*store.Session, error) {
	if fn == nil {
		return nil, looperr.New(looperr.CodeSessionInvalidArg, "mutate requires a function")
	}

	for attempt := 1; ; attempt++ {
		snapshot, err := s.mutateOnce(ctx, id, fn)
		switch {
		case err == nil:
			return snapshot, nil
		case looperr.HasCode(err, looperr.CodeSessionClosed):
			// The lane went away under us. That only means the session is
			// gone if the backend agrees.
			if attempt < maxLaneAttempts && !s.closed() && s.exists(ctx, id) {
				continue
			}
			s.pruneLane(id)
			return nil, errNotFound(id)
		case looperr.IsNotFound(err):
			s.pruneLane(id)
			return nil, errNotFound(id)
		default:
			return nil, err
		}
	}
}

// maxLaneAttempts bounds how often Mutate retries on a fresh lane after the
// one it held was closed.
const maxLaneAttempts = 3

func (s *Store) mutateOnce(ctx context.Context, id string, fn MutateFunc) (*store.Session, error) {
	lane, release := s.lanes.Acquire(id)
	defer release()
	if s.laneAcquired != nil {
		s.laneAcquired(id)
	}

	var snapshot *store.Session
	err := lane.Submit(ctx, func(ctx context.Context) error {
		sess, err := s.backend.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if sess.Expired(s.now(), s.cfg.TTL) {
			if err := s.backend.DeleteSession(ctx, id); err != nil {
				return err
			}
			return errNotFound(id)
		}

		if err := fn(ctx, sess); err != nil {
			return err
		}

		sess.Touch(s.now())
		if err := s.backend.UpdateSession(ctx, sess); err != nil {
			return err
		}
		snapshot = sess.Clone()
		return nil
	})
	return snapshot, err
}

// pruneLane drops the session's lane if nothing else holds it, so unknown
// ids don't leave lanes behind.
func (s *Store) pruneLane(id string) {
	s.lanes.PruneIdle(func(laneID string) bool { return laneID != id })
}

func (s *Store) exists(ctx context.Context, id string) bool {
	_, err := s.backend.GetSession(context.WithoutCancel(ctx), id)
	return err == nil
}

func (s *Store) closed() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// Delete removes the session and its lane. Deleting an unknown session is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.lanes.Remove(id)
	slog.Debug("session deleted", "session_id", id)
	return nil
}

// Stats counts held sessions, splitting out those past their TTL that the
// reaper has not removed yet.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return Stats{}, err
	}

	now := s.now()
	st := Stats{Total: len(sessions), TTL: s.cfg.TTL}
	for _, sess := range sessions {
		if sess.Expired(now, s.cfg.TTL) {
			st.Expired++
		}
	}
	st.Healthy = st.Total - st.Expired
	return st, nil
}

// Reap deletes expired sessions that have no queued or running work and
// returns how many were removed.
func (s *Store) Reap(ctx context.Context) (int, error) {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	live := make(map[string]struct{}, len(sessions))
	removed := 0
	for _, sess := range sessions {
		if !sess.Expired(s.now(), s.cfg.TTL) {
			live[sess.ID] = struct{}{}
			continue
		}
		if s.lanes.Busy(sess.ID) {
			live[sess.ID] = struct{}{}
			slog.Debug("reaper skipped busy session", "session_id", sess.ID)
			continue
		}
		ok, err := s.reapOne(ctx, sess.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		} else {
			live[sess.ID] = struct{}{}
		}
	}

	s.lanes.PruneIdle(func(id string) bool {
		_, ok := live[id]
		return ok
	})

	if removed > 0 {
		slog.Info("expired sessions reaped", "removed", removed, "ttl", s.cfg.TTL)
	}
	return removed, nil
}

// reapOne deletes a session from inside its lane so the expiry check and the
// delete cannot interleave with a mutation.
func (s *Store) reapOne(ctx context.Context, id string) (bool, error) {
	lane, release := s.lanes.Acquire(id)
	defer release()
	deleted := false
	err := lane.Submit(ctx, func(ctx context.Context) error {
		// Anything queued behind us keeps the session alive.
		if lane.Pending() > 1 {
			return nil
		}
		sess, err := s.backend.GetSession(ctx, id)
		if looperr.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if !sess.Expired(s.now(), s.cfg.TTL) {
			return nil
		}
		if err := s.backend.DeleteSession(ctx, id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if looperr.IsBusy(err) || looperr.HasCode(err, looperr.CodeSessionClosed) {
		return false, nil
	}
	return deleted, err
}

// StartReaper runs Reap every ReapInterval until ctx is done or the store is
// closed.
func (s *Store) StartReaper(ctx context.Context) {
	if s.cfg.ReapInterval < 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.ReapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.Reap(ctx); err != nil {
					slog.Warn("session reaper failed", "error", err)
				}
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the reaper, drains and closes all lanes, then closes the
// backend. Close is idempotent.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.lanes.Close()
		err = s.backend.Close()
	})
	return err
}

func errNotFound(id string) error {
	return looperr.New(looperr.CodeSessionNotFound, "session not found", looperr.FieldSessionID(id))
}
