// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package session

import "time"

// SetClock replaces the store's time source for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// SetIDFunc replaces the store's id generator for tests.
func (s *Store) SetIDFunc(fn func() (string, error)) { s.newID = fn }

// LaneCount reports how many lanes the store currently holds.
func (s *Store) LaneCount() int { return s.lanes.Len() }

// Lane exposes the lane for a session id.
func (s *Store) Lane(id string) *Lane { return s.lanes.Get(id) }

// AcquireLane pins the session's lane as Mutate does.
func (s *Store) AcquireLane(id string) (*Lane, func()) { return s.lanes.Acquire(id) }

// DropLane detaches and closes the session's lane, leaving the session itself.
func (s *Store) DropLane(id string) { s.lanes.Remove(id) }

// OnLaneAcquired installs a hook run between lane pinning and submission.
func (s *Store) OnLaneAcquired(fn func(id string)) { s.laneAcquired = fn }
