// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package session

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// DefaultLaneCapacity bounds the number of mutations a lane holds.
const DefaultLaneCapacity = 8

// workItem represents a unit of work submitted to a Lane.
type workItem struct {
	fn     func(context.Context) error
	ctx    context.Context
	result chan<- error
}

// Lane serialises mutations for a single session. Work submitted via Submit
// executes one item at a time in FIFO order on a background goroutine.
type Lane struct {
	sessionID string
	queue     chan workItem
	done      chan struct{}
	closing   chan struct{} // Closed immediately when Close() is called

	// pending counts queued plus running items.
	pending atomic.Int32
	once    sync.Once

	// refs counts callers holding the lane through LanePool.Acquire.
	// Guarded by the owning pool's mutex.
	refs int
}

// NewLane creates a Lane holding at most capacity queued items and starts its
// worker. Call Close when the lane is no longer needed.
func NewLane(sessionID string, capacity int) *Lane {
	if capacity <= 0 {
		capacity = DefaultLaneCapacity
	}
	l := &Lane{
		sessionID: sessionID,
		queue:     make(chan workItem, capacity),
		done:      make(chan struct{}),
		closing:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Lane) run() {
	defer close(l.done)
	for {
		select {
		case w := <-l.queue:
			l.executeWork(w)
		case <-l.closing:
			// Drain any remaining queued items before exiting.
			for {
				select {
				case w := <-l.queue:
					l.executeWork(w)
				default:
					return
				}
			}
		}
	}
}

// executeWork runs a work item with panic recovery. Accepted work runs to
// completion even if the submitter has gone away.
func (l *Lane) executeWork(w workItem) {
	defer l.pending.Add(-1)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("session lane panic recovered",
					"session_id", l.sessionID,
					"panic", r,
					"stack", string(debug.Stack()))
				err = looperr.Errorf(looperr.CodeServerInternalFailure, "session worker panic: %v", r)
			}
		}()
		err = w.fn(context.WithoutCancel(w.ctx))
	}()

	w.result <- err
}

// Submit enqueues fn and blocks until it has run. A full queue fails fast
// with a busy error. Once enqueued, fn always runs and its result is always
// returned, regardless of ctx.
func (l *Lane) Submit(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-l.closing:
		return errLaneClosed(l.sessionID)
	default:
	}

	result := make(chan error, 1)
	w := workItem{fn: fn, ctx: ctx, result: result}

	l.pending.Add(1)
	select {
	case l.queue <- w:
	default:
		l.pending.Add(-1)
		return looperr.New(looperr.CodeSessionBusy, "session has too many pending requests",
			looperr.FieldSessionID(l.sessionID))
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		// The worker exited; it either ran our item or never will.
		select {
		case err := <-result:
			return err
		default:
			l.pending.Add(-1)
			return errLaneClosed(l.sessionID)
		}
	}
}

// Pending reports how many items are queued or running.
func (l *Lane) Pending() int {
	return int(l.pending.Load())
}

// Close stops accepting work, waits for already-enqueued items to finish and
// shuts the worker down. Close is idempotent and safe for concurrent calls.
func (l *Lane) Close() {
	l.once.Do(func() {
		close(l.closing)
		<-l.done
	})
}

func errLaneClosed(id string) error {
	return looperr.New(looperr.CodeSessionClosed, "session lane is closed", looperr.FieldSessionID(id))
}

// LanePool manages Lanes keyed by session ID, creating them on first access.
// It is safe for concurrent use.
type LanePool struct {
	capacity int

	mu    sync.Mutex
	lanes map[string]*Lane
}

// NewLanePool returns an empty LanePool whose lanes hold capacity items.
func NewLanePool(capacity int) *LanePool {
	return &LanePool{
		capacity: capacity,
		lanes:    make(map[string]*Lane),
	}
}

// Get returns the Lane for the given session, creating one if needed.
func (p *LanePool) Get(sessionID string) *Lane {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.lanes[sessionID]; ok {
		return l
	}

	l := NewLane(sessionID, p.capacity)
	p.lanes[sessionID] = l
	return l
}

// Acquire returns the session's lane and pins it in the pool until release
// is called. PruneIdle never closes a pinned lane, so work submitted between
// Acquire and release always lands on the lane the pool still hands out.
func (p *LanePool) Acquire(sessionID string) (lane *Lane, release func()) {
	p.mu.Lock()
	l, ok := p.lanes[sessionID]
	if !ok {
		l = NewLane(sessionID, p.capacity)
		p.lanes[sessionID] = l
	}
	l.refs++
	p.mu.Unlock()

	var once sync.Once
	return l, func() {
		once.Do(func() {
			p.mu.Lock()
			l.refs--
			p.mu.Unlock()
		})
	}
}

// Busy reports whether the session's lane has queued or running work, or is
// pinned by a caller about to submit some.
func (p *LanePool) Busy(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.lanes[sessionID]
	return ok && (l.refs > 0 || l.Pending() > 0)
}

// Remove detaches and closes the session's lane, if any. It waits for work
// already in the lane to finish.
func (p *LanePool) Remove(sessionID string) {
	p.mu.Lock()
	l, ok := p.lanes[sessionID]
	delete(p.lanes, sessionID)
	p.mu.Unlock()

	if ok {
		l.Close()
	}
}

// PruneIdle closes idle, unpinned lanes whose session keep reports false.
func (p *LanePool) PruneIdle(keep func(sessionID string) bool) int {
	p.mu.Lock()
	var stale []*Lane
	for id, l := range p.lanes {
		if l.refs == 0 && l.Pending() == 0 && !keep(id) {
			stale = append(stale, l)
			delete(p.lanes, id)
		}
	}
	p.mu.Unlock()

	for _, l := range stale {
		l.Close()
	}
	return len(stale)
}

// Len reports the number of live lanes.
func (p *LanePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lanes)
}

// Close shuts down all lanes managed by the pool.
func (p *LanePool) Close() {
	p.mu.Lock()
	lanes := p.lanes
	p.lanes = make(map[string]*Lane)
	p.mu.Unlock()

	for _, l := range lanes {
		l.Close()
	}
}
