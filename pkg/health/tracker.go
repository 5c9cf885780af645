// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package health

import (
	"sync"
	"time"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

const (
	// DefaultCooldown is how long a provider sits out after its first failure.
	DefaultCooldown = 30 * time.Second
	// MaxCooldown caps the doubling cooldown of a provider that keeps failing.
	MaxCooldown = 5 * time.Minute
)

// Tracker records generation outcomes for one provider. Each consecutive
// failure doubles the time the provider is skipped by failover, up to
// MaxCooldown; a success resets the streak.
type Tracker struct {
	mu sync.RWMutex

	base        time.Duration
	streak      int64
	failures    int64
	lastFailure time.Time
	lastError   string
	now         func() time.Time
}

// NewTracker returns a Tracker whose first cooldown lasts base.
func NewTracker(base time.Duration) (*Tracker, error) {
	if base <= 0 {
		return nil, looperr.Errorf(looperr.CodeConfigValidateInvalidValue,
			"health cooldown must be positive, got %s", base)
	}
	return &Tracker{base: base, now: time.Now}, nil
}

// SetClock replaces the time source.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Fail records a failed call. err may be nil.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streak++
	t.failures++
	t.lastFailure = t.now()
	if err != nil {
		t.lastError = err.Error()
	}
}

// Succeed ends the current failure streak.
func (t *Tracker) Succeed() {
	t.mu.Lock()
	t.streak = 0
	t.mu.Unlock()
}

// Available reports whether the provider may be routed to.
func (t *Tracker) Available() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.availableLocked()
}

// Metrics snapshots the tracker.
func (t *Tracker) Metrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := Metrics{
		FailureCount:        t.failures,
		ConsecutiveFailures: t.streak,
		LastError:           t.lastError,
		Available:           t.availableLocked(),
	}
	if t.failures > 0 {
		at := t.lastFailure
		m.LastFailureAt = &at
	}
	if t.streak > 0 {
		until := t.cooldownEndLocked()
		m.CooldownUntil = &until
	}
	return m
}

func (t *Tracker) availableLocked() bool {
	return t.streak == 0 || !t.now().Before(t.cooldownEndLocked())
}

func (t *Tracker) cooldownEndLocked() time.Time {
	d := t.base
	for i := int64(1); i < t.streak && d < MaxCooldown; i++ {
		d *= 2
	}
	return t.lastFailure.Add(min(d, MaxCooldown))
}
