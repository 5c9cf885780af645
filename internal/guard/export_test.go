// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package guard

import "time"

// SetClock replaces the guard's time source for tests.
func (g *Guard) SetClock(now func() time.Time) { g.now = now }

// Evict runs one cleanup pass.
func (g *Guard) Evict() { g.evict() }

// KeyCount reports how many client keys are tracked.
func (g *Guard) KeyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.visitors)
}
