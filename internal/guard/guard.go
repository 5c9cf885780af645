// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package guard implements admission control for generator-backed calls.
package guard

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

const (
	DefaultWindow  = time.Minute
	DefaultMaxKeys = 10000

	unknownKey = "ip:unknown"
)

// Config sets the sliding-window budgets. A zero PerClient and Global
// disables admission control.
type Config struct {
	Window    time.Duration
	PerClient int
	Global    int
	MaxKeys   int
	// CleanupInterval controls how often idle keys are evicted.
	CleanupInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.MaxKeys == 0 {
		c.MaxKeys = DefaultMaxKeys
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.Window < 0 {
		return looperr.Errorf(looperr.CodeGuardConfigInvalid, "guard window must not be negative (got %s)", c.Window)
	}
	if c.PerClient < 0 {
		return looperr.Errorf(looperr.CodeGuardConfigInvalid, "guard per-client budget must not be negative (got %d)", c.PerClient)
	}
	if c.Global < 0 {
		return looperr.Errorf(looperr.CodeGuardConfigInvalid, "guard global budget must not be negative (got %d)", c.Global)
	}
	if c.MaxKeys < 0 {
		return looperr.Errorf(looperr.CodeGuardConfigInvalid, "guard max keys must not be negative (got %d)", c.MaxKeys)
	}
	return nil
}

// Enabled reports whether any budget is configured.
func (c Config) Enabled() bool {
	return c.PerClient > 0 || c.Global > 0
}

type visitor struct {
	calls    []time.Time
	lastSeen time.Time
}

// Guard tracks call timestamps per client key and globally. A nil *Guard
// admits everything.
type Guard struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	global   []time.Time
}

// New validates cfg and returns a Guard, or nil when no budget is set. The
// cleanup loop runs until done is closed.
func New(cfg Config, done <-chan struct{}) (*Guard, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, nil
	}

	g := &Guard{
		cfg:      cfg,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
	go g.cleanupLoop(done)
	return g, nil
}

// Admit records a call for key if both the client and global budgets allow
// it. Otherwise it returns a rate-limited error carrying a retry-after hint
// and records nothing.
func (g *Guard) Admit(_ context.Context, key string) error {
	if g == nil {
		return nil
	}
	if key == "" {
		key = unknownKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.cfg.Window)

	v := g.visitors[key]
	if v == nil {
		v = &visitor{}
		g.visitors[key] = v
	}
	v.lastSeen = now
	v.calls = trim(v.calls, cutoff)
	g.global = trim(g.global, cutoff)

	if g.cfg.PerClient > 0 && len(v.calls) >= g.cfg.PerClient {
		return g.limited(key, "client", v.calls[0], now)
	}
	if g.cfg.Global > 0 && len(g.global) >= g.cfg.Global {
		return g.limited(key, "global", g.global[0], now)
	}

	v.calls = append(v.calls, now)
	g.global = append(g.global, now)
	return nil
}

// Remaining reports how many calls key may still make in the current window.
// A negative value means unlimited.
func (g *Guard) Remaining(key string) int {
	if g == nil {
		return -1
	}
	if key == "" {
		key = unknownKey
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.cfg.Window)
	remaining := -1
	if g.cfg.PerClient > 0 {
		used := 0
		if v := g.visitors[key]; v != nil {
			used = len(trim(v.calls, cutoff))
		}
		remaining = max(g.cfg.PerClient-used, 0)
	}
	if g.cfg.Global > 0 {
		left := max(g.cfg.Global-len(trim(g.global, cutoff)), 0)
		if remaining < 0 || left < remaining {
			remaining = left
		}
	}
	return remaining
}

func (g *Guard) limited(key, scope string, oldest, now time.Time) error {
	retryAfter := oldest.Add(g.cfg.Window).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	slog.Warn("rate limit exceeded",
		"scope", scope,
		"key_hash", HashKey(key),
		"retry_after", retryAfter)
	return looperr.New(looperr.CodeGuardRateLimited,
		fmt.Sprintf("%s rate limit exceeded, retry in %s", scope, retryAfter.Round(time.Second)),
		looperr.FieldRetryAfter(retryAfter),
		looperr.Field("scope", scope))
}

// trim drops timestamps at or before cutoff. calls is ordered oldest first.
func trim(calls []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return calls
	}
	return append(calls[:0], calls[i:]...)
}

func (g *Guard) cleanupLoop(done <-chan struct{}) {
	ticker := time.NewTicker(g.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.evict()
		case <-done:
			return
		}
	}
}

// evict removes keys with no calls in the window, then enforces MaxKeys by
// dropping the least recently seen keys.
func (g *Guard) evict() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.cfg.Window)

	type entry struct {
		key      string
		lastSeen time.Time
	}
	entries := make([]entry, 0, len(g.visitors))
	for key, v := range g.visitors {
		v.calls = trim(v.calls, cutoff)
		if len(v.calls) == 0 {
			delete(g.visitors, key)
			continue
		}
		entries = append(entries, entry{key: key, lastSeen: v.lastSeen})
	}

	if g.cfg.MaxKeys > 0 && len(entries) > g.cfg.MaxKeys {
		slices.SortFunc(entries, func(a, b entry) int {
			return a.lastSeen.Compare(b.lastSeen)
		})
		toEvict := len(entries) - g.cfg.MaxKeys
		for _, e := range entries[:toEvict] {
			delete(g.visitors, e.key)
		}
		slog.Warn("rate limiter key cap enforced",
			"evicted", toEvict, "max_keys", g.cfg.MaxKeys, "remaining", len(g.visitors))
	}
}

// HashKey returns the first 8 hex chars of SHA-256(key) for log privacy.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:4])
}
