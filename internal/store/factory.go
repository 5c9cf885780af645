// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package store

import (
	"sort"
	"sync"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// SessionStoreFactory creates a session store rooted at dataDir.
type SessionStoreFactory func(dataDir string) (SessionStore, error)

var (
	factories   = map[string]SessionStoreFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, factory SessionStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "memory".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "memory"
	}
	return cfg.Backend
}

// NewSessionStore creates the session store selected by cfg.
func NewSessionStore(cfg *StorageConfig) (SessionStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, looperr.Errorf(looperr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	dataDir := ""
	if cfg != nil {
		dataDir = cfg.DataDir
	}
	return factory(dataDir)
}
