// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", newSessionStore)
}

func newSessionStore(dataDir string) (store.SessionStore, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, looperr.Wrapf(err, looperr.CodeStoreDatabaseFailure, "creating data dir %s", dataDir)
	}
	return NewSessionStore(filepath.Join(dataDir, "sessions.db"))
}
