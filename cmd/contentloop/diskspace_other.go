// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

//go:build !unix

package main

import "errors"

func availableBytes(string) (uint64, error) {
	return 0, errors.New("not supported on this platform")
}
