// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package engine

import "strings"

// DefaultSentinel is the feedback text that finishes a session.
const DefaultSentinel = "done"

// Terminator decides whether feedback text ends the refinement loop. It must
// depend on the text alone.
type Terminator interface {
	Terminal(feedback string) bool
}

// SentinelTerminator matches trimmed, case-folded feedback exactly against a
// fixed token set.
type SentinelTerminator struct {
	tokens map[string]struct{}
}

// NewSentinelTerminator builds a terminator for tokens. Blank tokens are
// ignored; with none left it falls back to DefaultSentinel.
func NewSentinelTerminator(tokens ...string) SentinelTerminator {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if norm := normalize(tok); norm != "" {
			set[norm] = struct{}{}
		}
	}
	if len(set) == 0 {
		set[DefaultSentinel] = struct{}{}
	}
	return SentinelTerminator{tokens: set}
}

func (t SentinelTerminator) Terminal(feedback string) bool {
	_, ok := t.tokens[normalize(feedback)]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
