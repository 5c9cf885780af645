// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package safety

import (
	"slices"
	"strings"

	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// Mode decides what happens to text that matched a rule.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeFlag   Mode = "flag"
	ModeRedact Mode = "redact"
	ModeBlock  Mode = "block"
)

const redactedMarker = "[REDACTED]"

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOff, ModeFlag, ModeRedact, ModeBlock:
		return m, nil
	default:
		return "", looperr.Errorf(looperr.CodeSafetyModeInvalid,
			"safety mode %q must be one of off, flag, redact, block", s)
	}
}

// Apply resolves result under mode. original is returned untouched when
// nothing matched or the mode only flags.
func Apply(mode Mode, stage Stage, original string, result Result) (string, error) {
	if !result.Threat {
		return original, nil
	}

	switch mode {
	case ModeOff, ModeFlag:
		return original, nil
	case ModeRedact:
		return redact(result.Content, result.Matches), nil
	case ModeBlock:
		code := looperr.CodeSafetyInputBlocked
		if stage == StageOutput {
			code = looperr.CodeSafetyOutputBlocked
		}
		rules := result.Rules()
		return "", looperr.New(code,
			"content rejected by safety filter ("+strings.Join(rules, ", ")+")",
			looperr.Field("rules", rules),
		)
	default:
		return "", looperr.Errorf(looperr.CodeSafetyModeInvalid, "unknown safety mode %q", mode)
	}
}

// redact replaces matched regions with a marker, merging overlaps.
func redact(content string, matches []Match) string {
	sorted := slices.DeleteFunc(slices.Clone(matches), func(m Match) bool {
		return m.Location < 0 || m.Length < 0
	})
	if len(sorted) == 0 {
		return content
	}
	slices.SortFunc(sorted, func(a, b Match) int { return a.Location - b.Location })

	type span struct{ start, end int }
	spans := []span{{sorted[0].Location, sorted[0].Location + sorted[0].Length}}
	for _, m := range sorted[1:] {
		last := &spans[len(spans)-1]
		end := m.Location + m.Length
		if m.Location <= last.end {
			last.end = max(last.end, end)
		} else {
			spans = append(spans, span{m.Location, end})
		}
	}

	var b strings.Builder
	b.Grow(len(content))
	pos := 0
	for _, s := range spans {
		b.WriteString(content[pos:s.start])
		b.WriteString(redactedMarker)
		pos = min(s.end, len(content))
	}
	b.WriteString(content[pos:])
	return b.String()
}
