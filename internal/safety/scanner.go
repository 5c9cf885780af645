// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package safety screens text crossing the model boundary: briefs and
// feedback for prompt injection on the way in, drafts for leaked
// credentials on the way out.
package safety

import (
	"regexp"
	"strings"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Stage identifies which side of the model a rule applies to.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

func (s Stage) Valid() bool {
	return s == StageInput || s == StageOutput
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Rule is one detection pattern bound to a stage.
type Rule struct {
	Stage    Stage
	Name     string
	Pattern  *regexp.Regexp
	Severity Severity
}

// Match locates one detection. Location and Length are byte offsets into
// Result.Content.
type Match struct {
	Rule     string
	Location int
	Length   int
	Severity Severity
}

// Result is the outcome of a scan.
type Result struct {
	Threat  bool
	Matches []Match
	// Content is the normalized text the match offsets refer to.
	Content string
}

// Rules returns the distinct rule names that matched.
func (r Result) Rules() []string {
	seen := make(map[string]bool, len(r.Matches))
	var out []string
	for _, m := range r.Matches {
		if !seen[m.Rule] {
			seen[m.Rule] = true
			out = append(out, m.Rule)
		}
	}
	return out
}

// DefaultMaxContentLength caps the text a Scanner will evaluate.
const DefaultMaxContentLength = 1 << 20

// Scanner evaluates text against compiled rules.
type Scanner struct {
	rules            []Rule
	maxContentLength int
}

// NewScanner validates rules and returns a Scanner over them.
func NewScanner(rules []Rule) (*Scanner, error) {
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, looperr.Errorf(looperr.CodeSafetyRuleInvalid, "rule %d (%s) has nil pattern", i, r.Name)
		}
		if !r.Stage.Valid() {
			return nil, looperr.Errorf(looperr.CodeSafetyRuleInvalid, "rule %d (%s) has invalid stage %q", i, r.Name, r.Stage)
		}
		if r.Name == "" {
			return nil, looperr.Errorf(looperr.CodeSafetyRuleInvalid, "rule %d has empty name", i)
		}
		if !r.Severity.Valid() {
			return nil, looperr.Errorf(looperr.CodeSafetyRuleInvalid, "rule %d (%s) has invalid severity %q", i, r.Name, r.Severity)
		}
	}
	return &Scanner{rules: rules, maxContentLength: DefaultMaxContentLength}, nil
}

var invisibleCharReplacer = strings.NewReplacer(
	"\u200b", "", // zero-width space
	"\u200c", "", // zero-width non-joiner
	"\u200d", "", // zero-width joiner
	"\ufeff", "", // BOM
	"\u00ad", "", // soft hyphen
	"\u034f", "", // combining grapheme joiner
	"\u061c", "", // Arabic letter mark
	"\u180e", "", // Mongolian vowel separator
	"\u2060", "", // word joiner
	"\u2061", "",
	"\u2062", "",
	"\u2063", "",
	"\u2064", "",
)

// normalize strips invisible characters and applies NFKC so look-alike
// spellings hit the same patterns.
func normalize(s string) string {
	return norm.NFKC.String(invisibleCharReplacer.Replace(s))
}

// Scan checks content against the rules for stage.
func (s *Scanner) Scan(content string, stage Stage) (Result, error) {
	if !stage.Valid() {
		return Result{}, looperr.Errorf(looperr.CodeSafetyRuleInvalid, "invalid scan stage %q", stage)
	}

	content = normalize(content)
	if len(content) > s.maxContentLength {
		return Result{Threat: true, Content: content, Matches: []Match{{
			Rule:     "content_too_large",
			Length:   len(content),
			Severity: SeverityHigh,
		}}}, nil
	}

	result := Result{Content: content}
	for _, rule := range s.rules {
		if rule.Stage != stage {
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			result.Threat = true
			result.Matches = append(result.Matches, Match{
				Rule:     rule.Name,
				Location: loc[0],
				Length:   loc[1] - loc[0],
				Severity: rule.Severity,
			})
		}
	}
	return result, nil
}
