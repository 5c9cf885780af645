// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package safety

import (
	"regexp"
	"slices"
)

// DefaultRules returns the built-in input and output rules.
func DefaultRules() []Rule {
	return slices.Concat(InputRules(), OutputRules())
}

// InputRules detect attempts to steer the writer away from the brief.
func InputRules() []Rule {
	return []Rule{
		{
			Name:     "instruction_override",
			Pattern:  regexp.MustCompile(`(?i)(ignore|disregard|override|forget|do\s+not\s+follow)\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
		{
			Name:     "role_confusion",
			Pattern:  regexp.MustCompile(`(?i)you\s+are\s+now\s+\w+[,.]?\s*(do|ignore|forget|disregard)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
		{
			Name:     "delimiter_abuse",
			Pattern:  regexp.MustCompile("(?i)```system\\b"),
			Stage:    StageInput,
			Severity: SeverityMedium,
		},
		{
			Name:     "system_block_injection",
			Pattern:  regexp.MustCompile(`(?i)(?:<\|?system\|?>|\[system\]|<<SYS>>)`),
			Stage:    StageInput,
			Severity: SeverityHigh,
		},
		{
			Name:     "prompt_exfiltration",
			Pattern:  regexp.MustCompile(`(?i)(reveal|print|repeat|show)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions)`),
			Stage:    StageInput,
			Severity: SeverityMedium,
		},
	}
}

// OutputRules detect credentials that must never appear in published copy.
func OutputRules() []Rule {
	specs := []struct {
		name     string
		pattern  string
		severity Severity
	}{
		{"aws_access_key", `AKIA[0-9A-Z]{16}`, SeverityHigh},
		{"openai_api_key", `sk-proj-[A-Za-z0-9_-]{20,}`, SeverityHigh},
		{"openai_legacy_key", `sk-[A-Za-z0-9]{40,}`, SeverityMedium},
		{"anthropic_api_key", `sk-ant-api\d{2}-[A-Za-z0-9_-]{20,}`, SeverityHigh},
		{"openrouter_api_key", `sk-or-v1-[a-f0-9]{64}`, SeverityHigh},
		{"google_api_key", `AIza[0-9A-Za-z_-]{35}`, SeverityHigh},
		{"github_pat", `ghp_[A-Za-z0-9]{36}`, SeverityHigh},
		{"github_fine_grained_pat", `github_pat_[A-Za-z0-9_]{22,}`, SeverityHigh},
		{"slack_token", `xox[bpas]-[A-Za-z0-9-]+`, SeverityHigh},
		{"npm_token", `npm_[A-Za-z0-9]{36}`, SeverityHigh},
		{"bearer_token", `(?i)bearer\s+[A-Za-z0-9_\-.]{20,}`, SeverityHigh},
		{"pem_private_key", `-----BEGIN\s+(RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`, SeverityHigh},
		{"database_connection_string", `(?i)(postgres(?:ql)?|mysql|mongodb|redis)://[^\s:@]+:[^@\s]+@[^\s]+`, SeverityHigh},
		{"keyring_uri", `keyring://[^\s]+`, SeverityMedium},
	}

	rules := make([]Rule, len(specs))
	for i, s := range specs {
		rules[i] = Rule{
			Stage:    StageOutput,
			Name:     s.name,
			Pattern:  regexp.MustCompile(s.pattern),
			Severity: s.severity,
		}
	}
	return rules
}
