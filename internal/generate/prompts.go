// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package generate

import (
	"fmt"
	"strings"

	"github.com/contentloop/contentloop/internal/store"
)

const writerSystemPrompt = "You are an expert content writer who specializes in expanding user ideas " +
	"into engaging, well-structured content. You excel at taking initial concepts, details and rough " +
	"ideas and transforming them into polished, professional content while preserving the user's " +
	"original intent and voice. You work collaboratively with human feedback to continuously improve " +
	"the content."

var lengthHints = map[store.Length]string{
	store.LengthShort:  "short (roughly 80 to 150 words)",
	store.LengthMedium: "medium (roughly 150 to 300 words)",
	store.LengthLong:   "long (roughly 300 to 600 words)",
}

func lengthHint(l store.Length) string {
	if h, ok := lengthHints[l]; ok {
		return h
	}
	return lengthHints[store.LengthMedium]
}

func writeContext(sb *strings.Builder, brief string, c store.Constraints) {
	fmt.Fprintf(sb, "Content Ideas & Details: %s\n", brief)
	fmt.Fprintf(sb, "Content Length: %s\n", lengthHint(c.Length))
	if style := strings.TrimSpace(c.Style); style != "" {
		fmt.Fprintf(sb, "Writing Style: %s\n", style)
	}
}

func draftPrompt(req DraftRequest) string {
	var sb strings.Builder
	writeContext(&sb, req.Brief, req.Constraints)
	sb.WriteString(`
The user has provided their content ideas and details above. Expand on these ideas and create a structured, engaging content post.

Instructions:
- Take the user's ideas, points and details as your foundation
- Develop their concepts into a well-structured post
- Keep their intended message while improving clarity and engagement
- Incorporate and elaborate on any specific points, examples or experiences they gave
- Write a compelling hook, smooth transitions and a strong conclusion
- Match the desired length`)
	if strings.TrimSpace(req.Constraints.Style) != "" {
		sb.WriteString(" and follow the specified writing style carefully")
	}
	sb.WriteString("\n\nReply with the post text only.")
	return sb.String()
}

func revisionPrompt(req RevisionRequest) string {
	var sb strings.Builder
	writeContext(&sb, req.Brief, req.Constraints)

	sb.WriteString("\nCurrent Draft:\n")
	sb.WriteString(req.Draft)
	sb.WriteString("\n\n")

	if len(req.History) > 0 {
		sb.WriteString("Earlier Feedback (already applied):\n")
		for _, f := range req.History {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Human Feedback: %s\n", req.Feedback)

	sb.WriteString(`
Revise the current draft so it addresses the human feedback. Keep what the feedback does not ask to change, stay consistent with earlier feedback and respect the requested length and style.

Reply with the revised post text only.`)
	return sb.String()
}
