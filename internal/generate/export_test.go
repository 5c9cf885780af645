// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package generate

var (
	DraftPrompt        = draftPrompt
	RevisionPrompt     = revisionPrompt
	WriterSystemPrompt = writerSystemPrompt
)
