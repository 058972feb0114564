// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and turns.
//
// This package defines the core domain types for one conversation: the
// ordered transcript and the turns inside it, including the streaming
// placeholder mechanics used while an assistant reply is generated.
//
// # Key Types
//
//   - Transcript: mutex-guarded ordered turn list; mutation is keyed by
//     turn ID so a cleared transcript silently absorbs stale appends
//   - Turn: one entry, authored by user or assistant, with attachments
//     and generation metrics
//   - Statistics: timing and token counts collected during streaming
//
// # Usage
//
// Drive a streaming assistant reply:
//
//	tr := model.NewTranscript()
//	tr.AppendUser("Hello!", nil)
//	placeholder := tr.AppendAssistantPlaceholder()
//	tr.AppendStreaming(placeholder.ID, "Hi ")
//	tr.AppendStreaming(placeholder.ID, "there.")
//	tr.FinalizeTurn(placeholder.ID, stats)
package model
