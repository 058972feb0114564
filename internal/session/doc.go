// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates one conversation between the user and
// a backend model: it builds requests from the transcript and the
// active role, streams the reply through the reasoning filter, and
// resolves each request to success, failure, or silent cancellation.
//
// # Key Types
//
//   - Session: the conversation orchestrator, one per conversation
//   - Config: initial role, model, and reveal settings
//   - Update: incremental change events for interactive consumers
//
// # Usage
//
// Create a session and send a message:
//
//	sess := session.New(be, session.DefaultConfig())
//	done := sess.Send("Explain goroutines", nil)
//	if err := <-done; err != nil {
//	    // Classified backend error; cancellation reports nil.
//	}
//
// Interactive consumers drain Updates() for streaming chunks:
//
//	for u := range sess.Updates() {
//	    if u.Kind == session.UpdateStreamChunk {
//	        fmt.Print(u.Text)
//	    }
//	}
//
// At most one request is in flight per session; a new Send cancels
// and fully resolves the previous one before appending its turns.
package session
