// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend abstracts the completion backends that produce
// assistant replies as streams of text fragments.
//
// Two implementations exist behind the Backend interface:
//
//   - Remote: HTTP client for an Ollama-compatible server. Every call
//     carries the full conversation history; the server holds no state
//     between calls.
//   - Local: wraps an in-process inference Engine that retains model
//     state across calls, so only turns not yet seen by the engine are
//     fed on each request.
//
// # Key Types
//
//   - Backend: the common interface (Generate for single-shot prompts,
//     Chat for multi-turn conversations)
//   - Chunk: one unit of streamed output; the terminal chunk carries
//     either Done plus token statistics or an in-band error
//   - Params: sampling and context-window parameters
//   - BackendError: classified failure (unavailable, protocol, model
//     not found)
//
// # Usage
//
//	be := backend.NewRemote()
//	ch := be.Chat(ctx, "qwen2.5:7b", []backend.Message{
//	    {Role: "user", Content: "Hello"},
//	}, nil)
//	for chunk := range ch {
//	    if chunk.Err != nil {
//	        return chunk.Err
//	    }
//	    fmt.Print(chunk.Text)
//	}
//
// Optional capabilities (health checks, model listing) are separate
// interfaces so callers can feature-detect with a type assertion
// instead of every implementation stubbing them out.
package backend
