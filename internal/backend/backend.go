// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "context"

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend produces assistant replies as streams of text fragments.
//
// Both operations return immediately with a channel. The channel yields
// zero or more content chunks followed by exactly one terminal chunk
// (Done on success, Err on failure), then closes. Cancelling the
// context aborts the stream; the terminal chunk then carries the
// context's error.
type Backend interface {
	// Generate runs a single-shot completion with no history. The
	// system prompt may be empty.
	Generate(ctx context.Context, model, system, prompt string, params *Params) <-chan Chunk

	// Chat runs a completion over an ordered turn history. The caller
	// passes the full history on every call; implementations that keep
	// state between calls skip the prefix they have already consumed.
	Chat(ctx context.Context, model string, messages []Message, params *Params) <-chan Chunk
}

// =============================================================================
// OPTIONAL CAPABILITIES
// =============================================================================

// HealthChecker is implemented by backends that can be probed for
// liveness before sending a request.
type HealthChecker interface {
	// CheckRunning verifies the backend is reachable. A nil return
	// means requests can be attempted.
	CheckRunning(ctx context.Context) error
}

// ModelLister is implemented by backends that can enumerate the models
// available to them.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
