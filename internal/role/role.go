// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package role defines the static catalog of assistant roles.
package role

import (
	"errors"
	"fmt"
)

// =============================================================================
// ROLE DEFINITION
// =============================================================================

// Role bundles a system prompt with the model it should run on. Roles are
// declared at process start and never mutated; the catalog is the single
// source of truth for per-role behavior, including whether a role keeps
// conversation history.
type Role struct {
	// ID is the stable identifier used in config and on the CLI.
	ID string

	// DisplayName is the human-readable name shown in pickers.
	DisplayName string

	// SystemPrompt is sent with every request. May be empty.
	SystemPrompt string

	// DefaultModel is the backend model selected when this role
	// becomes active.
	DefaultModel string

	// MultiTurn marks roles that accumulate conversation history.
	// Roles with MultiTurn=false are stateless-per-turn: the transcript
	// is cleared before every send and no history is transmitted.
	MultiTurn bool
}

// ErrUnknownRole is returned when a role id is not in the catalog.
var ErrUnknownRole = errors.New("unknown role")

// =============================================================================
// CATALOG
// =============================================================================

// roles is the catalog in declaration order. Order is part of the
// contract: List returns roles exactly as declared here.
var roles = []Role{
	{
		ID:          "chat",
		DisplayName: "Chat",
		SystemPrompt: "You are a helpful, knowledgeable assistant. " +
			"Answer clearly and concisely. When you are not sure, say so.",
		DefaultModel: "deepseek-r1:7b",
		MultiTurn:    true,
	},
	{
		ID:          "coder",
		DisplayName: "Code Assistant",
		SystemPrompt: "You are an expert programming assistant. " +
			"Answer with working code and short explanations. " +
			"Prefer standard library solutions and point out edge cases.",
		DefaultModel: "qwen2.5-coder:7b",
		MultiTurn:    true,
	},
	{
		ID:          "translate",
		DisplayName: "Translator",
		SystemPrompt: "You are a translation engine. Detect the language of " +
			"the user's text and translate it into English; if the text is " +
			"already English, translate it into Japanese. Preserve meaning, " +
			"tone, and formatting. Output only the translation.",
		DefaultModel: "qwen2.5:7b",
		MultiTurn:    false,
	},
	{
		ID:          "summarize",
		DisplayName: "Summarizer",
		SystemPrompt: "Summarize the user's text in a few sentences. Keep " +
			"the key facts, drop filler, and do not add information that is " +
			"not in the text.",
		DefaultModel: "llama3.2:3b",
		MultiTurn:    false,
	},
	{
		ID:          "proofread",
		DisplayName: "Proofreader",
		SystemPrompt: "Correct the spelling, grammar, and punctuation of the " +
			"user's text without changing its meaning or style. Output only " +
			"the corrected text.",
		DefaultModel: "llama3.2:3b",
		MultiTurn:    false,
	},
}

// byID indexes the catalog for lookup. Built once at init.
var byID = make(map[string]Role, len(roles))

func init() {
	for _, r := range roles {
		byID[r.ID] = r
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

// List returns all roles in declaration order. The returned slice is a
// copy; callers may not mutate the catalog.
func List() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ByID returns the role with the given id, or ErrUnknownRole.
func ByID(id string) (Role, error) {
	r, ok := byID[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, id)
	}
	return r, nil
}

// Default returns the first role in the catalog, used when no role is
// configured.
func Default() Role {
	return roles[0]
}

// IDs returns all role ids in declaration order.
func IDs() []string {
	ids := make([]string, len(roles))
	for i, r := range roles {
		ids[i] = r.ID
	}
	return ids
}
