// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Envelope and data shapes for --json output.

package cli

import (
	"encoding/json"
	"os"
	"time"
)

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// JSONResponse is the envelope every --json command emits. Success and
// failure share the shape so callers can branch on one field.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *string     `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command"`
}

// NewJSONResponse builds a success envelope for a command.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse builds a failure envelope for a command.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the envelope to stdout, indented.
func (r *JSONResponse) Print() error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// DATA SHAPES
// =============================================================================

// VersionData reports build identifiers.
type VersionData struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// AskData reports a one-shot exchange.
type AskData struct {
	Response         string  `json:"response"`
	Model            string  `json:"model"`
	Role             string  `json:"role"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	DurationMs       int64   `json:"duration_ms"`
	TokensPerSec     float64 `json:"tokens_per_sec"`
}

// RoleData describes one assistant role.
type RoleData struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	MultiTurn    bool   `json:"multi_turn"`
	SystemPrompt string `json:"system_prompt"`
}

// ModelData describes one installed model.
type ModelData struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	Size       string    `json:"size"`
	Digest     string    `json:"digest,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	Active     bool      `json:"active"`
}

// HistoryEntryData describes one saved conversation in a listing.
type HistoryEntryData struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Role      string    `json:"role"`
	Model     string    `json:"model"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
	Preview   string    `json:"preview,omitempty"`
}

// SearchResultData describes one full-text search hit.
type SearchResultData struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	Author         string    `json:"author,omitempty"`
	Snippet        string    `json:"snippet"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StatusData reports overall health for the status command.
type StatusData struct {
	Backend StatusBackendInfo `json:"backend"`
	Chat    StatusChatInfo    `json:"chat"`
	History StatusHistoryInfo `json:"history"`
}

// StatusBackendInfo reports backend reachability.
type StatusBackendInfo struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Version   string `json:"version,omitempty"`
	Models    int    `json:"models,omitempty"`
}

// StatusChatInfo reports the active chat defaults.
type StatusChatInfo struct {
	Role        string  `json:"role"`
	Model       string  `json:"model"`
	Reveal      bool    `json:"reveal_thinking"`
	Temperature float64 `json:"temperature"`
	ContextSize int     `json:"context_size"`
}

// StatusHistoryInfo reports conversation storage and index state.
type StatusHistoryInfo struct {
	Enabled       bool   `json:"enabled"`
	Encrypted     bool   `json:"encrypted"`
	KeyPresent    bool   `json:"key_present"`
	Dir           string `json:"dir"`
	Conversations int    `json:"conversations"`
	IndexedTurns  int    `json:"indexed_turns,omitempty"`
	LastIndexed   string `json:"last_indexed,omitempty"`
}

// StatsData reports storage and index statistics for history stats.
type StatsData struct {
	Conversations  int    `json:"conversations"`
	IndexedConvs   int    `json:"indexed_conversations"`
	IndexedTurns   int    `json:"indexed_turns"`
	LastIndexed    string `json:"last_indexed,omitempty"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
	StoreDir       string `json:"store_dir"`
}
