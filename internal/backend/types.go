// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"fmt"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message is one turn of a chat request.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// Params holds sampling and context parameters for a request. Zero
// values mean "use the backend's default" and are omitted from the
// wire request.
type Params struct {
	Temperature float64 // 0.0-2.0
	TopP        float64 // 0.0-1.0
	NumCtx      int     // context window size in tokens
	MaxTokens   int     // generation cap, 0 for backend default
}

// wireOptions is the options object of the Ollama request body.
type wireOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

func (p *Params) wire() *wireOptions {
	if p == nil {
		return nil
	}
	if p.Temperature == 0 && p.TopP == 0 && p.NumCtx == 0 && p.MaxTokens == 0 {
		return nil
	}
	return &wireOptions{
		Temperature: p.Temperature,
		TopP:        p.TopP,
		NumCtx:      p.NumCtx,
		NumPredict:  p.MaxTokens,
	}
}

// generateRequest is the request body for the /api/generate endpoint.
type generateRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	System  string       `json:"system,omitempty"`
	Stream  bool         `json:"stream"`
	Options *wireOptions `json:"options,omitempty"`
}

// chatRequest is the request body for the /api/chat endpoint.
type chatRequest struct {
	Model    string       `json:"model"`
	Messages []Message    `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  *wireOptions `json:"options,omitempty"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Chunk is one unit of streamed backend output.
//
// A stream is zero or more content chunks followed by exactly one
// terminal chunk: Done set on success, Err set on failure. After
// cancellation Err holds the context's error.
type Chunk struct {
	// Text is the fragment of generated output in this chunk.
	Text string

	// Done marks the successful final chunk.
	Done bool

	// Statistics, populated on the final chunk only.
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
	EvalDuration     time.Duration

	// Err is the in-band failure, delivered as the last chunk before
	// the channel closes.
	Err error
}

// TokensPerSecond calculates generation speed from a final chunk.
func (c *Chunk) TokensPerSecond() float64 {
	if c.EvalDuration == 0 {
		return 0
	}
	return float64(c.CompletionTokens) / c.EvalDuration.Seconds()
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes one model installed on the backend.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
}

// FormatSize renders the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case m.Size >= gb:
		return fmt.Sprintf("%.1f GB", float64(m.Size)/gb)
	case m.Size >= mb:
		return fmt.Sprintf("%.1f MB", float64(m.Size)/mb)
	case m.Size >= kb:
		return fmt.Sprintf("%.1f KB", float64(m.Size)/kb)
	default:
		return fmt.Sprintf("%d B", m.Size)
	}
}

// listModelsResponse is the response from the /api/tags endpoint.
type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// versionResponse is the response from the /api/version endpoint.
type versionResponse struct {
	Version string `json:"version"`
}

// apiError is the error body an Ollama server returns on failure.
type apiError struct {
	Error string `json:"error"`
}
