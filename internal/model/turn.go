// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and turns.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// AUTHOR TYPE
// =============================================================================

// Author represents who wrote a turn.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// String returns the string representation of the author.
func (a Author) String() string {
	return string(a)
}

// DisplayName returns a human-readable name for the author.
func (a Author) DisplayName() string {
	switch a {
	case AuthorUser:
		return "You"
	case AuthorAssistant:
		return "Assistant"
	default:
		return string(a)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is a binary blob attached to a user turn. Only name and
// size survive persistence; the bytes live for the process lifetime.
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
	Size int64  `json:"size"`
}

// NewAttachment creates an attachment from raw bytes.
func NewAttachment(name string, data []byte) Attachment {
	return Attachment{Name: name, Data: data, Size: int64(len(data))}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is a single transcript entry. An assistant turn starts as a
// streaming placeholder whose text grows by append-only concatenation;
// FinalizeStream freezes it.
//
// Turns are mutated only through the owning Transcript, which
// serializes access. Values handed out by Transcript are snapshots.
type Turn struct {
	// Identity
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`

	// Content
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Streaming state (not persisted)
	IsStreaming bool            `json:"-"`
	streamText  strings.Builder `json:"-"`

	// Generation metrics (assistant turns)
	TokenCount    int           `json:"token_count,omitempty"`
	TTFT          time.Duration `json:"ttft_ns,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"`
	TokensPerSec  float64       `json:"tokens_per_sec,omitempty"`
}

// NewUserTurn creates a user turn.
func NewUserTurn(text string, attachments []Attachment) *Turn {
	return &Turn{
		ID:          generateTurnID(),
		Author:      AuthorUser,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
}

// NewAssistantTurn creates an empty streaming placeholder.
func NewAssistantTurn() *Turn {
	return &Turn{
		ID:          generateTurnID(),
		Author:      AuthorAssistant,
		CreatedAt:   time.Now(),
		IsStreaming: true,
	}
}

// appendText grows a streaming turn. No-op once finalized.
func (t *Turn) appendText(fragment string) {
	if t.IsStreaming {
		t.streamText.WriteString(fragment)
	}
}

// finalizeStream completes streaming and records statistics.
func (t *Turn) finalizeStream(stats *Statistics) {
	if !t.IsStreaming {
		return
	}

	t.Text = t.streamText.String()
	t.streamText.Reset()
	t.IsStreaming = false

	if stats != nil {
		t.TTFT = stats.TTFT
		t.TotalDuration = stats.TotalDuration
		t.TokenCount = stats.CompletionTokens
		t.TokensPerSec = stats.TokensPerSecond
	}
}

// DisplayText returns the text to display, streaming or final.
func (t *Turn) DisplayText() string {
	if t.IsStreaming {
		return t.streamText.String()
	}
	return t.Text
}

// IsEmpty returns true if the turn has produced no text.
func (t *Turn) IsEmpty() bool {
	return len(t.Text) == 0 && t.streamText.Len() == 0
}

// Preview returns a rune-safe truncated preview of the turn text.
func (t *Turn) Preview(maxLen int) string {
	return util.TruncateRunes(util.FirstLine(t.DisplayText()), maxLen)
}

// EstimateTokens gives a rough token estimate, ~4 characters each.
func (t *Turn) EstimateTokens() int {
	return (len(t.DisplayText()) + 3) / 4
}

// FormatStats renders generation metrics for an assistant turn, or ""
// when none were recorded.
func (t *Turn) FormatStats() string {
	if t.Author != AuthorAssistant || t.TotalDuration == 0 {
		return ""
	}
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s | TTFT %dms",
		formatSeconds(t.TotalDuration),
		t.TokenCount,
		t.TokensPerSec,
		t.TTFT.Milliseconds(),
	)
}

// snapshot returns a copyable value of the turn with Text resolved.
// The returned value's builder is zeroed and must never be written.
func (t *Turn) snapshot() Turn {
	return Turn{
		ID:            t.ID,
		Author:        t.Author,
		CreatedAt:     t.CreatedAt,
		Text:          t.DisplayText(),
		Attachments:   t.Attachments,
		IsStreaming:   t.IsStreaming,
		TokenCount:    t.TokenCount,
		TTFT:          t.TTFT,
		TotalDuration: t.TotalDuration,
		TokensPerSec:  t.TokensPerSec,
	}
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics collects timing and token counts for one generation.
type Statistics struct {
	StartTime      time.Time
	FirstTokenTime time.Time
	EndTime        time.Time

	PromptTokens     int
	CompletionTokens int

	TTFT            time.Duration
	TotalDuration   time.Duration
	TokensPerSecond float64
}

// NewStatistics creates a Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordFirstToken marks the arrival of the first token.
func (s *Statistics) RecordFirstToken() {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the derived metrics.
func (s *Statistics) Finalize(completionTokens int) {
	s.EndTime = time.Now()
	s.CompletionTokens = completionTokens
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	if s.TotalDuration > 0 {
		s.TokensPerSecond = float64(completionTokens) / s.TotalDuration.Seconds()
	}
}

// Format renders the statistics in one line.
func (s *Statistics) Format() string {
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s | TTFT %dms",
		formatSeconds(s.TotalDuration),
		s.CompletionTokens,
		s.TokensPerSecond,
		s.TTFT.Milliseconds(),
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateTurnID creates a unique turn ID.
func generateTurnID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

func formatSeconds(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
