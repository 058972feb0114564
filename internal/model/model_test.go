// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// AUTHOR TESTS
// =============================================================================

func TestAuthor_DisplayName(t *testing.T) {
	tests := []struct {
		author Author
		want   string
	}{
		{AuthorUser, "You"},
		{AuthorAssistant, "Assistant"},
		{Author("other"), "other"},
	}

	for _, tc := range tests {
		if got := tc.author.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.author, got, tc.want)
		}
	}
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestNewUserTurn(t *testing.T) {
	atts := []Attachment{NewAttachment("notes.txt", []byte("hello"))}
	turn := NewUserTurn("Hi there", atts)

	if !strings.HasPrefix(turn.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", turn.ID)
	}
	if turn.Author != AuthorUser {
		t.Errorf("Author = %q, want user", turn.Author)
	}
	if turn.Text != "Hi there" {
		t.Errorf("Text = %q", turn.Text)
	}
	if turn.IsStreaming {
		t.Error("user turns never stream")
	}
	if turn.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if len(turn.Attachments) != 1 || turn.Attachments[0].Size != 5 {
		t.Errorf("Attachments = %+v", turn.Attachments)
	}
}

func TestNewAssistantTurn(t *testing.T) {
	turn := NewAssistantTurn()

	if turn.Author != AuthorAssistant {
		t.Errorf("Author = %q, want assistant", turn.Author)
	}
	if !turn.IsStreaming {
		t.Error("new assistant turn should be streaming")
	}
	if !turn.IsEmpty() {
		t.Error("new assistant turn should be empty")
	}
}

func TestTurn_StreamingLifecycle(t *testing.T) {
	turn := NewAssistantTurn()

	turn.appendText("Hello")
	turn.appendText(" world")

	if got := turn.DisplayText(); got != "Hello world" {
		t.Errorf("DisplayText() = %q during streaming", got)
	}
	if turn.Text != "" {
		t.Errorf("Text = %q, should stay empty until finalized", turn.Text)
	}
	if turn.IsEmpty() {
		t.Error("turn with streamed text is not empty")
	}

	stats := &Statistics{
		TTFT:             120 * time.Millisecond,
		TotalDuration:    2 * time.Second,
		CompletionTokens: 42,
		TokensPerSecond:  21.0,
	}
	turn.finalizeStream(stats)

	if turn.IsStreaming {
		t.Error("finalized turn should not be streaming")
	}
	if turn.Text != "Hello world" {
		t.Errorf("Text = %q after finalize", turn.Text)
	}
	if turn.TokenCount != 42 {
		t.Errorf("TokenCount = %d", turn.TokenCount)
	}

	// Appends after finalize are ignored.
	turn.appendText("more")
	if turn.DisplayText() != "Hello world" {
		t.Errorf("DisplayText() = %q, append after finalize should be dropped", turn.DisplayText())
	}
}

func TestTurn_FinalizeIdempotent(t *testing.T) {
	turn := NewAssistantTurn()
	turn.appendText("once")
	turn.finalizeStream(nil)
	turn.finalizeStream(&Statistics{CompletionTokens: 99})

	if turn.TokenCount != 0 {
		t.Error("second finalize should be a no-op")
	}
}

func TestTurn_Preview(t *testing.T) {
	turn := NewUserTurn("first line of the message\nsecond line", nil)

	got := turn.Preview(80)
	if got != "first line of the message" {
		t.Errorf("Preview() = %q, want first line only", got)
	}

	turn = NewUserTurn(strings.Repeat("a", 100), nil)
	got = turn.Preview(10)
	if len([]rune(got)) != 10 {
		t.Errorf("Preview() length = %d runes, want 10", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Preview() = %q, want ellipsis", got)
	}
}

func TestTurn_EstimateTokens(t *testing.T) {
	turn := NewUserTurn("12345678", nil)
	if got := turn.EstimateTokens(); got != 2 {
		t.Errorf("EstimateTokens() = %d, want 2", got)
	}
}

func TestTurn_FormatStats(t *testing.T) {
	user := NewUserTurn("hi", nil)
	if got := user.FormatStats(); got != "" {
		t.Errorf("user FormatStats() = %q, want empty", got)
	}

	turn := NewAssistantTurn()
	turn.appendText("text")
	turn.finalizeStream(&Statistics{
		TTFT:             250 * time.Millisecond,
		TotalDuration:    2500 * time.Millisecond,
		CompletionTokens: 128,
		TokensPerSecond:  51.2,
	})

	got := turn.FormatStats()
	if !strings.Contains(got, "128 tokens") {
		t.Errorf("FormatStats() = %q, want token count", got)
	}
	if !strings.Contains(got, "TTFT 250ms") {
		t.Errorf("FormatStats() = %q, want TTFT", got)
	}
}

// =============================================================================
// STATISTICS TESTS
// =============================================================================

func TestStatistics_RecordFirstToken(t *testing.T) {
	stats := NewStatistics()
	time.Sleep(time.Millisecond)

	stats.RecordFirstToken()
	if stats.TTFT <= 0 {
		t.Error("TTFT should be positive after first token")
	}

	first := stats.TTFT
	stats.RecordFirstToken()
	if stats.TTFT != first {
		t.Error("second RecordFirstToken should not move TTFT")
	}
}

func TestStatistics_Finalize(t *testing.T) {
	stats := NewStatistics()
	time.Sleep(time.Millisecond)
	stats.Finalize(100)

	if stats.CompletionTokens != 100 {
		t.Errorf("CompletionTokens = %d", stats.CompletionTokens)
	}
	if stats.TotalDuration <= 0 {
		t.Error("TotalDuration should be positive")
	}
	if stats.TokensPerSecond <= 0 {
		t.Error("TokensPerSecond should be positive")
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_AppendOrdering(t *testing.T) {
	tr := NewTranscript()

	tr.AppendUser("question", nil)
	placeholder := tr.AppendAssistantPlaceholder()

	turns := tr.Turns()
	if len(turns) != 2 {
		t.Fatalf("Len = %d, want 2", len(turns))
	}
	if turns[0].Author != AuthorUser || turns[1].Author != AuthorAssistant {
		t.Errorf("authors = %q, %q", turns[0].Author, turns[1].Author)
	}
	if turns[1].ID != placeholder.ID {
		t.Error("placeholder snapshot ID should match stored turn")
	}
	if !turns[1].IsStreaming {
		t.Error("placeholder should be streaming")
	}
}

func TestTranscript_AppendStreaming(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("q", nil)
	placeholder := tr.AppendAssistantPlaceholder()

	if !tr.AppendStreaming(placeholder.ID, "Hel") {
		t.Error("append to live placeholder should succeed")
	}
	if !tr.AppendStreaming(placeholder.ID, "lo") {
		t.Error("second append should succeed")
	}

	last, ok := tr.Last()
	if !ok || last.Text != "Hello" {
		t.Errorf("Last().Text = %q, want 'Hello'", last.Text)
	}

	if tr.AppendStreaming("msg_nope", "x") {
		t.Error("append with unknown ID should report false")
	}
}

func TestTranscript_AppendStreaming_AfterClear(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("q", nil)
	placeholder := tr.AppendAssistantPlaceholder()
	tr.AppendStreaming(placeholder.ID, "partial")

	tr.Clear()

	// The stream is still running somewhere; its appends must vanish
	// rather than resurrect the cleared transcript.
	if tr.AppendStreaming(placeholder.ID, " more") {
		t.Error("append to detached placeholder should report false")
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d after clear, want 0", tr.Len())
	}

	if tr.FinalizeTurn(placeholder.ID, nil) {
		t.Error("finalize of detached placeholder should report false")
	}
}

func TestTranscript_FinalizeTurn(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("q", nil)
	placeholder := tr.AppendAssistantPlaceholder()
	tr.AppendStreaming(placeholder.ID, "answer")

	if !tr.FinalizeTurn(placeholder.ID, &Statistics{CompletionTokens: 3}) {
		t.Fatal("finalize of live placeholder should succeed")
	}

	last, _ := tr.Last()
	if last.IsStreaming {
		t.Error("finalized turn should not be streaming")
	}
	if last.Text != "answer" {
		t.Errorf("Text = %q", last.Text)
	}
	if last.TokenCount != 3 {
		t.Errorf("TokenCount = %d", last.TokenCount)
	}

	if tr.AppendStreaming(placeholder.ID, "x") {
		t.Error("append after finalize should report false")
	}
}

func TestTranscript_RemoveIfEmpty(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("q", nil)
	placeholder := tr.AppendAssistantPlaceholder()

	if !tr.RemoveIfEmpty(placeholder.ID) {
		t.Fatal("empty placeholder should be removable")
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1 (user turn only)", tr.Len())
	}

	// A placeholder that already produced text stays.
	placeholder = tr.AppendAssistantPlaceholder()
	tr.AppendStreaming(placeholder.ID, "partial output")
	if tr.RemoveIfEmpty(placeholder.ID) {
		t.Error("non-empty turn must not be removed")
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
}

func TestTranscript_Clear(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("a", nil)
	tr.AppendUser("b", nil)

	tr.Clear()

	if !tr.IsEmpty() {
		t.Error("transcript should be empty after Clear")
	}
	if _, ok := tr.Last(); ok {
		t.Error("Last() should report no turn after Clear")
	}
}

func TestTranscript_TurnsSnapshotIsolation(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("original", nil)

	snap := tr.Turns()
	snap[0].Text = "mutated"

	fresh := tr.Turns()
	if fresh[0].Text != "original" {
		t.Error("mutating a snapshot must not affect the transcript")
	}

	// A snapshot taken mid-stream stays frozen.
	placeholder := tr.AppendAssistantPlaceholder()
	tr.AppendStreaming(placeholder.ID, "one")
	frozen := tr.Turns()
	tr.AppendStreaming(placeholder.ID, " two")

	if frozen[1].Text != "one" {
		t.Errorf("frozen snapshot = %q, want 'one'", frozen[1].Text)
	}
	current, _ := tr.Last()
	if current.Text != "one two" {
		t.Errorf("live turn = %q, want 'one two'", current.Text)
	}
}

func TestTranscript_EstimateTokens(t *testing.T) {
	tr := NewTranscript()
	if tr.EstimateTokens() != 0 {
		t.Error("empty transcript should estimate 0 tokens")
	}

	tr.AppendUser("12345678", nil)
	if got := tr.EstimateTokens(); got != 6 {
		t.Errorf("EstimateTokens() = %d, want 6 (2 text + 4 overhead)", got)
	}
}

func TestTranscript_ConcurrentReadersDuringStream(t *testing.T) {
	tr := NewTranscript()
	tr.AppendUser("q", nil)
	placeholder := tr.AppendAssistantPlaceholder()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers snapshot continuously while the writer streams.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					turns := tr.Turns()
					if len(turns) < 1 {
						t.Error("transcript lost turns mid-stream")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		tr.AppendStreaming(placeholder.ID, "x")
	}
	tr.FinalizeTurn(placeholder.ID, nil)
	close(stop)
	wg.Wait()

	last, _ := tr.Last()
	if len(last.Text) != 200 {
		t.Errorf("final text length = %d, want 200", len(last.Text))
	}
}
