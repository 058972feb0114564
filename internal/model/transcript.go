// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the ordered list of turns for one conversation.
//
// All mutation happens through ID-keyed methods under a single mutex,
// so readers may snapshot concurrently with an in-progress stream.
// Streaming appends address the placeholder by ID: once the transcript
// is cleared the placeholder is detached and those appends report
// false instead of resurrecting it.
type Transcript struct {
	mu    sync.RWMutex
	turns []*Turn
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// =============================================================================
// MUTATION
// =============================================================================

// AppendUser appends a user turn and returns its snapshot.
func (tr *Transcript) AppendUser(text string, attachments []Attachment) Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	turn := NewUserTurn(text, attachments)
	tr.turns = append(tr.turns, turn)
	return turn.snapshot()
}

// AppendAssistantPlaceholder appends an empty streaming assistant turn
// and returns its snapshot. The caller uses the snapshot's ID for all
// subsequent streaming mutation.
func (tr *Transcript) AppendAssistantPlaceholder() Turn {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	turn := NewAssistantTurn()
	tr.turns = append(tr.turns, turn)
	return turn.snapshot()
}

// AppendStreaming appends a text fragment to the streaming turn with
// the given ID. Returns false when the turn is no longer in the
// transcript or no longer streaming; the fragment is then dropped.
//
// Only the last turn is ever a streaming target, so the lookup checks
// just the tail.
func (tr *Transcript) AppendStreaming(id, fragment string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	last := tr.lastLocked()
	if last == nil || last.ID != id || !last.IsStreaming {
		return false
	}
	last.appendText(fragment)
	return true
}

// FinalizeTurn freezes the streaming turn with the given ID, attaching
// generation statistics. Returns false when the turn is detached.
func (tr *Transcript) FinalizeTurn(id string, stats *Statistics) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	last := tr.lastLocked()
	if last == nil || last.ID != id || !last.IsStreaming {
		return false
	}
	last.finalizeStream(stats)
	return true
}

// RemoveIfEmpty removes the turn with the given ID when it is the last
// turn and has produced no text. Used on stream failure so an empty
// assistant placeholder never survives as a final state.
func (tr *Transcript) RemoveIfEmpty(id string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	last := tr.lastLocked()
	if last == nil || last.ID != id || !last.IsEmpty() {
		return false
	}
	tr.turns = tr.turns[:len(tr.turns)-1]
	return true
}

// Clear removes all turns. An in-flight stream keeps its detached
// placeholder object, but nothing it appends is observable anymore.
func (tr *Transcript) Clear() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.turns = nil
}

// =============================================================================
// OBSERVATION
// =============================================================================

// Turns returns a snapshot of all turns. The snapshot is detached:
// later transcript mutation is not reflected in it.
func (tr *Transcript) Turns() []Turn {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]Turn, len(tr.turns))
	for i, t := range tr.turns {
		out[i] = t.snapshot()
	}
	return out
}

// Len returns the number of turns.
func (tr *Transcript) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.turns)
}

// IsEmpty returns true when the transcript holds no turns.
func (tr *Transcript) IsEmpty() bool {
	return tr.Len() == 0
}

// Last returns a snapshot of the final turn, if any.
func (tr *Transcript) Last() (Turn, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	last := tr.lastLocked()
	if last == nil {
		return Turn{}, false
	}
	return last.snapshot(), true
}

// EstimateTokens estimates the total token count across all turns.
func (tr *Transcript) EstimateTokens() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	total := 0
	for _, t := range tr.turns {
		// Rough per-turn structure overhead on top of the text.
		total += t.EstimateTokens() + 4
	}
	return total
}

func (tr *Transcript) lastLocked() *Turn {
	if len(tr.turns) == 0 {
		return nil
	}
	return tr.turns[len(tr.turns)-1]
}
