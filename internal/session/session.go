// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/filter"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/role"
)

// =============================================================================
// UPDATE EVENTS
// =============================================================================

// UpdateKind identifies what changed in the session.
type UpdateKind int

const (
	// UpdateTurnAppended: a new turn entered the transcript.
	UpdateTurnAppended UpdateKind = iota

	// UpdateStreamStarted: a request was dispatched to the backend.
	UpdateStreamStarted

	// UpdateStreamChunk: the streaming turn grew by Text.
	UpdateStreamChunk

	// UpdateStreamEnded: the request resolved. Err is nil on success
	// and on cancellation, set on failure.
	UpdateStreamEnded

	// UpdateTranscriptCleared: the transcript was emptied.
	UpdateTranscriptCleared

	// UpdateRoleChanged: the active role switched.
	UpdateRoleChanged

	// UpdateModelChanged: the active model switched.
	UpdateModelChanged
)

// Update is one incremental change notification. Consumers re-read
// session state for full detail; the event only says what moved.
type Update struct {
	Kind      UpdateKind
	RequestID string
	TurnID    string
	Text      string
	Err       error
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the initial session settings.
type Config struct {
	// Role selects the starting assistant role. Zero value means the
	// catalog default.
	Role role.Role

	// Model overrides the role's default model when non-empty.
	Model string

	// RevealThinking shows reasoning spans instead of hiding them.
	RevealThinking bool

	// ThinkMarker replaces the default glyph shown when a reasoning
	// span starts, when revealing.
	ThinkMarker string

	// Params are the sampling parameters sent with every request.
	Params *backend.Params
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	r := role.Default()
	return Config{Role: r, Model: r.DefaultModel}
}

// =============================================================================
// SESSION
// =============================================================================

// Session orchestrates one conversation: it turns user input into
// backend requests, filters the resulting token stream, and applies it
// to the transcript. At most one request is in flight at a time;
// starting a new send resolves the previous one first.
//
// Session is safe for concurrent use.
type Session struct {
	backend backend.Backend

	// sendMu serializes the synchronous half of Send and SetRole so
	// the cancel-previous-then-append sequence is atomic.
	sendMu sync.Mutex

	mu          sync.Mutex
	transcript  *model.Transcript
	activeRole  role.Role
	activeModel string
	reveal      bool
	marker      string
	params      *backend.Params
	pendingAtts []model.Attachment
	streaming   bool
	requestID   string
	lastErr     error
	lastStats   *model.Statistics
	inflight    chan struct{}

	cancelMgr *cancelManager
	updates   chan Update
}

// New creates a session on the given backend.
func New(be backend.Backend, cfg Config) *Session {
	if cfg.Role.ID == "" {
		cfg.Role = role.Default()
	}
	if cfg.Model == "" {
		cfg.Model = cfg.Role.DefaultModel
	}
	if cfg.ThinkMarker == "" {
		cfg.ThinkMarker = filter.DefaultMarker
	}

	return &Session{
		backend:     be,
		transcript:  model.NewTranscript(),
		activeRole:  cfg.Role,
		activeModel: cfg.Model,
		reveal:      cfg.RevealThinking,
		marker:      cfg.ThinkMarker,
		params:      cfg.Params,
		cancelMgr:   newCancelManager(),
		updates:     make(chan Update, 256),
	}
}

// =============================================================================
// SEND
// =============================================================================

// Send submits user text and streams the assistant's reply into the
// transcript. The returned channel delivers exactly one value when the
// request resolves: nil on success or cancellation, the classified
// error on failure. Empty or whitespace-only text is a no-op.
//
// Any previous in-flight request is cancelled and fully resolved
// before the new turns are appended.
func (s *Session) Send(text string, attachments []model.Attachment) <-chan error {
	done := make(chan error, 1)

	if strings.TrimSpace(text) == "" {
		done <- nil
		close(done)
		return done
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.cancelAndWait()

	s.mu.Lock()
	activeRole := s.activeRole
	modelID := s.activeModel
	params := s.params

	// Stateless-per-turn roles never carry context across sends.
	cleared := false
	if !activeRole.MultiTurn && !s.transcript.IsEmpty() {
		s.transcript.Clear()
		cleared = true
	}

	atts := append(s.pendingAtts, attachments...)
	s.pendingAtts = nil

	userTurn := s.transcript.AppendUser(text, atts)
	placeholder := s.transcript.AppendAssistantPlaceholder()

	// Fresh filter per request: think state never leaks across sends.
	f := filter.NewThinkFilter(s.reveal, filter.WithMarker(s.marker))

	var history []backend.Message
	if activeRole.MultiTurn {
		history = s.buildChatHistoryLocked(activeRole)
	}

	reqID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelMgr.set(cancel)
	s.streaming = true
	s.requestID = reqID
	running := make(chan struct{})
	s.inflight = running
	s.mu.Unlock()

	if cleared {
		s.publish(Update{Kind: UpdateTranscriptCleared})
	}
	s.publish(Update{Kind: UpdateTurnAppended, TurnID: userTurn.ID, RequestID: reqID})
	s.publish(Update{Kind: UpdateTurnAppended, TurnID: placeholder.ID, RequestID: reqID})
	s.publish(Update{Kind: UpdateStreamStarted, RequestID: reqID, TurnID: placeholder.ID})

	go s.run(ctx, runArgs{
		requestID:   reqID,
		turnID:      placeholder.ID,
		role:        activeRole,
		model:       modelID,
		userText:    text,
		history:     history,
		params:      params,
		filter:      f,
		done:        done,
		runningDone: running,
	})

	return done
}

// buildChatHistoryLocked assembles the chat request: optional system
// prompt, then every finalized turn including the user turn just
// appended. The streaming placeholder is skipped. Caller holds s.mu.
func (s *Session) buildChatHistoryLocked(r role.Role) []backend.Message {
	turns := s.transcript.Turns()
	history := make([]backend.Message, 0, len(turns)+1)

	if r.SystemPrompt != "" {
		history = append(history, backend.NewSystemMessage(r.SystemPrompt))
	}
	for _, t := range turns {
		if t.IsStreaming || t.Text == "" {
			continue
		}
		history = append(history, backend.Message{
			Role:    t.Author.String(),
			Content: t.Text,
		})
	}
	return history
}

type runArgs struct {
	requestID   string
	turnID      string
	role        role.Role
	model       string
	userText    string
	history     []backend.Message
	params      *backend.Params
	filter      *filter.ThinkFilter
	done        chan error
	runningDone chan struct{}
}

// run drives one backend stream to resolution.
func (s *Session) run(ctx context.Context, a runArgs) {
	defer func() {
		s.mu.Lock()
		if s.inflight == a.runningDone {
			s.inflight = nil
		}
		s.mu.Unlock()
		close(a.runningDone)
	}()

	stats := model.NewStatistics()

	var ch <-chan backend.Chunk
	if a.role.MultiTurn {
		ch = s.backend.Chat(ctx, a.model, a.history, a.params)
	} else {
		ch = s.backend.Generate(ctx, a.model, a.role.SystemPrompt, a.userText, a.params)
	}

	var streamErr error
	var final backend.Chunk
	sawTerminal := false

	for chunk := range ch {
		if chunk.Err != nil {
			streamErr = chunk.Err
			sawTerminal = true
			break
		}
		if chunk.Text != "" {
			stats.RecordFirstToken()
			if out := a.filter.Feed(chunk.Text); out != "" {
				if s.transcript.AppendStreaming(a.turnID, out) {
					s.publish(Update{
						Kind:      UpdateStreamChunk,
						RequestID: a.requestID,
						TurnID:    a.turnID,
						Text:      out,
					})
				}
			}
		}
		if chunk.Done {
			final = chunk
			sawTerminal = true
			break
		}
	}

	if !sawTerminal {
		// The producer closed without a terminal chunk; only a cancel
		// race does that.
		if err := ctx.Err(); err != nil {
			streamErr = err
		} else {
			streamErr = backend.ErrProtocol
		}
	}

	s.resolve(a, stats, final, streamErr)
}

// resolve applies the stream outcome to the transcript and session
// state, then reports on the done channel.
func (s *Session) resolve(a runArgs, stats *model.Statistics, final backend.Chunk, streamErr error) {
	switch {
	case streamErr == nil:
		// Success: release any held-back carry, freeze the turn.
		if tail := a.filter.Flush(); tail != "" {
			if s.transcript.AppendStreaming(a.turnID, tail) {
				s.publish(Update{
					Kind:      UpdateStreamChunk,
					RequestID: a.requestID,
					TurnID:    a.turnID,
					Text:      tail,
				})
			}
		}
		stats.PromptTokens = final.PromptTokens
		stats.Finalize(final.CompletionTokens)
		s.transcript.FinalizeTurn(a.turnID, stats)

		s.mu.Lock()
		s.streaming = false
		s.requestID = ""
		s.lastStats = stats
		s.mu.Unlock()
		s.cancelMgr.clear()

		s.publish(Update{Kind: UpdateStreamEnded, RequestID: a.requestID, TurnID: a.turnID})
		a.done <- nil

	case errors.Is(streamErr, context.Canceled), errors.Is(streamErr, context.DeadlineExceeded):
		// Cancellation is silent: keep whatever was appended, drop an
		// untouched placeholder.
		if !s.transcript.RemoveIfEmpty(a.turnID) {
			s.transcript.FinalizeTurn(a.turnID, nil)
		}

		s.mu.Lock()
		s.streaming = false
		s.requestID = ""
		s.mu.Unlock()
		s.cancelMgr.clear()

		s.publish(Update{Kind: UpdateStreamEnded, RequestID: a.requestID, TurnID: a.turnID})
		a.done <- nil

	default:
		// Failure: partial output stays visible, an empty placeholder
		// never survives.
		if !s.transcript.RemoveIfEmpty(a.turnID) {
			s.transcript.FinalizeTurn(a.turnID, nil)
		}

		s.mu.Lock()
		s.streaming = false
		s.requestID = ""
		s.lastErr = streamErr
		s.mu.Unlock()
		s.cancelMgr.clear()

		s.publish(Update{
			Kind:      UpdateStreamEnded,
			RequestID: a.requestID,
			TurnID:    a.turnID,
			Err:       streamErr,
		})
		a.done <- streamErr
	}

	close(a.done)
}

// cancelAndWait aborts the in-flight request, if any, and blocks until
// its goroutine has fully resolved.
func (s *Session) cancelAndWait() {
	s.mu.Lock()
	inflight := s.inflight
	s.mu.Unlock()

	s.cancelMgr.cancel()
	if inflight != nil {
		<-inflight
	}
}

// =============================================================================
// CONTROL OPERATIONS
// =============================================================================

// CancelCurrent aborts the in-flight request, if any. The partial
// reply already streamed stays in the transcript; no error surfaces.
func (s *Session) CancelCurrent() {
	s.cancelMgr.cancel()
}

// Clear empties the transcript and the pending attachment selection.
//
// An in-flight stream is not cancelled: its placeholder is detached
// and everything it still produces goes nowhere. Callers that want a
// full reset call CancelCurrent first.
func (s *Session) Clear() {
	s.mu.Lock()
	s.transcript.Clear()
	s.pendingAtts = nil
	s.mu.Unlock()

	s.publish(Update{Kind: UpdateTranscriptCleared})
}

// SetRole switches the active role. The transcript is cleared and the
// active model resets to the role's default; an in-flight request is
// cancelled first. Fails with role.ErrUnknownRole for unknown IDs.
func (s *Session) SetRole(roleID string) error {
	r, err := role.ByID(roleID)
	if err != nil {
		return err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.cancelAndWait()

	s.mu.Lock()
	s.activeRole = r
	s.activeModel = r.DefaultModel
	s.transcript.Clear()
	s.pendingAtts = nil
	s.mu.Unlock()

	s.publish(Update{Kind: UpdateTranscriptCleared})
	s.publish(Update{Kind: UpdateRoleChanged})
	return nil
}

// SetModel switches the active model for subsequent sends. The
// transcript is untouched.
func (s *Session) SetModel(modelID string) {
	s.mu.Lock()
	s.activeModel = modelID
	s.mu.Unlock()

	s.publish(Update{Kind: UpdateModelChanged})
}

// SetRevealThinking changes the reasoning display policy for
// subsequent sends.
func (s *Session) SetRevealThinking(reveal bool) {
	s.mu.Lock()
	s.reveal = reveal
	s.mu.Unlock()
}

// AddAttachment queues an attachment for the next send.
func (s *Session) AddAttachment(att model.Attachment) {
	s.mu.Lock()
	s.pendingAtts = append(s.pendingAtts, att)
	s.mu.Unlock()
}

// AcknowledgeError clears the surfaced error after the caller has
// shown it.
func (s *Session) AcknowledgeError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

// =============================================================================
// OBSERVATION
// =============================================================================

// Updates returns the event channel. Events are lossy under
// backpressure: consumers re-read session state rather than relying on
// seeing every event.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Transcript returns a snapshot of the conversation turns.
func (s *Session) Transcript() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Turns()
}

// TranscriptLen returns the number of turns.
func (s *Session) TranscriptLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Len()
}

// IsStreaming reports whether a request is in flight.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// LastError returns the error surfaced by the most recent failed send,
// or nil. Cancellations never surface here.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastStats returns the statistics of the most recent successful
// generation, or nil.
func (s *Session) LastStats() *model.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStats == nil {
		return nil
	}
	statsCopy := *s.lastStats
	return &statsCopy
}

// Role returns the active role.
func (s *Session) Role() role.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRole
}

// Model returns the active model ID.
func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeModel
}

// RevealThinking returns the current reasoning display policy.
func (s *Session) RevealThinking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveal
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	RoleID      string
	RoleName    string
	Model       string
	Streaming   bool
	RequestID   string
	TurnCount   int
	Reveal      bool
	LastError   error
	TokensInUse int
}

// GetStatus returns the current session status.
func (s *Session) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		RoleID:      s.activeRole.ID,
		RoleName:    s.activeRole.DisplayName,
		Model:       s.activeModel,
		Streaming:   s.streaming,
		RequestID:   s.requestID,
		TurnCount:   s.transcript.Len(),
		Reveal:      s.reveal,
		LastError:   s.lastErr,
		TokensInUse: s.transcript.EstimateTokens(),
	}
}

// publish delivers an event without ever blocking the send path.
func (s *Session) publish(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}
