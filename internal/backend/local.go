// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"sync"
)

// =============================================================================
// ENGINE INTERFACE
// =============================================================================

// Engine is the minimal surface an in-process inference runtime must
// provide. Implementations wrap a loaded model and hand out sessions
// that accumulate context state.
type Engine interface {
	// NewSession prepares a generation session for the given model.
	// Fails with ErrUnavailable semantics when the model cannot be
	// loaded.
	NewSession(ctx context.Context, model string, params *Params) (EngineSession, error)
}

// EngineSession is one context window inside the engine. Turns fed
// into it stay in the model's state until Close, so a conversation
// only pays prompt processing for turns it has not fed before.
type EngineSession interface {
	// Feed appends one turn to the model's context without
	// generating.
	Feed(ctx context.Context, role, text string) error

	// Complete generates the next assistant turn, calling emit for
	// each produced fragment. The generated turn becomes part of the
	// session's context.
	Complete(ctx context.Context, emit func(text string) error) error

	Close() error
}

// =============================================================================
// LOCAL BACKEND
// =============================================================================

// Local adapts an in-process Engine to the Backend interface.
//
// Unlike the remote variant, the engine retains context state across
// calls. Local tracks how many history turns the live session has
// already consumed and feeds only the suffix on each Chat call. The
// session is discarded and rebuilt when the history shrinks, the model
// changes, or a previous call failed and left the engine state
// unreliable.
type Local struct {
	engine Engine

	mu    sync.Mutex
	sess  EngineSession
	model string
	fed   int
	stale bool
}

var _ Backend = (*Local)(nil)

// NewLocal creates a local backend around the given engine.
func NewLocal(engine Engine) *Local {
	return &Local{engine: engine}
}

// Generate runs a single-shot completion in a throwaway session so the
// conversation session's context state is left untouched.
func (l *Local) Generate(ctx context.Context, model, system, prompt string, params *Params) <-chan Chunk {
	ch := make(chan Chunk, 64)

	go func() {
		defer close(ch)

		err := l.generate(ctx, model, system, prompt, params, chanEmitter(ctx, ch))
		finish(ctx, ch, model, err)
	}()

	return ch
}

func (l *Local) generate(ctx context.Context, model, system, prompt string, params *Params, emit func(string) error) error {
	sess, err := l.engine.NewSession(ctx, model, params)
	if err != nil {
		return &BackendError{Kind: ErrKindUnavailable, Message: "engine session failed", Cause: err}
	}
	defer sess.Close()

	if system != "" {
		if err := sess.Feed(ctx, "system", system); err != nil {
			return wrapEngineErr(ctx, err)
		}
	}
	if err := sess.Feed(ctx, "user", prompt); err != nil {
		return wrapEngineErr(ctx, err)
	}
	return wrapEngineErr(ctx, sess.Complete(ctx, emit))
}

// Chat runs a completion over the full history, feeding the engine only
// the turns it has not seen yet.
func (l *Local) Chat(ctx context.Context, model string, messages []Message, params *Params) <-chan Chunk {
	ch := make(chan Chunk, 64)

	go func() {
		defer close(ch)

		err := l.chat(ctx, model, messages, params, chanEmitter(ctx, ch))
		finish(ctx, ch, model, err)
	}()

	return ch
}

func (l *Local) chat(ctx context.Context, model string, messages []Message, params *Params, emit func(string) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A shrunken history means the conversation was cleared; stale
	// means a previous call failed partway and the fed count no longer
	// matches what the engine actually holds.
	if l.sess == nil || l.model != model || l.stale || len(messages) < l.fed {
		if err := l.resetSession(ctx, model, params); err != nil {
			return err
		}
	}

	for _, m := range messages[l.fed:] {
		if err := l.sess.Feed(ctx, m.Role, m.Content); err != nil {
			l.stale = true
			return wrapEngineErr(ctx, err)
		}
		l.fed++
	}

	if err := l.sess.Complete(ctx, emit); err != nil {
		l.stale = true
		return wrapEngineErr(ctx, err)
	}

	// The generated assistant turn is now part of the engine state;
	// the caller will include it in the next call's history.
	l.fed++
	return nil
}

// resetSession discards the live session and opens a fresh one. Caller
// holds l.mu.
func (l *Local) resetSession(ctx context.Context, model string, params *Params) error {
	if l.sess != nil {
		l.sess.Close()
		l.sess = nil
	}

	sess, err := l.engine.NewSession(ctx, model, params)
	if err != nil {
		return &BackendError{Kind: ErrKindUnavailable, Message: "engine session failed", Cause: err}
	}
	l.sess = sess
	l.model = model
	l.fed = 0
	l.stale = false
	return nil
}

// Close releases the live engine session, if any.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sess == nil {
		return nil
	}
	err := l.sess.Close()
	l.sess = nil
	l.fed = 0
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// chanEmitter returns an emit function that forwards fragments to ch,
// giving up when the context is cancelled.
func chanEmitter(ctx context.Context, ch chan<- Chunk) func(string) error {
	return func(text string) error {
		select {
		case ch <- Chunk{Text: text}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// finish delivers the terminal chunk for a local stream.
func finish(ctx context.Context, ch chan<- Chunk, model string, err error) {
	var terminal Chunk
	if err != nil {
		terminal = Chunk{Err: err, Done: true}
	} else {
		terminal = Chunk{Done: true, Model: model}
	}
	select {
	case ch <- terminal:
	case <-ctx.Done():
		if err == nil {
			return
		}
		// Last attempt to deliver the error without blocking.
		select {
		case ch <- terminal:
		default:
		}
	}
}

// wrapEngineErr classifies an engine failure, passing context errors
// through untouched so cancellation stays distinguishable.
func wrapEngineErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := err.(*BackendError); ok {
		return err
	}
	return &BackendError{Kind: ErrKindUnknown, Message: "inference failed", Cause: err}
}
