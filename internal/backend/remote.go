// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// RemoteConfig holds configuration for the remote HTTP backend.
type RemoteConfig struct {
	// BaseURL of the Ollama-compatible server. The default uses an
	// explicit IPv4 address because "localhost" can resolve to IPv6
	// first on some systems while the server only binds IPv4.
	BaseURL string

	// Timeout for non-streaming requests such as health checks and
	// model listing. Streaming requests carry no client timeout; their
	// lifetime is governed by the caller's context.
	Timeout time.Duration

	// RequestsPerMinute throttles outbound completion requests.
	// Zero disables throttling.
	RequestsPerMinute int
}

// DefaultRemoteConfig returns the default remote configuration.
func DefaultRemoteConfig() *RemoteConfig {
	return &RemoteConfig{
		BaseURL: "http://127.0.0.1:11434",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// REMOTE BACKEND
// =============================================================================

// Remote talks to an Ollama-compatible HTTP server. The server is
// stateless between calls, so Chat resends the full history each time.
//
// Remote is safe for concurrent use.
type Remote struct {
	config     *RemoteConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

var (
	_ Backend       = (*Remote)(nil)
	_ HealthChecker = (*Remote)(nil)
	_ ModelLister   = (*Remote)(nil)
)

// NewRemote creates a remote backend with default configuration.
func NewRemote() *Remote {
	return NewRemoteWithConfig(DefaultRemoteConfig())
}

// NewRemoteWithConfig creates a remote backend with custom
// configuration. Zero fields fall back to defaults.
func NewRemoteWithConfig(config *RemoteConfig) *Remote {
	if config == nil {
		config = DefaultRemoteConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	r := &Remote{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
	if config.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(
			rate.Limit(float64(config.RequestsPerMinute)/60.0),
			config.RequestsPerMinute,
		)
	}
	return r
}

// BaseURL returns the configured server address.
func (r *Remote) BaseURL() string {
	return r.config.BaseURL
}

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// Generate streams a single-shot completion from /api/generate.
func (r *Remote) Generate(ctx context.Context, model, system, prompt string, params *Params) <-chan Chunk {
	body := generateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  system,
		Stream:  true,
		Options: params.wire(),
	}
	return r.stream(ctx, "/api/generate", body)
}

// Chat streams a multi-turn completion from /api/chat.
func (r *Remote) Chat(ctx context.Context, model string, messages []Message, params *Params) <-chan Chunk {
	body := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
		Options:  params.wire(),
	}
	return r.stream(ctx, "/api/chat", body)
}

// stream issues the request and pumps parsed records into the returned
// channel. The terminal chunk is delivered in-band before close.
func (r *Remote) stream(ctx context.Context, path string, body any) <-chan Chunk {
	ch := make(chan Chunk, 64)

	go func() {
		defer close(ch)

		err := r.doStream(ctx, path, body, func(chunk Chunk) error {
			select {
			case ch <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			terminal := Chunk{Err: err, Done: true}
			select {
			case ch <- terminal:
			case <-ctx.Done():
				// The consumer usually keeps draining after a cancel;
				// one non-blocking attempt, then give up rather than
				// block forever.
				select {
				case ch <- terminal:
				default:
				}
			}
		}
	}()

	return ch
}

func (r *Remote) doStream(ctx context.Context, path string, body any, emit func(Chunk) error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &BackendError{Kind: ErrKindProtocol, Message: "failed to marshal request", Cause: err}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	// No client timeout on streaming connections; generation can take
	// minutes and the context governs cancellation.
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &BackendError{Kind: ErrKindUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &BackendError{Kind: ErrKindUnavailable, Message: "backend is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return &BackendError{Kind: ErrKindProtocol, Message: apiErr.Error}
		}
		return &BackendError{Kind: ErrKindProtocol, Message: "request failed: " + resp.Status}
	}

	return newStreamReader(resp.Body).process(ctx, emit)
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies the server is reachable and answering.
func (r *Remote) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+"/api/version", nil)
	if err != nil {
		return &BackendError{Kind: ErrKindUnavailable, Message: "failed to create request", Cause: err}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &BackendError{Kind: ErrKindUnavailable, Message: "backend is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &BackendError{Kind: ErrKindUnavailable, Message: "unexpected status: " + resp.Status}
	}
	return nil
}

// Version returns the server's reported version string.
func (r *Remote) Version(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+"/api/version", nil)
	if err != nil {
		return "", &BackendError{Kind: ErrKindUnavailable, Message: "failed to create request", Cause: err}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", &BackendError{Kind: ErrKindUnavailable, Message: "backend is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &BackendError{Kind: ErrKindUnavailable, Message: "unexpected status: " + resp.Status}
	}

	var v versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", &BackendError{Kind: ErrKindProtocol, Message: "failed to decode version", Cause: err}
	}
	return v.Version, nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves the models installed on the server.
func (r *Remote) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, &BackendError{Kind: ErrKindUnavailable, Message: "failed to create request", Cause: err}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &BackendError{Kind: ErrKindUnavailable, Message: "backend is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{Kind: ErrKindProtocol, Message: "failed to list models: " + resp.Status}
	}

	var result listModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &BackendError{Kind: ErrKindProtocol, Message: "failed to decode model list", Cause: err}
	}
	return result.Models, nil
}
