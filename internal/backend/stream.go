// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// streamRecord is one newline-delimited JSON record of a streaming
// response. It covers both endpoint shapes: /api/generate puts text in
// "response", /api/chat nests it under "message".
type streamRecord struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Message  struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool   `json:"done"`
	DoneReason         string `json:"done_reason,omitempty"`
	TotalDuration      int64  `json:"total_duration,omitempty"`
	PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
	EvalCount          int    `json:"eval_count,omitempty"`
	EvalDuration       int64  `json:"eval_duration,omitempty"`
	Error              string `json:"error,omitempty"`
}

// streamReader parses newline-delimited JSON records from a response
// body. One logical record may span several TCP reads; bufio buffers
// until a full line is available before parsing.
type streamReader struct {
	reader *bufio.Reader
	model  string
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{reader: bufio.NewReader(r)}
}

// process reads records until the terminal done record, emitting one
// chunk per record. A record that fails to parse aborts the stream
// with ErrProtocol, as does the body ending without a done record.
func (s *streamReader) process(ctx context.Context, emit func(Chunk) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == io.EOF {
				// Process a final unterminated line before deciding
				// the stream ended early.
				if len(bytes.TrimSpace(line)) > 0 {
					done, perr := s.handleLine(line, emit)
					if perr != nil {
						return perr
					}
					if done {
						return nil
					}
				}
				return &BackendError{Kind: ErrKindProtocol, Message: "stream ended before final record"}
			}
			return &BackendError{Kind: ErrKindUnavailable, Message: "stream read failed", Cause: err}
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		done, err := s.handleLine(line, emit)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// handleLine parses one record and emits its chunk. Returns done=true
// on the terminal record.
func (s *streamReader) handleLine(line []byte, emit func(Chunk) error) (bool, error) {
	var record streamRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return false, &BackendError{Kind: ErrKindProtocol, Message: "malformed stream record", Cause: err}
	}

	if record.Error != "" {
		return false, &BackendError{Kind: ErrKindProtocol, Message: record.Error}
	}

	if record.Model != "" {
		s.model = record.Model
	}

	text := record.Response
	if text == "" {
		text = record.Message.Content
	}

	chunk := Chunk{
		Text:  text,
		Done:  record.Done,
		Model: s.model,
	}
	if record.Done {
		chunk.PromptTokens = record.PromptEvalCount
		chunk.CompletionTokens = record.EvalCount
		chunk.TotalDuration = time.Duration(record.TotalDuration)
		chunk.EvalDuration = time.Duration(record.EvalDuration)
	}

	if err := emit(chunk); err != nil {
		return false, err
	}
	return record.Done, nil
}
