// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// BackendError represents a classified failure from a completion backend.
type BackendError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// ErrorKind categorizes backend errors for handling.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindUnavailable
	ErrKindProtocol
	ErrKindModelNotFound
)

// Sentinel errors for easy checking.
var (
	// ErrUnavailable means the backend could not be reached at all:
	// connection refused for the remote variant, engine not loaded for
	// the local one.
	ErrUnavailable = &BackendError{Kind: ErrKindUnavailable, Message: "backend is not reachable"}

	// ErrProtocol means the backend answered with something the client
	// could not parse. The stream is aborted at the first bad record.
	ErrProtocol = &BackendError{Kind: ErrKindProtocol, Message: "malformed backend response"}

	// ErrModelNotFound means the requested model is not installed.
	ErrModelNotFound = &BackendError{Kind: ErrKindModelNotFound, Message: "model not found"}
)

// IsUnavailable reports whether err indicates an unreachable backend.
func IsUnavailable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == ErrKindUnavailable
	}
	return errors.Is(err, ErrUnavailable)
}

// IsProtocol reports whether err indicates a malformed response.
func IsProtocol(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == ErrKindProtocol
	}
	return errors.Is(err, ErrProtocol)
}

// IsModelNotFound reports whether err indicates a missing model.
func IsModelNotFound(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == ErrKindModelNotFound
	}
	return errors.Is(err, ErrModelNotFound)
}
