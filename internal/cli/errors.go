// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, exit codes, and user-facing error display.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// EXIT CODES
// =============================================================================

// Exit codes, stable for scripting. Anything not matched by a more
// specific category exits with ExitGeneralError.
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2 // bad arguments or flags
	ExitConfigError   = 3 // invalid or unreadable configuration
	ExitBackendError  = 4 // backend unreachable or protocol failure
	ExitNotFoundError = 5 // missing conversation, model, or role
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports invalid user input with a corrected example.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NotFoundError reports a missing resource by kind and identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ErrMissingArgument builds the usage error for a required argument.
func ErrMissingArgument(arg, example string) error {
	return &ValidationError{
		Field:   arg,
		Reason:  "required argument is missing",
		Example: example,
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// GetExitCode maps an error to its exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return ExitUsageError
	}

	var nferr *NotFoundError
	if errors.As(err, &nferr) {
		return ExitNotFoundError
	}
	if errors.Is(err, store.ErrNotFound) {
		return ExitNotFoundError
	}
	if backend.IsModelNotFound(err) {
		return ExitNotFoundError
	}

	if backend.IsUnavailable(err) || backend.IsProtocol(err) {
		return ExitBackendError
	}

	var vlist config.ValidateErrors
	if errors.As(err, &vlist) {
		return ExitConfigError
	}
	if strings.Contains(err.Error(), "config") {
		return ExitConfigError
	}

	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints an error for humans on stderr, or as a JSON
// envelope on stdout when jsonMode is set. Recoverable situations get a
// one-line hint after the message.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}

	if jsonMode {
		// Envelope errors go to stdout so scripted callers see a single
		// parseable stream.
		_ = NewJSONErrorResponse("error", err).Print()
		return
	}

	fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)

	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(os.Stderr, DimStyle.Render(hint))
	}

	var verr *ValidationError
	if errors.As(err, &verr) && verr.Example != "" {
		fmt.Fprintln(os.Stderr, DimStyle.Render("example: "+verr.Example))
	}
}

// errorHint returns a recovery suggestion for well-known failures.
func errorHint(err error) string {
	switch {
	case backend.IsUnavailable(err):
		return "The backend is not responding. Start it with: ollama serve"
	case backend.IsModelNotFound(err):
		return "The model is not installed. Pull it first: ollama pull <model>"
	case errors.Is(err, store.ErrEncrypted):
		return "This conversation is encrypted. Set " + store.HistoryKeyEnv + " and retry."
	case errors.Is(err, store.ErrNoKey):
		return "History encryption is enabled but " + store.HistoryKeyEnv + " is not set."
	}

	var nferr *NotFoundError
	if errors.As(err, &nferr) {
		switch nferr.Resource {
		case "role":
			return "Run 'parley roles' to see available roles."
		case "conversation":
			return "Run 'parley history' to list saved conversations."
		}
	}
	return ""
}

// HandleErrorAndExit displays err and exits with its mapped code. A nil
// err exits zero.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err != nil {
		DisplayError(err, jsonMode)
	}
	os.Exit(GetExitCode(err))
}
