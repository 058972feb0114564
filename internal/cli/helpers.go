// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Formatting and file helpers shared across commands.

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/store"
)

// maxPromptFileBytes caps file content inlined into prompts. Local model
// context windows are small; oversized files should be trimmed by hand.
const maxPromptFileBytes = 50 * 1024

// =============================================================================
// FORMATTING
// =============================================================================

// formatAge renders a timestamp as a short relative age: "just now",
// "5m ago", "3h ago", "2d ago", then a date.
func formatAge(t time.Time) string {
	return formatAgeAt(t, time.Now())
}

func formatAgeAt(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 14*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("Jan 2, 2006")
}

// formatDurationShort renders a duration as "850ms", "12.3s", or "2m05s".
func formatDurationShort(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}

// formatBytes renders a byte count as B, KB, MB, or GB.
func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
	return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
}

// =============================================================================
// FILE INPUT
// =============================================================================

// readAttachment reads a file for inclusion in a prompt, enforcing the
// inline size cap.
func readAttachment(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxPromptFileBytes {
		return nil, fmt.Errorf("%s is %s; files over %s cannot be inlined into a prompt",
			path, formatBytes(info.Size()), formatBytes(maxPromptFileBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, nil
}

// formatFileForPrompt frames file content so the model can tell it apart
// from the question.
func formatFileForPrompt(name string, data []byte) string {
	return fmt.Sprintf("\n--- File: %s ---\n%s\n--- End of %s ---", name, data, name)
}

// readStdinPipe drains piped stdin, returning "" when stdin is a TTY.
func readStdinPipe() string {
	if !IsStdinPiped() {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// =============================================================================
// CONVERSATION LOOKUP
// =============================================================================

// resolveConversation loads a conversation by the 1-based index printed
// by "history list", or by id.
func resolveConversation(st *store.Store, ref string) (*store.StoredConversation, error) {
	if ref == "" {
		return nil, ErrMissingArgument("conversation", "parley history show 1")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 {
			return nil, &ValidationError{
				Field:   "conversation",
				Value:   ref,
				Reason:  "list numbering starts at 1",
				Example: "parley history show 1",
			}
		}
		return st.LoadByIndex(n - 1)
	}
	return st.Load(ref)
}

// resolveConversationID maps a list index or id to the conversation id
// without decrypting the payload, so delete works even when the
// encryption key is absent.
func resolveConversationID(st *store.Store, ref string) (string, error) {
	if ref == "" {
		return "", ErrMissingArgument("conversation", "parley history delete 1")
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}
	metas, err := st.List()
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(metas) {
		return "", &NotFoundError{Resource: "conversation", ID: ref}
	}
	return metas[n-1].ID, nil
}

// writeExport writes exported content to path with owner-only
// permissions, creating parent directories as needed.
func writeExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
