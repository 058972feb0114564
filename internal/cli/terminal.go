// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - TTY detection, terminal geometry, and color capability.

package cli

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// DefaultTerminalWidth is assumed when the real width is unavailable,
	// such as when output is piped.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest layout the renderers target.
	MinTerminalWidth = 40
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY reports whether stdin is attached to a terminal. Confirmation
// prompts and the chat loop require this.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is attached to a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY reports whether stderr is attached to a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// IsStdinPiped reports whether stdin carries piped data rather than a
// terminal, as in "git diff | parley ask".
func IsStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// =============================================================================
// GEOMETRY
// =============================================================================

// GetTerminalWidth returns the current terminal width in cells, clamped
// to MinTerminalWidth, or DefaultTerminalWidth when stdout is not a TTY.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}
	if w < MinTerminalWidth {
		return MinTerminalWidth
	}
	return w
}

// WrapText re-wraps text to the given display width, breaking on spaces.
// Width is measured in terminal cells, so wide characters count double.
// Words longer than the width are left intact.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(wrapLine(line, width))
	}
	return b.String()
}

func wrapLine(line string, width int) string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return line
	}
	var b strings.Builder
	col := 0
	for _, w := range words {
		wlen := runewidth.StringWidth(w)
		switch {
		case col == 0:
		case col+1+wlen > width:
			b.WriteByte('\n')
			col = 0
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(w)
		col += wlen
	}
	return b.String()
}

// =============================================================================
// COLOR CAPABILITY
// =============================================================================

var (
	colorsOnce     sync.Once
	colorsDetected bool
	colorsForced   *bool
)

// ColorsEnabled reports whether styled output should be emitted.
// Precedence: explicit override (config or tests), then NO_COLOR, then
// FORCE_COLOR, then whether stdout is a TTY. Detection runs once.
func ColorsEnabled() bool {
	if colorsForced != nil {
		return *colorsForced
	}
	colorsOnce.Do(func() {
		colorsDetected = detectColors()
	})
	return colorsDetected
}

func detectColors() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return IsStdoutTTY()
}

// ForceColorsEnabled overrides color detection. Tests use this to
// exercise both rendering paths deterministically.
func ForceColorsEnabled(enabled bool) {
	colorsForced = &enabled
}

// ResetColorDetection clears any override and re-arms detection.
func ResetColorDetection() {
	colorsForced = nil
	colorsOnce = sync.Once{}
}

// GetColorProfile returns the termenv profile matching ColorsEnabled.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// ApplyColorMode applies the ui.color setting ("auto", "always", or
// "never") and refreshes the lipgloss renderer to match.
func ApplyColorMode(mode string) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		ForceColorsEnabled(true)
	case "never":
		ForceColorsEnabled(false)
	}
	lipgloss.SetColorProfile(GetColorProfile())
}
