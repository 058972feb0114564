// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for terminal output.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle renders top-level headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// SectionStyle renders section headers like "[backend]".
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	// LabelStyle renders field names in status layouts.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle renders confirmations and healthy states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// ErrorStyle renders failures.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	// WarningStyle renders degraded states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle renders secondary detail such as timestamps and stats.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// HighlightStyle renders matched terms in search snippets.
	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	// InfoStyle renders hints and supplementary notes.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))
)

// =============================================================================
// RENDER HELPERS
// =============================================================================

// RenderSeparator returns a horizontal rule sized to the terminal, capped
// at width cells when width is positive.
func RenderSeparator(width int) string {
	w := GetTerminalWidth()
	if width > 0 && width < w {
		w = width
	}
	return DimStyle.Render(strings.Repeat("─", w))
}

// StatusMark renders a short [ok] or [fail] marker.
func StatusMark(ok bool) string {
	if ok {
		return SuccessStyle.Render("[ok]")
	}
	return ErrorStyle.Render("[fail]")
}
