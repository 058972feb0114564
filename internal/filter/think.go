// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filter removes or reveals in-band reasoning spans in streamed
// model output.
package filter

import "strings"

// =============================================================================
// CONSTANTS
// =============================================================================

// Reasoning models wrap internal deliberation in literal think tags.
// Matching is exact and case-sensitive; there is no nesting.
const (
	openTag  = "<think>"
	closeTag = "</think>"
)

// DefaultMarker is emitted in place of an opening tag when reasoning is
// revealed, so the reader can tell reasoning from the answer.
const DefaultMarker = "💭"

// =============================================================================
// FILTER STATE MACHINE
// =============================================================================

type state int

const (
	stateNormal state = iota
	stateInsideThink
)

// ThinkFilter is a stateful scanner over a stream of text fragments with
// arbitrary chunk boundaries. Outside a think span text passes through
// verbatim. Inside a span, text is either dropped entirely (reveal=false)
// or emitted behind a single marker glyph (reveal=true). A tag split
// across fragments is recognized: the filter holds back any trailing
// bytes that could begin the tag it is scanning for and re-examines them
// with the next fragment, so partial tags are never leaked as display
// text.
//
// Not safe for concurrent use; a filter belongs to exactly one stream at
// a time and must be Reset between streams.
type ThinkFilter struct {
	reveal bool
	marker string
	state  state
	carry  string
}

// Option configures a ThinkFilter.
type Option func(*ThinkFilter)

// WithMarker overrides the glyph emitted when a revealed think span opens.
func WithMarker(marker string) Option {
	return func(f *ThinkFilter) {
		if marker != "" {
			f.marker = marker
		}
	}
}

// NewThinkFilter creates a filter in the Normal state. When reveal is
// true, think spans are shown prefixed by the marker glyph; otherwise
// they are removed from the output entirely.
func NewThinkFilter(reveal bool, opts ...Option) *ThinkFilter {
	f := &ThinkFilter{
		reveal: reveal,
		marker: DefaultMarker,
		state:  stateNormal,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Reveal reports whether think spans are shown.
func (f *ThinkFilter) Reveal() bool {
	return f.reveal
}

// Thinking reports whether the scanner is currently inside a think span.
func (f *ThinkFilter) Thinking() bool {
	return f.state == stateInsideThink
}

// Reset returns the filter to the Normal state and discards any held
// bytes. Must be called at the start of every new stream.
func (f *ThinkFilter) Reset() {
	f.state = stateNormal
	f.carry = ""
}

// Feed consumes one raw fragment and returns the display text it
// produces. The returned string may be empty (fragment fully inside a
// hidden span, or entirely held back as a possible split tag).
func (f *ThinkFilter) Feed(fragment string) string {
	if fragment == "" && f.carry == "" {
		return ""
	}

	// Prepend bytes held back from the previous fragment so a tag split
	// across the boundary is seen whole.
	input := f.carry + fragment
	f.carry = ""

	var out strings.Builder
	for input != "" {
		switch f.state {
		case stateNormal:
			i := strings.Index(input, openTag)
			if i >= 0 {
				out.WriteString(input[:i])
				input = input[i+len(openTag):]
				f.state = stateInsideThink
				if f.reveal {
					out.WriteString(f.marker)
				}
				continue
			}
			keep := tagPrefixStart(input, openTag)
			out.WriteString(input[:keep])
			f.carry = input[keep:]
			input = ""

		case stateInsideThink:
			i := strings.Index(input, closeTag)
			if i >= 0 {
				if f.reveal {
					out.WriteString(input[:i])
				}
				input = input[i+len(closeTag):]
				f.state = stateNormal
				continue
			}
			keep := tagPrefixStart(input, closeTag)
			if f.reveal {
				out.WriteString(input[:keep])
			}
			f.carry = input[keep:]
			input = ""
		}
	}
	return out.String()
}

// Flush releases any held-back bytes at end of stream. A partial tag
// that never completed was ordinary text; inside a hidden span it
// belongs to the hidden content and stays dropped.
func (f *ThinkFilter) Flush() string {
	held := f.carry
	f.carry = ""
	if f.state == stateInsideThink && !f.reveal {
		return ""
	}
	return held
}

// tagPrefixStart returns the index in s where a trailing proper prefix
// of tag begins, or len(s) if the end of s cannot start the tag. The
// longest such suffix wins, so "a<thi" holds back "<thi" rather than
// emitting part of a potential tag.
func tagPrefixStart(s, tag string) int {
	max := len(tag) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(tag, s[len(s)-n:]) {
			return len(s) - n
		}
	}
	return len(s)
}
