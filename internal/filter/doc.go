// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filter scans streamed model output for <think>...</think>
// reasoning spans and applies the display policy: drop the span, or
// reveal it behind a marker glyph.
//
// The scanner is a two-state machine (Normal, InsideThink) that tolerates
// arbitrary fragment boundaries, including tags split across fragments.
package filter
