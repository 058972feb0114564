// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - "Did you mean" suggestions for mistyped commands.

package cli

// validCommands are the commands suggestions draw from.
var validCommands = []string{
	"chat",
	"ask",
	"roles",
	"models",
	"history",
	"status",
	"config",
	"version",
	"help",
}

// SuggestCommand returns the closest valid command to the input, or ""
// when nothing is close enough. Exact matches return "" since there is
// nothing to suggest.
func SuggestCommand(input string) string {
	if len(input) < 2 {
		return ""
	}

	// Longer inputs tolerate more typos.
	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	best := ""
	bestDist := maxDistance + 1
	for _, cmd := range validCommands {
		d := levenshteinDistance(input, cmd)
		if d == 0 {
			return ""
		}
		if d < bestDist {
			best = cmd
			bestDist = d
		}
	}
	return best
}

// levenshteinDistance computes edit distance with a two-row table.
func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
