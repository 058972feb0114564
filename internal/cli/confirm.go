// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation prompts for destructive operations.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RequireConfirmation gates a destructive action. The --confirm flag
// bypasses the prompt; JSON mode and non-interactive stdin refuse rather
// than guess. Returns true when the action should proceed.
func RequireConfirmation(confirmFlag bool, action string, jsonMode bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}

	if jsonMode {
		return false, fmt.Errorf("confirmation required to %s: pass --confirm with --json", action)
	}

	if !IsTTY() {
		return false, fmt.Errorf("confirmation required to %s: pass --confirm when not running interactively", action)
	}

	fmt.Printf("%s [y/N]: ", WarningStyle.Render(fmt.Sprintf("Are you sure you want to %s?", action)))

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("could not read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// ShowCancellationMessage tells the user nothing was changed.
func ShowCancellationMessage() {
	fmt.Println(DimStyle.Render("Cancelled. Nothing was changed."))
}
