// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// roles.go - List the built-in assistant roles.

package cli

import (
	"fmt"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/role"
	"github.com/jeranaias/parley/internal/util"
)

// RunRoles lists the role catalog, marking the active one.
func RunRoles(args Args) error {
	roles := role.List()

	if args.JSON {
		data := make([]RoleData, 0, len(roles))
		for _, r := range roles {
			data = append(data, RoleData{
				ID:           r.ID,
				Name:         r.DisplayName,
				Model:        r.DefaultModel,
				MultiTurn:    r.MultiTurn,
				SystemPrompt: r.SystemPrompt,
			})
		}
		return NewJSONResponse("roles", data).Print()
	}

	active := args.Role
	if active == "" {
		active = config.Global().Chat.Role
	}
	if active == "" {
		active = role.Default().ID
	}

	width := GetTerminalWidth()
	fmt.Println()
	for _, r := range roles {
		mark := "  "
		if r.ID == active {
			mark = SuccessStyle.Render("* ")
		}
		mode := "multi-turn"
		if !r.MultiTurn {
			mode = "one-shot"
		}
		fmt.Printf("%s%s %s %s\n",
			mark,
			TitleStyle.Render(fmt.Sprintf("%-12s", r.ID)),
			ValueStyle.Render(fmt.Sprintf("%-20s", r.DefaultModel)),
			DimStyle.Render(mode))
		fmt.Printf("    %s\n", DimStyle.Render(util.TruncateRunes(util.FirstLine(r.SystemPrompt), width-8)))
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Switch with 'parley -r <id>' or '/role <id>' in chat."))
	return nil
}
