// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Show and edit the TOML configuration.

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/parley/internal/config"
)

// RunConfig dispatches the config subcommands.
func RunConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "path":
		return configPath(args)
	}

	return &ValidationError{
		Field:   "subcommand",
		Value:   args.Subcommand,
		Reason:  "expected show, get, set, or path",
		Example: "parley config set chat.model llama3.2:3b",
	}
}

// =============================================================================
// SHOW
// =============================================================================

func configShow(args Args) error {
	cfg := config.Global()
	ApplyColorMode(cfg.UI.Color)

	if args.JSON {
		return NewJSONResponse("config show", cfg).Print()
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("[backend]"))
	printRow("url", ValueStyle.Render(cfg.Backend.URL))
	printRow("timeout_secs", ValueStyle.Render(fmt.Sprintf("%d", cfg.Backend.TimeoutSecs)))
	printRow("requests_per_minute", ValueStyle.Render(fmt.Sprintf("%d", cfg.Backend.RequestsPerMinute)))

	fmt.Println()
	fmt.Println(SectionStyle.Render("[chat]"))
	printRow("role", renderOrDefault(cfg.Chat.Role, "catalog default"))
	printRow("model", renderOrDefault(cfg.Chat.Model, "role default"))
	printRow("reveal_thinking", ValueStyle.Render(onOff(cfg.Chat.RevealThinking)))
	printRow("think_marker", renderOrDefault(cfg.Chat.ThinkMarker, "built-in"))

	fmt.Println()
	fmt.Println(SectionStyle.Render("[sampling]"))
	printRow("temperature", ValueStyle.Render(fmt.Sprintf("%.2f", cfg.Sampling.Temperature)))
	printRow("top_p", ValueStyle.Render(fmt.Sprintf("%.2f", cfg.Sampling.TopP)))
	printRow("num_ctx", ValueStyle.Render(fmt.Sprintf("%d", cfg.Sampling.NumCtx)))
	printRow("max_tokens", ValueStyle.Render(fmt.Sprintf("%d", cfg.Sampling.MaxTokens)))

	fmt.Println()
	fmt.Println(SectionStyle.Render("[history]"))
	printRow("enabled", ValueStyle.Render(onOff(cfg.History.Enabled)))
	printRow("dir", renderOrDefault(cfg.History.Dir, "~/.parley/history"))
	printRow("max_conversations", ValueStyle.Render(fmt.Sprintf("%d", cfg.History.MaxConversations)))
	printRow("encrypt", ValueStyle.Render(onOff(cfg.History.Encrypt)))
	printRow("search_index", ValueStyle.Render(onOff(cfg.History.SearchIndex)))
	printRow("watch", ValueStyle.Render(onOff(cfg.History.Watch)))

	fmt.Println()
	fmt.Println(SectionStyle.Render("[ui]"))
	printRow("color", ValueStyle.Render(cfg.UI.Color))
	printRow("show_stats", ValueStyle.Render(onOff(cfg.UI.ShowStats)))
	printRow("compact_mode", ValueStyle.Render(onOff(cfg.UI.CompactMode)))

	fmt.Println()
	if path, err := config.ConfigPathTOML(); err == nil {
		fmt.Println(DimStyle.Render("config file: " + path))
	}
	fmt.Println(DimStyle.Render("Change values with 'parley config set <key> <value>'."))
	return nil
}

func renderOrDefault(value, fallback string) string {
	if value == "" {
		return DimStyle.Render("(" + fallback + ")")
	}
	return ValueStyle.Render(value)
}

// =============================================================================
// GET AND SET
// =============================================================================

func configGet(args Args) error {
	if len(args.Rest) < 1 {
		return ErrMissingArgument("key", "parley config get chat.model")
	}
	key := args.Rest[0]

	value, err := config.Global().Get(key)
	if err != nil {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Reason:  err.Error(),
			Example: "keys: " + strings.Join(config.GetAllKeys(), ", "),
		}
	}

	if args.JSON {
		return NewJSONResponse("config get", map[string]interface{}{key: value}).Print()
	}
	fmt.Printf("%v\n", value)
	return nil
}

func configSet(args Args) error {
	if len(args.Rest) < 2 {
		return ErrMissingArgument("key and value", "parley config set chat.model llama3.2:3b")
	}
	key := args.Rest[0]
	value := strings.Join(args.Rest[1:], " ")

	// Work on a copy so a value that fails validation never lands in
	// the live config.
	cfg := config.Global().Clone()
	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{
			Field:   "key",
			Value:   key,
			Reason:  err.Error(),
			Example: "keys: " + strings.Join(config.GetAllKeys(), ", "),
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	config.SetGlobal(cfg)

	if args.JSON {
		return NewJSONResponse("config set", map[string]string{key: value}).Print()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[ok]"), key, value)
	return nil
}

// =============================================================================
// PATH
// =============================================================================

func configPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}

	exists := true
	if _, err := os.Stat(path); err != nil {
		exists = false
	}

	if args.JSON {
		return NewJSONResponse("config path", map[string]interface{}{
			"path":   path,
			"exists": exists,
		}).Print()
	}

	fmt.Println(path)
	if !exists {
		fmt.Println(DimStyle.Render("(not created yet; defaults are in effect)"))
	}
	return nil
}
