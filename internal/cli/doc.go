// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the parley command-line interface.
//
// It parses arguments, dispatches commands, and renders output for both
// interactive terminals and scripted callers. Rendering degrades cleanly:
// styles are dropped when stdout is not a TTY or NO_COLOR is set, and every
// informational command accepts --json for machine-readable output.
//
// # Key Types
//
//   - Command: enumeration of top-level commands (chat, ask, history, ...)
//   - Args: parsed global flags plus per-command options
//   - ArgParser: token-level flag and positional parsing for subcommands
//   - ChatCLI: readline wrapper around the interactive chat loop
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdChat:
//	    err = cli.RunChat(args)
//	case cli.CmdAsk:
//	    err = cli.RunAsk(args)
//	}
//
// # Commands Overview
//
//   - chat: interactive session with streaming replies (the default)
//   - ask: one-shot question, reply on stdout, stats on stderr
//   - roles: list the built-in assistant roles
//   - models: list models installed on the backend
//   - history: list, show, search, export, and delete saved conversations
//   - status: backend reachability, active role and model, history state
//   - config: show and edit the TOML configuration
//   - version: build information
package cli
