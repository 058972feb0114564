// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command parley is a terminal client for a local language model server.
// It keeps a conversation with role-based system prompts, streams replies
// token by token, and saves transcripts for full-text search later.
package main

import (
	"github.com/jeranaias/parley/internal/cli"
)

// Build identifiers, stamped at release time via
// -ldflags "-X main.version=... -X main.gitCommit=... -X main.buildDate=...".
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdChat:
		err = cli.RunChat(args)
	case cli.CmdAsk:
		err = cli.RunAsk(args)
	case cli.CmdRoles:
		err = cli.RunRoles(args)
	case cli.CmdModels:
		err = cli.RunModels(args)
	case cli.CmdHistory:
		err = cli.RunHistory(args)
	case cli.CmdStatus:
		err = cli.RunStatus(args)
	case cli.CmdConfig:
		err = cli.RunConfig(args)
	case cli.CmdVersion:
		err = cli.RunVersion(args, cli.BuildInfo{
			Version: version,
			Commit:  gitCommit,
			Date:    buildDate,
		})
	case cli.CmdHelp:
		cli.RunHelp()
	case cli.CmdUnknown:
		err = cli.RunUnknown(args)
	}

	if err != nil {
		cli.HandleErrorAndExit(err, args.JSON)
	}
}
