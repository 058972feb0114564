// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question with a streamed reply.

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/session"
)

// RunAsk sends a single question and streams the reply to stdout. The
// question comes from the arguments or from piped stdin, so both
// "parley ask ..." and "git diff | parley ask ..." work. Nothing is
// saved to history.
func RunAsk(args Args) error {
	cfg := config.Global()
	ApplyColorMode(cfg.UI.Color)

	question := args.Query
	if piped := readStdinPipe(); piped != "" {
		if question == "" {
			question = piped
		} else {
			// Question names the task, piped data is the subject.
			question = question + "\n\n" + piped
		}
	}
	if question == "" {
		return ErrMissingArgument("question", `parley ask "why is the sky blue?"`)
	}

	if args.File != "" {
		data, err := readAttachment(args.File)
		if err != nil {
			return err
		}
		question += "\n" + formatFileForPrompt(filepath.Base(args.File), data)
	}

	be := buildBackend(args, cfg)
	if err := checkBackend(be); err != nil {
		if args.JSON {
			return NewJSONErrorResponse("ask", err).Print()
		}
		return err
	}

	sessCfg, err := sessionConfig(args, cfg)
	if err != nil {
		return err
	}
	sess := session.New(be, sessCfg)
	defer sess.CancelCurrent()

	start := time.Now()
	done := sess.Send(question, nil)

	var out io.Writer = os.Stdout
	if args.JSON {
		out = io.Discard
	}
	text, err := relayReply(sess, done, out)
	if err != nil {
		if args.JSON {
			return NewJSONErrorResponse("ask", err).Print()
		}
		fmt.Println()
		return err
	}

	if args.JSON {
		data := AskData{
			Response:   text,
			Model:      sess.Model(),
			Role:       sess.Role().ID,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if stats := sess.LastStats(); stats != nil {
			data.PromptTokens = stats.PromptTokens
			data.CompletionTokens = stats.CompletionTokens
			data.TotalTokens = stats.PromptTokens + stats.CompletionTokens
			data.TokensPerSec = stats.TokensPerSecond
		}
		return NewJSONResponse("ask", data).Print()
	}

	fmt.Println()
	if !args.Quiet && cfg.UI.ShowStats {
		if stats := sess.LastStats(); stats != nil {
			// Stats go to stderr so piped stdout stays clean.
			fmt.Fprintln(os.Stderr, DimStyle.Render(stats.Format()))
		}
	}
	return nil
}
