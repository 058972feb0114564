// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Backend, session defaults, and history health at a glance.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/history"
	"github.com/jeranaias/parley/internal/store"
)

// RunStatus reports backend reachability, the active chat defaults, and
// history state.
func RunStatus(args Args) error {
	cfg := config.Global()
	ApplyColorMode(cfg.UI.Color)

	be := buildBackend(args, cfg)
	backendInfo := collectBackendInfo(be, args, cfg)
	chatInfo := collectChatInfo(args, cfg)
	historyInfo := collectHistoryInfo(cfg)

	if args.JSON {
		return NewJSONResponse("status", StatusData{
			Backend: backendInfo,
			Chat:    chatInfo,
			History: historyInfo,
		}).Print()
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("[backend]"))
	reach := StatusMark(backendInfo.Reachable)
	if backendInfo.Reachable {
		reach += " " + ValueStyle.Render("reachable")
		if backendInfo.Version != "" {
			reach += DimStyle.Render(" (server "+backendInfo.Version+")")
		}
	} else {
		reach += " " + ErrorStyle.Render("unreachable")
	}
	printRow("URL", ValueStyle.Render(backendInfo.URL))
	printRow("Server", reach)
	if backendInfo.Reachable {
		printRow("Models", ValueStyle.Render(fmt.Sprintf("%d installed", backendInfo.Models)))
	} else {
		printRow("Hint", DimStyle.Render("start it with: ollama serve"))
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("[chat]"))
	printRow("Role", ValueStyle.Render(chatInfo.Role))
	printRow("Model", ValueStyle.Render(chatInfo.Model))
	printRow("Reveal", ValueStyle.Render(onOff(chatInfo.Reveal)))
	printRow("Temperature", ValueStyle.Render(fmt.Sprintf("%.2f", chatInfo.Temperature)))
	if chatInfo.ContextSize > 0 {
		printRow("Context", ValueStyle.Render(fmt.Sprintf("%d tokens", chatInfo.ContextSize)))
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("[history]"))
	if !historyInfo.Enabled {
		printRow("Saving", DimStyle.Render("off"))
	} else {
		printRow("Saving", SuccessStyle.Render("on"))
		printRow("Directory", ValueStyle.Render(historyInfo.Dir))
		printRow("Saved", ValueStyle.Render(fmt.Sprintf("%d conversations", historyInfo.Conversations)))
		enc := "off"
		if historyInfo.Encrypted {
			enc = "on"
			if !historyInfo.KeyPresent {
				enc += " " + WarningStyle.Render("("+store.HistoryKeyEnv+" not set)")
			}
		}
		printRow("Encryption", ValueStyle.Render(enc))
		if historyInfo.LastIndexed != "" {
			printRow("Index", ValueStyle.Render(fmt.Sprintf("%d turns, updated %s",
				historyInfo.IndexedTurns, historyInfo.LastIndexed)))
		} else {
			printRow("Index", DimStyle.Render("not built yet"))
		}
	}
	fmt.Println()
	return nil
}

func printRow(label, value string) {
	fmt.Printf("%s%s\n", LabelStyle.Render(label+":"), value)
}

// =============================================================================
// COLLECTORS
// =============================================================================

func collectBackendInfo(be backend.Backend, args Args, cfg *config.Config) StatusBackendInfo {
	url := cfg.Backend.URL
	if args.URL != "" {
		url = args.URL
	}
	info := StatusBackendInfo{URL: url}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hc, ok := be.(backend.HealthChecker)
	if !ok || hc.CheckRunning(ctx) != nil {
		return info
	}
	info.Reachable = true

	// Version is an optional backend capability.
	if v, ok := be.(interface {
		Version(context.Context) (string, error)
	}); ok {
		if ver, err := v.Version(ctx); err == nil {
			info.Version = ver
		}
	}

	if lister, ok := be.(backend.ModelLister); ok {
		if models, err := lister.ListModels(ctx); err == nil {
			info.Models = len(models)
		}
	}
	return info
}

func collectChatInfo(args Args, cfg *config.Config) StatusChatInfo {
	info := StatusChatInfo{
		Temperature: cfg.Sampling.Temperature,
		ContextSize: cfg.Sampling.NumCtx,
	}
	sessCfg, err := sessionConfig(args, cfg)
	if err != nil {
		info.Role = "unknown (" + err.Error() + ")"
		return info
	}
	info.Role = fmt.Sprintf("%s (%s)", sessCfg.Role.DisplayName, sessCfg.Role.ID)
	info.Model = sessCfg.Model
	if info.Model == "" {
		info.Model = sessCfg.Role.DefaultModel
	}
	info.Reveal = sessCfg.RevealThinking
	return info
}

func collectHistoryInfo(cfg *config.Config) StatusHistoryInfo {
	info := StatusHistoryInfo{
		Enabled:    cfg.History.Enabled,
		Encrypted:  cfg.History.Encrypt,
		KeyPresent: os.Getenv(store.HistoryKeyEnv) != "",
	}
	if !cfg.History.Enabled {
		return info
	}

	st, err := openStore(cfg)
	if err != nil && !errors.Is(err, store.ErrNoKey) {
		return info
	}
	info.Dir = st.BaseDir
	if metas, err := st.List(); err == nil {
		info.Conversations = len(metas)
	}

	// Only read index stats if the database already exists; opening the
	// index would otherwise create it as a side effect of status.
	idxCfg := history.DefaultConfig(st.BaseDir)
	idxCfg.EnableWatch = false
	if _, err := os.Stat(idxCfg.DatabasePath); err != nil {
		return info
	}
	idx, err := history.NewIndex(st, idxCfg)
	if err != nil {
		return info
	}
	defer idx.Close()
	stats := idx.Stats()
	info.IndexedTurns = stats.TurnCount
	if !stats.LastIndexed.IsZero() {
		info.LastIndexed = formatAge(stats.LastIndexed)
	}
	return info
}
