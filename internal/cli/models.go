// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - List models installed on the backend.

package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/config"
)

// RunModels lists the models the backend has installed, marking the one
// the next chat would use.
func RunModels(args Args) error {
	cfg := config.Global()
	ApplyColorMode(cfg.UI.Color)

	be := buildBackend(args, cfg)
	lister, ok := be.(backend.ModelLister)
	if !ok {
		return fmt.Errorf("the configured backend cannot list models")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		if args.JSON {
			return NewJSONErrorResponse("models", err).Print()
		}
		return err
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	active := activeModel(args, cfg)

	if args.JSON {
		data := make([]ModelData, 0, len(models))
		for i := range models {
			m := &models[i]
			data = append(data, ModelData{
				Name:       m.Name,
				SizeBytes:  m.Size,
				Size:       m.FormatSize(),
				Digest:     m.Digest,
				ModifiedAt: m.ModifiedAt,
				Active:     m.Name == active,
			})
		}
		return NewJSONResponse("models", data).Print()
	}

	if len(models) == 0 {
		fmt.Println("No models installed.")
		fmt.Println(DimStyle.Render("Pull one with: ollama pull llama3.2:3b"))
		return nil
	}

	fmt.Println()
	fmt.Printf("  %s %s %s\n",
		DimStyle.Render(fmt.Sprintf("%-32s", "NAME")),
		DimStyle.Render(fmt.Sprintf("%8s", "SIZE")),
		DimStyle.Render("  MODIFIED"))
	for i := range models {
		m := &models[i]
		mark := "  "
		name := ValueStyle.Render(fmt.Sprintf("%-32s", m.Name))
		if m.Name == active {
			mark = SuccessStyle.Render("* ")
			name = SuccessStyle.Render(fmt.Sprintf("%-32s", m.Name))
		}
		fmt.Printf("%s%s %s   %s\n",
			mark, name,
			ValueStyle.Render(fmt.Sprintf("%8s", m.FormatSize())),
			DimStyle.Render(formatAge(m.ModifiedAt)))
	}
	fmt.Println()
	return nil
}

// activeModel resolves which model the next session would use, following
// the same precedence as session startup: flag, config, role default.
func activeModel(args Args, cfg *config.Config) string {
	if args.Model != "" {
		return args.Model
	}
	if cfg.Chat.Model != "" {
		return cfg.Chat.Model
	}
	if sessCfg, err := sessionConfig(args, cfg); err == nil {
		return sessCfg.Role.DefaultModel
	}
	return ""
}
