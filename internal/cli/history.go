// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Browse, search, export, and delete saved conversations.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/history"
	"github.com/jeranaias/parley/internal/store"
)

// RunHistory dispatches the history subcommands.
func RunHistory(args Args) error {
	cfg := config.Global()
	ApplyColorMode(cfg.UI.Color)

	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled; enable it with: parley config set history.enabled true")
	}

	st, err := openStore(cfg)
	if err != nil && !errors.Is(err, store.ErrNoKey) {
		return err
	}
	if errors.Is(err, store.ErrNoKey) && !args.JSON {
		fmt.Fprintln(os.Stderr, WarningStyle.Render(
			"History encryption is on but "+store.HistoryKeyEnv+" is not set; encrypted conversations cannot be read."))
	}

	switch args.Subcommand {
	case "", "list":
		return historyList(st, args)
	case "show":
		return historyShow(st, args)
	case "search":
		return historySearch(st, args)
	case "export":
		return historyExport(st, args)
	case "delete", "rm":
		return historyDelete(st, args)
	case "clear":
		return historyClear(st, args)
	case "stats":
		return historyStats(st, args)
	}

	return &ValidationError{
		Field:   "subcommand",
		Value:   args.Subcommand,
		Reason:  "expected list, show, search, export, delete, clear, or stats",
		Example: "parley history search \"goroutines\"",
	}
}

// =============================================================================
// LIST AND SHOW
// =============================================================================

func historyList(st *store.Store, args Args) error {
	metas, err := st.List()
	if err != nil {
		return err
	}
	if len(metas) > args.Limit {
		metas = metas[:args.Limit]
	}

	if args.JSON {
		data := make([]HistoryEntryData, 0, len(metas))
		for i, m := range metas {
			data = append(data, HistoryEntryData{
				Index:     i + 1,
				ID:        m.ID,
				Title:     m.Title,
				Role:      m.RoleID,
				Model:     m.Model,
				Turns:     m.TurnCount,
				UpdatedAt: m.UpdatedAt,
				Preview:   m.Preview,
			})
		}
		return NewJSONResponse("history list", data).Print()
	}

	if len(metas) == 0 {
		fmt.Println("No saved conversations.")
		fmt.Println(DimStyle.Render("Conversations are saved automatically when a chat ends."))
		return nil
	}

	fmt.Println()
	fmt.Printf("   %s %s %s %s\n",
		DimStyle.Render(runewidth.FillRight("TITLE", 40)),
		DimStyle.Render(runewidth.FillRight("ROLE", 10)),
		DimStyle.Render("TURNS"),
		DimStyle.Render("UPDATED"))
	for i, m := range metas {
		title := runewidth.FillRight(runewidth.Truncate(m.Title, 40, "..."), 40)
		fmt.Printf("%2d %s %s %s %s\n",
			i+1,
			ValueStyle.Render(title),
			DimStyle.Render(runewidth.FillRight(m.RoleID, 10)),
			ValueStyle.Render(fmt.Sprintf("%5d", m.TurnCount)),
			DimStyle.Render(formatAge(m.UpdatedAt)))
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Show one with 'parley history show <n>'."))
	return nil
}

func historyShow(st *store.Store, args Args) error {
	conv, err := resolveConversation(st, firstRest(args))
	if err != nil {
		return err
	}

	if args.JSON {
		data, err := conv.ExportJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(conv.Title))
	fmt.Println(DimStyle.Render(fmt.Sprintf("%s, %s, %d turns, started %s",
		conv.RoleID, conv.Model, conv.TurnCount(), formatAge(conv.CreatedAt))))
	fmt.Println(RenderSeparator(60))

	width := GetTerminalWidth()
	for _, t := range conv.Turns {
		fmt.Println()
		label := SuccessStyle.Render("you")
		if t.Author == "assistant" {
			label = InfoStyle.Render("assistant")
		}
		fmt.Printf("%s %s\n", label, DimStyle.Render(formatAge(t.Timestamp)))
		fmt.Println(WrapText(t.Text, width-2))
		for _, att := range t.Attachments {
			fmt.Println(DimStyle.Render(fmt.Sprintf("  [attached: %s, %s]", att.Name, formatBytes(att.Size))))
		}
		if t.TokenCount > 0 {
			fmt.Println(DimStyle.Render(fmt.Sprintf("  %d tokens, %.1f tok/s", t.TokenCount, t.TokensPerSec)))
		}
	}
	fmt.Println()
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

func historySearch(st *store.Store, args Args) error {
	query := strings.Join(args.Rest, " ")
	if query == "" {
		return ErrMissingArgument("query", `parley history search "dead letter"`)
	}

	if !config.Global().History.SearchIndex {
		return historySearchSlow(st, args, query)
	}

	idxCfg := history.DefaultConfig(st.BaseDir)
	idxCfg.EnableWatch = false
	idx, err := history.NewIndex(st, idxCfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := refreshIndex(idx, st, args.Reindex); err != nil {
		return err
	}

	var results []history.SearchResult
	if args.Titles {
		results, err = idx.SearchTitles(query, args.Limit)
	} else {
		opts := history.DefaultSearchOptions()
		opts.MaxResults = args.Limit
		opts.RoleID = args.Role
		opts.Author = args.Author
		results, err = idx.Search(query, opts)
	}
	if err != nil {
		return err
	}

	if args.JSON {
		data := make([]SearchResultData, 0, len(results))
		for _, r := range results {
			data = append(data, SearchResultData{
				ConversationID: r.ConversationID,
				Title:          r.Title,
				Author:         r.Author,
				Snippet:        r.Snippet,
				UpdatedAt:      r.UpdatedAt,
			})
		}
		return NewJSONResponse("history search", data).Print()
	}

	if len(results) == 0 {
		fmt.Printf("No matches for %q.\n", query)
		return nil
	}

	fmt.Println()
	for _, r := range results {
		fmt.Printf("%s %s %s\n",
			TitleStyle.Render(r.Title),
			DimStyle.Render("("+r.RoleID+")"),
			DimStyle.Render(formatAge(r.UpdatedAt)))
		fmt.Printf("  %s\n", highlightSnippet(r.Snippet))
		fmt.Println(DimStyle.Render("  id " + r.ConversationID))
	}
	fmt.Println()
	return nil
}

// historySearchSlow scans conversation files directly. It runs when
// history.search_index is off and trades snippets and ranking for zero
// index maintenance.
func historySearchSlow(st *store.Store, args Args, query string) error {
	var metas []store.ConversationMeta
	var err error
	if args.Titles {
		metas, err = st.Search(query)
	} else {
		metas, err = st.SearchTurns(query)
	}
	if err != nil {
		return err
	}
	if args.Role != "" {
		filtered := metas[:0]
		for _, m := range metas {
			if m.RoleID == args.Role {
				filtered = append(filtered, m)
			}
		}
		metas = filtered
	}
	if args.Author != "" && !args.JSON {
		fmt.Fprintln(os.Stderr, DimStyle.Render(
			"note: filtering by author needs the search index (history.search_index)."))
	}
	if len(metas) > args.Limit {
		metas = metas[:args.Limit]
	}

	if args.JSON {
		data := make([]SearchResultData, 0, len(metas))
		for _, m := range metas {
			data = append(data, SearchResultData{
				ConversationID: m.ID,
				Title:          m.Title,
				Snippet:        m.Preview,
				UpdatedAt:      m.UpdatedAt,
			})
		}
		return NewJSONResponse("history search", data).Print()
	}

	if len(metas) == 0 {
		fmt.Printf("No matches for %q.\n", query)
		return nil
	}

	fmt.Println()
	for _, m := range metas {
		fmt.Printf("%s %s %s\n",
			TitleStyle.Render(m.Title),
			DimStyle.Render("("+m.RoleID+")"),
			DimStyle.Render(formatAge(m.UpdatedAt)))
		if m.Preview != "" {
			fmt.Printf("  %s\n", DimStyle.Render(m.Preview))
		}
		fmt.Println(DimStyle.Render("  id " + m.ID))
	}
	fmt.Println()
	return nil
}

// refreshIndex brings the index up to date before a one-shot search.
// Full builds only happen when forced, when the index has never been
// built, or when a conversation changed after the last pass; otherwise
// the search runs against the existing index.
func refreshIndex(idx *history.Index, st *store.Store, force bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if force || !idx.IsIndexed() {
		return idx.ReindexAll(ctx)
	}

	last := idx.Stats().LastIndexed
	metas, err := st.List()
	if err != nil {
		return err
	}
	for _, m := range metas {
		if m.UpdatedAt.After(last) {
			return idx.ReindexAll(ctx)
		}
	}
	return nil
}

var snippetMarker = regexp.MustCompile(`\[([^\[\]]*)\]`)

// highlightSnippet converts the [..] match markers produced by the
// indexer into emphasized text. With colors off the brackets stay, which
// keeps matches visible in plain output.
func highlightSnippet(snippet string) string {
	if !ColorsEnabled() {
		return snippet
	}
	return snippetMarker.ReplaceAllStringFunc(snippet, func(m string) string {
		return HighlightStyle.Render(strings.Trim(m, "[]"))
	})
}

// =============================================================================
// EXPORT
// =============================================================================

func historyExport(st *store.Store, args Args) error {
	conv, err := resolveConversation(st, firstRest(args))
	if err != nil {
		return err
	}

	format := strings.ToLower(args.Format)
	if format == "" {
		format = "markdown"
	}

	var data []byte
	switch format {
	case "markdown", "md":
		data = []byte(conv.ExportMarkdown())
	case "json":
		data, err = conv.ExportJSON()
		if err != nil {
			return err
		}
	default:
		return &ValidationError{
			Field:   "format",
			Value:   args.Format,
			Reason:  "expected markdown or json",
			Example: "parley history export 1 --format json",
		}
	}

	if args.Out == "" {
		fmt.Print(string(data))
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	if err := writeExport(args.Out, data); err != nil {
		return err
	}
	fmt.Println(SuccessStyle.Render("Exported to " + args.Out))
	return nil
}

// =============================================================================
// DELETE, CLEAR, STATS
// =============================================================================

func historyDelete(st *store.Store, args Args) error {
	ref := firstRest(args)
	id, err := resolveConversationID(st, ref)
	if err != nil {
		return err
	}

	// Name the conversation in the prompt when the payload is readable.
	label := id
	if conv, err := st.Load(id); err == nil {
		label = fmt.Sprintf("%q", conv.Title)
	}

	ok, err := RequireConfirmation(args.Confirm, "delete conversation "+label, args.JSON)
	if err != nil {
		return err
	}
	if !ok {
		ShowCancellationMessage()
		return nil
	}

	if err := st.Delete(id); err != nil {
		return err
	}
	removeFromIndex(st, id)

	if args.JSON {
		return NewJSONResponse("history delete", map[string]string{"deleted": id}).Print()
	}
	fmt.Println(SuccessStyle.Render("Deleted " + id))
	return nil
}

func historyClear(st *store.Store, args Args) error {
	metas, err := st.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No saved conversations.")
		return nil
	}

	ok, err := RequireConfirmation(args.Confirm,
		fmt.Sprintf("delete all %d conversations", len(metas)), args.JSON)
	if err != nil {
		return err
	}
	if !ok {
		ShowCancellationMessage()
		return nil
	}

	if err := st.Clear(); err != nil {
		return err
	}
	clearIndex(st)

	if args.JSON {
		return NewJSONResponse("history clear", map[string]int{"deleted": len(metas)}).Print()
	}
	fmt.Println(SuccessStyle.Render(fmt.Sprintf("Deleted %d conversations.", len(metas))))
	return nil
}

func historyStats(st *store.Store, args Args) error {
	metas, err := st.List()
	if err != nil {
		return err
	}

	data := StatsData{
		Conversations: len(metas),
		StoreDir:      st.BaseDir,
	}

	idxCfg := history.DefaultConfig(st.BaseDir)
	idxCfg.EnableWatch = false
	if _, err := os.Stat(idxCfg.DatabasePath); err == nil {
		if idx, err := history.NewIndex(st, idxCfg); err == nil {
			stats := idx.Stats()
			data.IndexedConvs = stats.ConversationCount
			data.IndexedTurns = stats.TurnCount
			data.IndexSizeBytes = stats.DatabaseSize
			if !stats.LastIndexed.IsZero() {
				data.LastIndexed = stats.LastIndexed.UTC().Format(time.RFC3339)
			}
			idx.Close()
		}
	}

	if args.JSON {
		return NewJSONResponse("history stats", data).Print()
	}

	fmt.Println()
	printRow("Directory", ValueStyle.Render(data.StoreDir))
	printRow("Saved", ValueStyle.Render(fmt.Sprintf("%d conversations", data.Conversations)))
	if data.IndexedTurns > 0 || data.IndexedConvs > 0 {
		printRow("Indexed", ValueStyle.Render(fmt.Sprintf("%d conversations, %d turns",
			data.IndexedConvs, data.IndexedTurns)))
		printRow("Index size", ValueStyle.Render(formatBytes(data.IndexSizeBytes)))
		if data.LastIndexed != "" {
			printRow("Last indexed", ValueStyle.Render(data.LastIndexed))
		}
	} else {
		printRow("Indexed", DimStyle.Render("not built yet; runs on first search"))
	}
	fmt.Println()
	return nil
}

// =============================================================================
// INDEX MAINTENANCE
// =============================================================================

// removeFromIndex drops one conversation from the search index when the
// index exists. Failures are ignored; the next search rebuilds it.
func removeFromIndex(st *store.Store, id string) {
	idxCfg := history.DefaultConfig(st.BaseDir)
	idxCfg.EnableWatch = false
	if _, err := os.Stat(idxCfg.DatabasePath); err != nil {
		return
	}
	if idx, err := history.NewIndex(st, idxCfg); err == nil {
		_ = idx.RemoveConversation(id)
		idx.Close()
	}
}

// clearIndex purges the search index so cleared conversations do not
// linger in the full-text tables.
func clearIndex(st *store.Store) {
	idxCfg := history.DefaultConfig(st.BaseDir)
	idxCfg.EnableWatch = false
	if _, err := os.Stat(idxCfg.DatabasePath); err != nil {
		return
	}
	if idx, err := history.NewIndex(st, idxCfg); err == nil {
		_ = idx.Clear()
		idx.Close()
	}
}

func firstRest(args Args) string {
	if len(args.Rest) == 0 {
		return ""
	}
	return args.Rest[0]
}
