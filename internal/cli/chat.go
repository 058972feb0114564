// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat loop with streaming replies.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/history"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/role"
	"github.com/jeranaias/parley/internal/session"
	"github.com/jeranaias/parley/internal/store"
)

const chatPrompt = "you> "

// =============================================================================
// LINE EDITOR
// =============================================================================

// ChatCLI wraps the line editor with persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI sets up line editing. Ctrl+C at the prompt aborts the
// prompt instead of killing the process, which lets the loop treat it as
// a request to leave.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		c.historyFile = filepath.Join(dir, "input_history")
		if f, err := os.Open(c.historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return c
}

// ReadInput prompts for one line, recording non-empty input.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	s, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) != "" {
		c.line.AppendHistory(s)
	}
	return s, nil
}

// Close persists input history and restores the terminal.
func (c *ChatCLI) Close() {
	if c.historyFile != "" {
		if err := config.EnsureConfigDir(); err == nil {
			if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				_, _ = c.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

type chatSession struct {
	sess  *session.Session
	be    backend.Backend
	cfg   *config.Config
	store *store.Store
	index *history.Index
	input *ChatCLI
	args  Args

	convID       string
	pendingFiles []string
	startedAt    time.Time
	closeOnce    sync.Once
}

// RunChat starts the interactive loop.
func RunChat(args Args) error {
	cfg := config.Global()
	ApplyColorMode(cfg.UI.Color)

	if !IsTTY() {
		return fmt.Errorf("chat needs an interactive terminal; pipe input to 'parley ask' instead")
	}

	be := buildBackend(args, cfg)
	if err := checkBackend(be); err != nil {
		return err
	}

	sessCfg, err := sessionConfig(args, cfg)
	if err != nil {
		return err
	}

	cs := &chatSession{
		sess:      session.New(be, sessCfg),
		be:        be,
		cfg:       cfg,
		args:      args,
		startedAt: time.Now(),
	}

	if cfg.History.Enabled && !args.NoSave {
		st, serr := openStore(cfg)
		switch {
		case errors.Is(serr, store.ErrNoKey):
			fmt.Fprintln(os.Stderr, WarningStyle.Render(
				"History encryption is on but "+store.HistoryKeyEnv+" is not set; this conversation will not be saved."))
		case serr != nil:
			fmt.Fprintln(os.Stderr, WarningStyle.Render("History unavailable: "+serr.Error()))
		default:
			cs.store = st
			if cfg.History.SearchIndex {
				idxCfg := history.DefaultConfig(st.BaseDir)
				idxCfg.EnableWatch = cfg.History.Watch
				if idx, ierr := history.NewIndex(st, idxCfg); ierr == nil {
					cs.index = idx
					// Index in the background so startup stays instant. The
					// watcher keeps it fresh as conversations are saved.
					go func() { _ = idx.ReindexAll(context.Background()) }()
				}
			}
		}
	}

	cs.input = NewChatCLI()
	defer cs.close()

	// Ctrl+C at the prompt surfaces as ErrPromptAborted because the
	// line editor owns the terminal there. A signal only arrives while
	// a reply is streaming, where it cancels the request and keeps the
	// loop alive.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			cs.sess.CancelCurrent()
		}
	}()

	cs.printWelcome()

	for {
		input, err := cs.input.ReadInput(chatPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if strings.HasPrefix(input, "/") {
			if quit := cs.handleCommand(input); quit {
				break
			}
			continue
		}
		cs.sendMessage(input)
	}

	cs.close()
	cs.printExitSummary()
	return nil
}

// close cancels any in-flight request, saves the conversation, and
// releases resources. Safe to call more than once.
func (cs *chatSession) close() {
	cs.closeOnce.Do(func() {
		cs.sess.CancelCurrent()
		if cs.store != nil && cs.sess.TranscriptLen() > 0 {
			cs.saveConversation(false)
		}
		if cs.index != nil {
			_ = cs.index.Close()
		}
		cs.input.Close()
	})
}

// =============================================================================
// MESSAGE FLOW
// =============================================================================

func (cs *chatSession) sendMessage(text string) {
	if len(cs.pendingFiles) > 0 {
		text += "\n" + strings.Join(cs.pendingFiles, "\n")
		cs.pendingFiles = nil
	}

	var prevEnd time.Time
	if s := cs.sess.LastStats(); s != nil {
		prevEnd = s.EndTime
	}

	fmt.Println()
	done := cs.sess.Send(text, nil)
	_, err := relayReply(cs.sess, done, os.Stdout)
	fmt.Println()

	if err != nil {
		cs.sess.AcknowledgeError()
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, DimStyle.Render(hint))
		}
		return
	}

	// A resolved send without fresh statistics means it was cancelled.
	stats := cs.sess.LastStats()
	if stats == nil || !stats.EndTime.After(prevEnd) {
		fmt.Println(DimStyle.Render("(cancelled)"))
		return
	}

	if cs.cfg.UI.ShowStats && !cs.args.Quiet {
		fmt.Println(DimStyle.Render(stats.Format()))
	}
	if !cs.cfg.UI.CompactMode {
		fmt.Println()
	}
}

// saveConversation persists the transcript, reusing the conversation id
// so repeated saves update one record instead of creating copies.
func (cs *chatSession) saveConversation(verbose bool) {
	if cs.store == nil {
		if verbose {
			fmt.Println(DimStyle.Render("History is disabled; nothing saved."))
		}
		return
	}
	conv := store.FromTurns(cs.sess.Role().ID, cs.sess.Model(), cs.sess.Transcript())
	if conv.TurnCount() == 0 {
		if verbose {
			fmt.Println(DimStyle.Render("Nothing to save yet."))
		}
		return
	}
	conv.ID = cs.convID
	id, err := cs.store.Save(conv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s could not save conversation: %v\n", ErrorStyle.Render("error:"), err)
		return
	}
	cs.convID = id
	if verbose || !cs.args.Quiet {
		fmt.Println(DimStyle.Render("Conversation saved (" + id + ")"))
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a slash command, returning true when the loop
// should exit.
func (cs *chatSession) handleCommand(input string) bool {
	cmd, rest := splitSlashCommand(input)

	switch cmd {
	case "/help", "/h", "/?":
		cs.printHelp()
	case "/quit", "/q", "/exit":
		return true
	case "/clear", "/c":
		cs.sess.CancelCurrent()
		cs.sess.Clear()
		cs.convID = ""
		cs.pendingFiles = nil
		fmt.Println(DimStyle.Render("Conversation cleared."))
	case "/role":
		cs.switchRole(rest)
	case "/model":
		cs.switchModel(rest)
	case "/reveal":
		cs.toggleReveal(rest)
	case "/status", "/s":
		cs.printStatus()
	case "/attach", "/a":
		cs.attachFile(rest)
	case "/save":
		cs.saveConversation(true)
	case "/search":
		cs.searchHistory(rest)
	case "/history":
		cs.listRecent(rest)
	default:
		fmt.Println(WarningStyle.Render("Unknown command " + cmd + ". Type /help for commands."))
	}
	return false
}

// splitSlashCommand separates the command word from its argument text,
// preserving interior spacing in the argument.
func splitSlashCommand(input string) (cmd, rest string) {
	trimmed := strings.TrimSpace(input)
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		return strings.ToLower(trimmed[:i]), strings.TrimSpace(trimmed[i+1:])
	}
	return strings.ToLower(trimmed), ""
}

func (cs *chatSession) switchRole(id string) {
	if id == "" {
		r := cs.sess.Role()
		fmt.Printf("Current role: %s (%s)\n", r.DisplayName, r.ID)
		fmt.Println(DimStyle.Render("Available: " + strings.Join(role.IDs(), ", ")))
		return
	}

	// Switching roles starts a fresh transcript, so bank the current one
	// first.
	if cs.sess.TranscriptLen() > 0 {
		cs.saveConversation(false)
	}
	if err := cs.sess.SetRole(id); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		fmt.Println(DimStyle.Render("Available: " + strings.Join(role.IDs(), ", ")))
		return
	}
	cs.convID = ""
	cs.pendingFiles = nil
	fmt.Printf("Role: %s, model %s. Transcript cleared.\n", cs.sess.Role().DisplayName, cs.sess.Model())
}

func (cs *chatSession) switchModel(name string) {
	if name == "" {
		fmt.Printf("Current model: %s\n", cs.sess.Model())
		cs.listBackendModels()
		return
	}
	cs.sess.SetModel(name)
	fmt.Printf("Model: %s\n", name)
}

func (cs *chatSession) listBackendModels() {
	lister, ok := cs.be.(backend.ModelLister)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil || len(models) == 0 {
		return
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	fmt.Println(DimStyle.Render("Installed: " + strings.Join(names, ", ")))
}

func (cs *chatSession) toggleReveal(arg string) {
	reveal := !cs.sess.RevealThinking()
	if arg != "" {
		v, err := ParseBoolString(arg)
		if err != nil {
			fmt.Println(WarningStyle.Render("Usage: /reveal [on|off]"))
			return
		}
		reveal = v
	}
	cs.sess.SetRevealThinking(reveal)
	if reveal {
		fmt.Println(DimStyle.Render("Reasoning will be shown."))
	} else {
		fmt.Println(DimStyle.Render("Reasoning will be hidden."))
	}
}

func (cs *chatSession) printStatus() {
	st := cs.sess.GetStatus()

	rows := [][2]string{
		{"Role", fmt.Sprintf("%s (%s)", st.RoleName, st.RoleID)},
		{"Model", st.Model},
		{"Turns", strconv.Itoa(st.TurnCount)},
		{"Tokens used", strconv.Itoa(st.TokensInUse)},
		{"Reveal", onOff(st.Reveal)},
	}
	if st.Streaming {
		rows = append(rows, [2]string{"Streaming", "yes (" + st.RequestID + ")"})
	}
	if cs.store != nil {
		rows = append(rows, [2]string{"History", "on, " + cs.store.BaseDir})
	} else {
		rows = append(rows, [2]string{"History", "off"})
	}

	fmt.Println()
	for _, row := range rows {
		fmt.Printf("%s%s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}
	fmt.Println()
}

func (cs *chatSession) attachFile(path string) {
	if path == "" {
		fmt.Println(WarningStyle.Render("Usage: /attach <file>"))
		return
	}
	data, err := readAttachment(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		return
	}
	name := filepath.Base(path)
	cs.sess.AddAttachment(model.NewAttachment(name, data))
	cs.pendingFiles = append(cs.pendingFiles, formatFileForPrompt(name, data))
	fmt.Println(DimStyle.Render(fmt.Sprintf(
		"Attached %s (%s). It will be sent with your next message.", name, formatBytes(int64(len(data))))))
}

func (cs *chatSession) searchHistory(query string) {
	if query == "" {
		fmt.Println(WarningStyle.Render("Usage: /search <query>"))
		return
	}
	if cs.index == nil {
		cs.searchHistorySlow(query)
		return
	}

	opts := history.DefaultSearchOptions()
	opts.MaxResults = 5
	results, err := cs.index.Search(query, opts)
	if err != nil {
		if errors.Is(err, history.ErrNotIndexed) {
			fmt.Println(DimStyle.Render("Index is still building; try again in a moment."))
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		}
		return
	}
	if len(results) == 0 {
		fmt.Println(DimStyle.Render("No matches."))
		return
	}

	fmt.Println()
	for _, res := range results {
		fmt.Printf("%s %s\n", TitleStyle.Render(res.Title), DimStyle.Render(formatAge(res.UpdatedAt)))
		fmt.Println("  " + highlightSnippet(res.Snippet))
	}
	fmt.Println()
}

// searchHistorySlow scans conversation files directly when the search
// index is disabled. No snippets, just matching conversations.
func (cs *chatSession) searchHistorySlow(query string) {
	if cs.store == nil {
		fmt.Println(DimStyle.Render("History is off."))
		return
	}
	metas, err := cs.store.SearchTurns(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		return
	}
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No matches."))
		return
	}
	if len(metas) > 5 {
		metas = metas[:5]
	}

	fmt.Println()
	for _, meta := range metas {
		fmt.Printf("%s %s\n", TitleStyle.Render(meta.Title), DimStyle.Render(formatAge(meta.UpdatedAt)))
		if meta.Preview != "" {
			fmt.Println("  " + DimStyle.Render(meta.Preview))
		}
	}
	fmt.Println()
}

// listRecent shows the newest conversations, narrowed by a title and
// preview match when a query is given.
func (cs *chatSession) listRecent(query string) {
	if cs.store == nil {
		fmt.Println(DimStyle.Render("History is off."))
		return
	}
	var metas []store.ConversationMeta
	var err error
	if query == "" {
		metas, err = cs.store.List()
	} else {
		metas, err = cs.store.Search(query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("error:"), err)
		return
	}
	if len(metas) == 0 {
		if query != "" {
			fmt.Println(DimStyle.Render("No matches."))
		} else {
			fmt.Println(DimStyle.Render("No saved conversations yet."))
		}
		return
	}
	if len(metas) > 10 {
		metas = metas[:10]
	}

	fmt.Println()
	for i, m := range metas {
		fmt.Printf("%2d. %s %s\n", i+1, m.Title,
			DimStyle.Render(fmt.Sprintf("(%s, %d turns, %s)", m.RoleID, m.TurnCount, formatAge(m.UpdatedAt))))
	}
	fmt.Println(DimStyle.Render("Use 'parley history show <n>' to read one."))
	fmt.Println()
}

// =============================================================================
// BANNERS
// =============================================================================

func (cs *chatSession) printWelcome() {
	if cs.args.Quiet {
		return
	}
	fmt.Println()
	fmt.Println(TitleStyle.Render("parley") + " " + DimStyle.Render("interactive chat"))
	fmt.Printf("%s %s  %s %s\n",
		DimStyle.Render("role:"), cs.sess.Role().DisplayName,
		DimStyle.Render("model:"), cs.sess.Model())
	fmt.Println(DimStyle.Render("Type /help for commands, /quit to leave. Ctrl+C cancels a streaming reply."))
	fmt.Println()
}

func (cs *chatSession) printHelp() {
	help := [][2]string{
		{"/role [id]", "show or switch the assistant role"},
		{"/model [name]", "show or switch the model"},
		{"/reveal [on|off]", "toggle showing model reasoning"},
		{"/attach <file>", "include a file with your next message"},
		{"/clear", "start a fresh conversation"},
		{"/save", "save the conversation now"},
		{"/search <query>", "search saved conversations"},
		{"/history [query]", "list recent conversations"},
		{"/status", "show session status"},
		{"/help", "show this help"},
		{"/quit", "leave (also: exit, Ctrl+D)"},
	}
	fmt.Println()
	for _, h := range help {
		fmt.Printf("  %s %s\n", InfoStyle.Render(fmt.Sprintf("%-18s", h[0])), h[1])
	}
	fmt.Println()
}

func (cs *chatSession) printExitSummary() {
	if cs.args.Quiet {
		return
	}
	turns := cs.sess.TranscriptLen()
	if turns == 0 {
		fmt.Println(DimStyle.Render("Bye."))
		return
	}
	var tokens int
	for _, t := range cs.sess.Transcript() {
		tokens += t.TokenCount
	}
	fmt.Println(DimStyle.Render(fmt.Sprintf("Bye. %d turns, %d tokens, %s",
		turns, tokens, formatDurationShort(time.Since(cs.startedAt)))))
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

// buildBackend constructs the backend client from config plus flag
// overrides.
func buildBackend(args Args, cfg *config.Config) backend.Backend {
	url := cfg.Backend.URL
	if args.URL != "" {
		url = args.URL
	}
	return backend.NewRemoteWithConfig(&backend.RemoteConfig{
		BaseURL:           url,
		Timeout:           time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	})
}

// checkBackend verifies the server is reachable before starting, so
// connection problems surface as one clear error instead of a failed
// first send.
func checkBackend(be backend.Backend) error {
	hc, ok := be.(backend.HealthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return hc.CheckRunning(ctx)
}

// sessionConfig assembles session settings from config defaults and flag
// overrides.
func sessionConfig(args Args, cfg *config.Config) (session.Config, error) {
	roleID := cfg.Chat.Role
	if args.Role != "" {
		roleID = args.Role
	}

	var r role.Role
	if roleID == "" {
		r = role.Default()
	} else {
		var err error
		r, err = role.ByID(roleID)
		if err != nil {
			return session.Config{}, &NotFoundError{Resource: "role", ID: roleID}
		}
	}

	modelID := cfg.Chat.Model
	if args.Model != "" {
		modelID = args.Model
	}

	return session.Config{
		Role:           r,
		Model:          modelID,
		RevealThinking: cfg.Chat.RevealThinking || args.Reveal,
		ThinkMarker:    cfg.Chat.ThinkMarker,
		Params:         cfg.SamplingParams(),
	}, nil
}

// openStore opens conversation storage per config. When encryption is
// enabled but the key is missing, the store is still returned for
// plaintext access along with store.ErrNoKey so callers decide whether
// to warn or degrade.
func openStore(cfg *config.Config) (*store.Store, error) {
	dir, err := cfg.HistoryDir()
	if err != nil {
		return nil, err
	}
	st, err := store.NewStoreWithDir(dir)
	if err != nil {
		return nil, err
	}
	st.MaxConversations = cfg.History.MaxConversations

	if cfg.History.Encrypt {
		crypter, err := store.FromEnv(dir)
		if err != nil {
			return st, err
		}
		st.Crypter = crypter
	}
	return st, nil
}

// relayReply prints the assistant reply as it streams. Session updates
// arrive on a lossy channel, so rather than printing update payloads it
// re-reads the transcript on every wakeup and emits whatever text has
// not been printed yet. The flush after completion is guaranteed whole
// because the session finalizes the transcript before resolving.
func relayReply(sess *session.Session, done <-chan error, w io.Writer) (string, error) {
	updates := sess.Updates()
	printed := 0
	var current string

	flush := func() {
		turns := sess.Transcript()
		if len(turns) == 0 {
			return
		}
		last := turns[len(turns)-1]
		if last.Author != model.AuthorAssistant {
			return
		}
		current = last.Text
		if printed < len(current) {
			fmt.Fprint(w, current[printed:])
			printed = len(current)
		}
	}

	for {
		select {
		case <-updates:
			flush()
		case err := <-done:
			flush()
			return current, err
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
