// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/store"
)

// =============================================================================
// ARGUMENT PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name: "subcommand only",
			args: []string{"show"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Subcommand() != "show" {
					t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), "show")
				}
			},
		},
		{
			name: "flag with value",
			args: []string{"list", "--limit", "50"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("limit") != "50" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "50")
				}
				if p.PositionalCount() != 1 {
					t.Errorf("PositionalCount() = %d, want 1", p.PositionalCount())
				}
			},
		},
		{
			name: "flag with equals",
			args: []string{"export", "--format=json"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "json" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "json")
				}
			},
		},
		{
			name: "bare flag before another flag",
			args: []string{"search", "--reindex", "--limit", "5"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("reindex") {
					t.Error("BoolFlag(reindex) = false, want true")
				}
				if p.Flag("limit") != "5" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "5")
				}
			},
		},
		{
			name:  "declared bool does not consume the next token",
			args:  []string{"--reindex", "dead", "letter"},
			bools: []string{"reindex"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("reindex") {
					t.Error("BoolFlag(reindex) = false, want true")
				}
				got := strings.Join(p.PositionalFrom(0), " ")
				if got != "dead letter" {
					t.Errorf("positionals = %q, want %q", got, "dead letter")
				}
			},
		},
		{
			name: "undeclared flag consumes the next token",
			args: []string{"--author", "user", "query"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("author") != "user" {
					t.Errorf("Flag(author) = %q, want %q", p.Flag("author"), "user")
				}
				if p.Positional(0) != "query" {
					t.Errorf("Positional(0) = %q, want %q", p.Positional(0), "query")
				}
			},
		},
		{
			name: "positions preserved around flags",
			args: []string{"show", "--json", "3"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(0) != "show" {
					t.Errorf("Positional(0) = %q", p.Positional(0))
				}
				// --json is last seen before "3"; undeclared flags grab it.
				if p.Flag("json") != "3" {
					t.Errorf("Flag(json) = %q, want %q", p.Flag("json"), "3")
				}
			},
		},
		{
			name: "empty args",
			args: []string{},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Subcommand() != "" {
					t.Errorf("Subcommand() = %q, want empty", p.Subcommand())
				}
				if p.PositionalCount() != 0 {
					t.Errorf("PositionalCount() = %d, want 0", p.PositionalCount())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			tt.validate(t, p)
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name string
		args []string
		flag string
		def  int
		want int
	}{
		{"present", []string{"--limit", "50"}, "limit", 20, 50},
		{"absent", []string{}, "limit", 20, 20},
		{"malformed", []string{"--limit", "many"}, "limit", 20, 20},
		{"equals form", []string{"--limit=7"}, "limit", 20, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			if got := p.FlagIntOrDefault(tt.flag, tt.def); got != tt.want {
				t.Errorf("FlagIntOrDefault(%q, %d) = %d, want %d", tt.flag, tt.def, got, tt.want)
			}
		})
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	p := NewArgParser([]string{"--out", "file.md", "1"})
	if !p.HasFlag("out") {
		t.Error("HasFlag(out) = false, want true")
	}
	if p.HasFlag("format") {
		t.Error("HasFlag(format) = true, want false")
	}
}

func TestParseBoolString(t *testing.T) {
	trueValues := []string{"true", "1", "yes", "on", "y", "YES", "On"}
	for _, v := range trueValues {
		got, err := ParseBoolString(v)
		if err != nil || !got {
			t.Errorf("ParseBoolString(%q) = %v, %v; want true, nil", v, got, err)
		}
	}

	falseValues := []string{"false", "0", "no", "off", "n", "NO", "Off"}
	for _, v := range falseValues {
		got, err := ParseBoolString(v)
		if err != nil || got {
			t.Errorf("ParseBoolString(%q) = %v, %v; want false, nil", v, got, err)
		}
	}

	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) expected error, got nil")
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"20", 20, false},
		{" 5 ", 5, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"lots", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.value, "limit")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

// =============================================================================
// COMMAND-LINE PARSING TESTS
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{
			name:    "no arguments defaults to chat",
			argv:    []string{},
			wantCmd: CmdChat,
		},
		{
			name:    "global flags without command default to chat",
			argv:    []string{"--reveal", "-m", "qwen2.5:7b"},
			wantCmd: CmdChat,
			validate: func(t *testing.T, a Args) {
				if !a.Reveal {
					t.Error("Reveal = false, want true")
				}
				if a.Model != "qwen2.5:7b" {
					t.Errorf("Model = %q, want %q", a.Model, "qwen2.5:7b")
				}
			},
		},
		{
			name:    "ask joins positionals into the query",
			argv:    []string{"ask", "why", "is", "the", "sky", "blue"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "why is the sky blue" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{
			name:    "ask with file flag",
			argv:    []string{"ask", "-f", "main.go", "review", "this"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.File != "main.go" {
					t.Errorf("File = %q, want %q", a.File, "main.go")
				}
				if a.Query != "review this" {
					t.Errorf("Query = %q, want %q", a.Query, "review this")
				}
			},
		},
		{
			name:    "global flags after the command",
			argv:    []string{"ask", "--model", "llama3.2:3b", "hello"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Model != "llama3.2:3b" {
					t.Errorf("Model = %q", a.Model)
				}
				if a.Query != "hello" {
					t.Errorf("Query = %q, want %q", a.Query, "hello")
				}
			},
		},
		{
			name:    "equals form for global flags",
			argv:    []string{"--model=deepseek-r1:7b", "status"},
			wantCmd: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if a.Model != "deepseek-r1:7b" {
					t.Errorf("Model = %q", a.Model)
				}
			},
		},
		{
			name:    "history search with options",
			argv:    []string{"history", "search", "dead", "letter", "--limit", "5", "--author", "assistant"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "search" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
				if got := strings.Join(a.Rest, " "); got != "dead letter" {
					t.Errorf("Rest = %q, want %q", got, "dead letter")
				}
				if a.Limit != 5 {
					t.Errorf("Limit = %d, want 5", a.Limit)
				}
				if a.Author != "assistant" {
					t.Errorf("Author = %q, want %q", a.Author, "assistant")
				}
			},
		},
		{
			name:    "history title search keeps query intact",
			argv:    []string{"history", "search", "--titles", "rate", "limiter"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if !a.Titles {
					t.Error("Titles = false, want true")
				}
				if got := strings.Join(a.Rest, " "); got != "rate limiter" {
					t.Errorf("Rest = %q, want %q", got, "rate limiter")
				}
			},
		},
		{
			name:    "history without subcommand",
			argv:    []string{"history"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "" {
					t.Errorf("Subcommand = %q, want empty", a.Subcommand)
				}
				if a.Limit != DefaultHistoryLimit {
					t.Errorf("Limit = %d, want %d", a.Limit, DefaultHistoryLimit)
				}
			},
		},
		{
			name:    "history export with format and out",
			argv:    []string{"history", "export", "2", "--format", "json", "--out", "conv.json"},
			wantCmd: CmdHistory,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "export" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
				if len(a.Rest) != 1 || a.Rest[0] != "2" {
					t.Errorf("Rest = %v, want [2]", a.Rest)
				}
				if a.Format != "json" || a.Out != "conv.json" {
					t.Errorf("Format = %q, Out = %q", a.Format, a.Out)
				}
			},
		},
		{
			name:    "config set keeps key and value ordered",
			argv:    []string{"config", "set", "chat.model", "llama3.2:3b"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
				want := []string{"chat.model", "llama3.2:3b"}
				if len(a.Rest) != 2 || a.Rest[0] != want[0] || a.Rest[1] != want[1] {
					t.Errorf("Rest = %v, want %v", a.Rest, want)
				}
			},
		},
		{
			name:    "version flag short-circuits",
			argv:    []string{"--version"},
			wantCmd: CmdVersion,
		},
		{
			name:    "version command",
			argv:    []string{"version"},
			wantCmd: CmdVersion,
		},
		{
			name:    "help flag",
			argv:    []string{"-h"},
			wantCmd: CmdHelp,
		},
		{
			name:    "unknown command",
			argv:    []string{"histroy"},
			wantCmd: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "histroy" {
					t.Errorf("Subcommand = %q", a.Subcommand)
				}
			},
		},
		{
			name:    "json and quiet combine with a command",
			argv:    []string{"--json", "status", "-q"},
			wantCmd: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if !a.JSON || !a.Quiet {
					t.Errorf("JSON = %v, Quiet = %v, want both true", a.JSON, a.Quiet)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Fatalf("ParseArgs(%v) command = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestParse_OsArgs(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"parley", "ask", "--model", "qwen2.5:7b", "hello", "there"}
	cmd, args := Parse()
	if cmd != CmdAsk {
		t.Fatalf("Parse() command = %v, want CmdAsk", cmd)
	}
	if args.Model != "qwen2.5:7b" {
		t.Errorf("Model = %q", args.Model)
	}
	if args.Query != "hello there" {
		t.Errorf("Query = %q", args.Query)
	}

	os.Args = []string{"parley"}
	cmd, _ = Parse()
	if cmd != CmdChat {
		t.Fatalf("Parse() with no args = %v, want CmdChat", cmd)
	}
}

// =============================================================================
// SUGGESTION TESTS
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hitory", "history"},
		{"histroy", "history"},
		{"chta", "chat"},
		{"modles", "models"},
		{"statsu", "status"},
		{"confg", "config"},
		{"hepl", "help"},
		{"ask", ""},          // exact match, nothing to suggest
		{"x", ""},            // too short
		{"zzzzzz", ""},       // nothing close
		{"kubernetes", ""},   // nothing close even with wide tolerance
	}

	for _, tt := range tests {
		if got := SuggestCommand(tt.input); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"chat", "chat", 0},
		{"chat", "chta", 2},
		{"history", "histroy", 2},
		{"ask", "", 3},
		{"roles", "role", 1},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	badConfig := config.Default()
	badConfig.Sampling.Temperature = 99

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation error", ErrMissingArgument("question", "parley ask ..."), ExitUsageError},
		{"not found error", &NotFoundError{Resource: "role", ID: "pirate"}, ExitNotFoundError},
		{"store not found", fmt.Errorf("loading: %w", store.ErrNotFound), ExitNotFoundError},
		{"model not found", backend.ErrModelNotFound, ExitNotFoundError},
		{"backend unavailable", backend.ErrUnavailable, ExitBackendError},
		{"protocol error", backend.ErrProtocol, ExitBackendError},
		{"config validation", badConfig.Validate(), ExitConfigError},
		{"config parse message", errors.New("cannot parse config file"), ExitConfigError},
		{"generic", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRunUnknown_SuggestsClosestCommand(t *testing.T) {
	err := RunUnknown(Args{Subcommand: "histroy"})
	if err == nil {
		t.Fatal("RunUnknown returned nil")
	}
	if GetExitCode(err) != ExitUsageError {
		t.Errorf("exit code = %d, want %d", GetExitCode(err), ExitUsageError)
	}
	if !strings.Contains(err.Error(), "history") {
		t.Errorf("error %q does not mention the suggestion", err.Error())
	}
}

// =============================================================================
// SLASH COMMAND SPLITTING
// =============================================================================

func TestSplitSlashCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantCmd  string
		wantRest string
	}{
		{"/help", "/help", ""},
		{"/role coder", "/role", "coder"},
		{"/search dead letter queue", "/search", "dead letter queue"},
		{"/attach  notes with  spaces.txt", "/attach", "notes with  spaces.txt"},
		{"/REVEAL on", "/reveal", "on"},
		{"  /quit  ", "/quit", ""},
	}

	for _, tt := range tests {
		cmd, rest := splitSlashCommand(tt.input)
		if cmd != tt.wantCmd || rest != tt.wantRest {
			t.Errorf("splitSlashCommand(%q) = (%q, %q), want (%q, %q)",
				tt.input, cmd, rest, tt.wantCmd, tt.wantRest)
		}
	}
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero time", time.Time{}, "never"},
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-49 * time.Hour), "2d ago"},
		{"old dates use the calendar", now.Add(-60 * 24 * time.Hour), "Apr 16, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAgeAt(tt.t, now); got != tt.want {
				t.Errorf("formatAgeAt(%v) = %q, want %q", tt.t, got, tt.want)
			}
		})
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{850 * time.Millisecond, "850ms"},
		{12300 * time.Millisecond, "12.3s"},
		{125 * time.Second, "2m05s"},
	}

	for _, tt := range tests {
		if got := formatDurationShort(tt.d); got != tt.want {
			t.Errorf("formatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{
			name:  "short line untouched",
			text:  "hello world",
			width: 40,
			want:  "hello world",
		},
		{
			name:  "wraps at word boundaries",
			text:  "the quick brown fox jumps over the lazy dog",
			width: 15,
			want:  "the quick brown\nfox jumps over\nthe lazy dog",
		},
		{
			name:  "long word kept intact",
			text:  "see https://example.com/a/very/long/path/indeed ok",
			width: 10,
			want:  "see\nhttps://example.com/a/very/long/path/indeed\nok",
		},
		{
			name:  "existing newlines preserved",
			text:  "one\ntwo",
			width: 40,
			want:  "one\ntwo",
		},
		{
			name:  "zero width untouched",
			text:  "anything at all",
			width: 0,
			want:  "anything at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("WrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestHighlightSnippet_PlainWhenColorsOff(t *testing.T) {
	ForceColorsEnabled(false)
	defer ResetColorDetection()

	in := "channels are how [goroutines] communicate"
	if got := highlightSnippet(in); got != in {
		t.Errorf("highlightSnippet with colors off changed the text: %q", got)
	}
}

func TestHighlightSnippet_StripsMarkersWhenColorsOn(t *testing.T) {
	ForceColorsEnabled(true)
	defer ResetColorDetection()

	got := highlightSnippet("about [goroutines] here")
	if strings.Contains(got, "[goroutines]") {
		t.Errorf("markers were not consumed: %q", got)
	}
	if !strings.Contains(got, "goroutines") {
		t.Errorf("matched term missing from %q", got)
	}
}

// =============================================================================
// FILE INPUT TESTS
// =============================================================================

func TestReadAttachment(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := readAttachment(path)
	if err != nil {
		t.Fatalf("readAttachment() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}

	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, bytes.Repeat([]byte("x"), maxPromptFileBytes+1), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readAttachment(big); err == nil {
		t.Error("oversized file did not error")
	}

	if _, err := readAttachment(dir); err == nil {
		t.Error("directory did not error")
	}

	if _, err := readAttachment(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("missing file did not error")
	}
}

func TestFormatFileForPrompt(t *testing.T) {
	out := formatFileForPrompt("main.go", []byte("package main"))
	if !strings.Contains(out, "--- File: main.go ---") {
		t.Errorf("missing opening frame: %q", out)
	}
	if !strings.Contains(out, "package main") {
		t.Errorf("missing content: %q", out)
	}
	if !strings.Contains(out, "--- End of main.go ---") {
		t.Errorf("missing closing frame: %q", out)
	}
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "conv.md")

	if err := writeExport(path, []byte("# Conversation")); err != nil {
		t.Fatalf("writeExport() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}
}

// =============================================================================
// CONVERSATION LOOKUP TESTS
// =============================================================================

func TestResolveConversation(t *testing.T) {
	st, err := store.NewStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	conv := &store.StoredConversation{
		RoleID: "chat",
		Model:  "llama3.2:3b",
		Turns: []store.StoredTurn{
			{Author: "user", Text: "what is a channel"},
			{Author: "assistant", Text: "a typed conduit"},
		},
	}
	id, err := st.Save(conv)
	if err != nil {
		t.Fatal(err)
	}

	byIndex, err := resolveConversation(st, "1")
	if err != nil {
		t.Fatalf("resolveConversation(1) error = %v", err)
	}
	if byIndex.ID != id {
		t.Errorf("by index id = %q, want %q", byIndex.ID, id)
	}

	byID, err := resolveConversation(st, id)
	if err != nil {
		t.Fatalf("resolveConversation(id) error = %v", err)
	}
	if byID.ID != id {
		t.Errorf("by id = %q, want %q", byID.ID, id)
	}

	if _, err := resolveConversation(st, ""); err == nil {
		t.Error("empty ref did not error")
	}
	if _, err := resolveConversation(st, "0"); err == nil {
		t.Error("index 0 did not error; numbering starts at 1")
	}

	gotID, err := resolveConversationID(st, "1")
	if err != nil || gotID != id {
		t.Errorf("resolveConversationID(1) = %q, %v; want %q, nil", gotID, err, id)
	}
	if _, err := resolveConversationID(st, "99"); err == nil {
		t.Error("out of range index did not error")
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser(b *testing.B) {
	args := []string{"search", "dead", "letter", "--limit", "5", "--author", "user", "--reindex"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewArgParser(args, "reindex")
	}
}

func BenchmarkSuggestCommand(b *testing.B) {
	for i := 0; i < b.N; i++ {
		SuggestCommand("histroy")
	}
}
