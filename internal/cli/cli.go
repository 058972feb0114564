// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command dispatch, global flag parsing, and usage text.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies the requested top-level operation.
type Command int

const (
	// CmdChat starts the interactive loop. It is the default when no
	// command token is given, so bare "parley" drops straight into chat.
	CmdChat Command = iota
	CmdAsk
	CmdRoles
	CmdModels
	CmdHistory
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// DefaultHistoryLimit caps list and search output unless --limit is given.
const DefaultHistoryLimit = 20

// Args carries parsed global flags and per-command options.
type Args struct {
	// Global flags.
	Model   string // --model, -m: model override for this run
	Role    string // --role, -r: role id override
	URL     string // --url: backend base URL override
	Reveal  bool   // --reveal: show reasoning segments
	Quiet   bool   // --quiet, -q: suppress stats and status lines
	JSON    bool   // --json: machine-readable output
	NoSave  bool   // --no-save: skip saving the conversation
	Confirm bool   // --confirm: skip confirmation prompts

	// ask.
	Query string // question text from positional arguments
	File  string // --file, -f: file to include with the question

	// history and config.
	Subcommand string   // first positional after the command
	Rest       []string // positionals after the subcommand
	Limit      int      // --limit: max rows for list and search
	Format     string   // --format: export format (markdown or json)
	Out        string   // --out, -o: export destination file
	Author     string   // --author: search filter (user or assistant)
	Titles     bool     // --titles: match conversation titles only
	Reindex    bool     // --reindex: force a full reindex before searching

	// Raw is the argument vector as received, for error reporting.
	Raw []string
}

// =============================================================================
// PARSING
// =============================================================================

// Parse reads os.Args and returns the requested command with its options.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument vector. Global flags may appear before or
// after the command token; unrecognized flags are handed to the command's
// own parser.
func ParseArgs(argv []string) (Command, Args) {
	args := Args{
		Limit: DefaultHistoryLimit,
		Raw:   argv,
	}

	rest := make([]string, 0, len(argv))
	for i := 0; i < len(argv); i++ {
		name, inline, hasInline := cutFlag(argv[i])

		// takeValue favors the "=value" form, then the next token.
		takeValue := func() string {
			if hasInline {
				return inline
			}
			if i+1 < len(argv) {
				i++
				return argv[i]
			}
			return ""
		}

		switch name {
		case "--model", "-m":
			args.Model = takeValue()
		case "--role", "-r":
			args.Role = takeValue()
		case "--url":
			args.URL = takeValue()
		case "--reveal":
			args.Reveal = true
		case "--quiet", "-q":
			args.Quiet = true
		case "--json":
			args.JSON = true
		case "--no-save":
			args.NoSave = true
		case "--confirm", "--yes", "-y":
			args.Confirm = true
		case "--version", "-V":
			return CmdVersion, args
		case "--help", "-h":
			return CmdHelp, args
		default:
			rest = append(rest, argv[i])
		}
	}

	if len(rest) == 0 {
		return CmdChat, args
	}

	var cmd Command
	switch strings.ToLower(rest[0]) {
	case "chat":
		cmd = CmdChat
	case "ask":
		cmd = CmdAsk
	case "roles":
		cmd = CmdRoles
	case "models":
		cmd = CmdModels
	case "history":
		cmd = CmdHistory
	case "status":
		cmd = CmdStatus
	case "config":
		cmd = CmdConfig
	case "version":
		cmd = CmdVersion
	case "help":
		cmd = CmdHelp
	default:
		args.Subcommand = rest[0]
		return CmdUnknown, args
	}

	sub := rest[1:]
	switch cmd {
	case CmdAsk:
		parseAskArgs(&args, sub)
	case CmdHistory:
		parseHistoryArgs(&args, sub)
	case CmdConfig:
		parseConfigArgs(&args, sub)
	}
	return cmd, args
}

// cutFlag splits "--name=value" tokens. Short flags and non-flag tokens
// pass through unchanged.
func cutFlag(tok string) (name, value string, hasValue bool) {
	if !strings.HasPrefix(tok, "--") {
		return tok, "", false
	}
	return strings.Cut(tok, "=")
}

func parseAskArgs(args *Args, sub []string) {
	p := NewArgParser(sub)
	if f := p.Flag("file"); f != "" {
		args.File = f
	} else if f := p.Flag("f"); f != "" {
		args.File = f
	}
	args.Query = strings.Join(p.PositionalFrom(0), " ")
}

func parseHistoryArgs(args *Args, sub []string) {
	p := NewArgParser(sub, "reindex", "titles")
	args.Subcommand = p.Positional(0)
	args.Rest = p.PositionalFrom(1)
	args.Limit = p.FlagIntOrDefault("limit", args.Limit)
	args.Format = p.Flag("format")
	if o := p.Flag("out"); o != "" {
		args.Out = o
	} else if o := p.Flag("o"); o != "" {
		args.Out = o
	}
	args.Author = p.Flag("author")
	args.Titles = p.BoolFlag("titles")
	args.Reindex = p.BoolFlag("reindex")
}

func parseConfigArgs(args *Args, sub []string) {
	p := NewArgParser(sub)
	args.Subcommand = p.Positional(0)
	args.Rest = p.PositionalFrom(1)
}

// =============================================================================
// HELP AND VERSION
// =============================================================================

const usageText = `parley - talk to a local language model from your terminal

Usage:
  parley [command] [flags]

Commands:
  chat              Interactive chat session (default)
  ask <question>    One-shot question, reply streams to stdout
  roles             List the available assistant roles
  models            List models installed on the backend
  history           Browse, search, and export saved conversations
  status            Show backend, role, and history status
  config            View and modify configuration
  version           Show version information
  help              Show this help

History subcommands:
  history [list]             List saved conversations
  history show <n|id>        Print one conversation
  history search <query>     Full-text search (--titles, --author, --reindex)
  history export <n|id>      Export as markdown or JSON (--format, --out)
  history delete <n|id>      Delete one conversation
  history clear              Delete all conversations
  history stats              Show storage and search index statistics

Config subcommands:
  config [show]              Display current configuration
  config get <key>           Print one value
  config set <key> <value>   Change a value
  config path                Show the config file location

Global flags:
  -m, --model NAME   Override the model for this run
  -r, --role ID      Start with a specific role (see: parley roles)
      --url URL      Backend server URL (default http://127.0.0.1:11434)
      --reveal       Show model reasoning instead of hiding it
  -q, --quiet        Suppress status lines and statistics
      --json         Machine-readable output where supported
      --no-save      Do not save the conversation on exit
      --confirm      Skip confirmation prompts for destructive actions
  -h, --help         Show help
  -V, --version      Show version

Examples:
  parley                                Start chatting with the default role
  parley -r coder                       Chat with the code assistant
  parley ask "Why is the sky blue?"     One-shot question
  parley ask -f main.go "Review this"   Include a file with the question
  parley history search "goroutines"    Search saved conversations
  parley config set chat.model llama3.2:3b
`

// RunHelp prints usage to stdout.
func RunHelp() {
	fmt.Print(usageText)
}

// ShowUsageHint prints the short pointer shown after usage errors.
func ShowUsageHint() {
	fmt.Fprintln(os.Stderr, "Run 'parley help' for usage.")
}

// BuildInfo carries version identifiers stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// RunVersion prints build information.
func RunVersion(args Args, build BuildInfo) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   build.Version,
			Commit:    build.Commit,
			BuildDate: build.Date,
			GoVersion: runtime.Version(),
		}).Print()
	}

	fmt.Printf("parley %s\n", build.Version)
	if !args.Quiet {
		fmt.Println(DimStyle.Render(fmt.Sprintf("commit %s, built %s, %s",
			build.Commit, build.Date, runtime.Version())))
	}
	return nil
}

// RunUnknown reports an unrecognized command, suggesting a close match
// when one exists.
func RunUnknown(args Args) error {
	msg := fmt.Sprintf("unknown command %q", args.Subcommand)
	if suggestion := SuggestCommand(args.Subcommand); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return &ValidationError{
		Field:   "command",
		Value:   args.Subcommand,
		Reason:  msg,
		Example: "parley help",
	}
}
