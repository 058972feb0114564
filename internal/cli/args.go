// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Token-level argument parsing shared by subcommands.

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARGUMENT PARSER
// =============================================================================

// ArgParser splits raw command-line tokens into flags and positional
// arguments. Flags may appear anywhere and accept "--name value" and
// "--name=value" forms. Flags declared boolean never consume the following
// token, so "--reveal explain goroutines" keeps the question intact.
type ArgParser struct {
	flags      map[string]string
	positional []string
	raw        []string
}

// NewArgParser parses tokens. boolFlags names the flags that take no value.
func NewArgParser(args []string, boolFlags ...string) *ArgParser {
	p := &ArgParser{
		flags: make(map[string]string),
		raw:   args,
	}

	isBool := make(map[string]bool, len(boolFlags))
	for _, name := range boolFlags {
		isBool[name] = true
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")

		// --name=value binds explicitly.
		if eq := strings.Index(name, "="); eq >= 0 {
			p.flags[name[:eq]] = name[eq+1:]
			continue
		}

		if isBool[name] {
			p.flags[name] = "true"
			continue
		}

		// --name value consumes the next token unless it looks like
		// another flag.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			p.flags[name] = args[i+1]
			i++
		} else {
			p.flags[name] = "true"
		}
	}

	return p
}

// Subcommand returns the first positional argument, or "" if none.
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of a flag, or "" if not set.
func (p *ArgParser) Flag(name string) string {
	return p.flags[name]
}

// FlagOrDefault returns the value of a flag, or def if not set.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v, ok := p.flags[name]; ok {
		return v
	}
	return def
}

// FlagInt parses a flag as an integer. The bool reports whether the flag
// was present and parsed cleanly.
func (p *ArgParser) FlagInt(name string) (int, bool) {
	v, ok := p.flags[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FlagIntOrDefault parses a flag as an integer, falling back to def when
// the flag is absent or malformed.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	if n, ok := p.FlagInt(name); ok {
		return n
	}
	return def
}

// BoolFlag reports whether a flag is set to a truthy value. Bare flags
// ("--json") count as true.
func (p *ArgParser) BoolFlag(name string) bool {
	switch strings.ToLower(p.flags[name]) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// HasFlag reports whether the flag appeared at all.
func (p *ArgParser) HasFlag(name string) bool {
	_, ok := p.flags[name]
	return ok
}

// Positional returns the i-th positional argument, or "" if out of range.
func (p *ArgParser) Positional(i int) string {
	if i < 0 || i >= len(p.positional) {
		return ""
	}
	return p.positional[i]
}

// PositionalFrom returns all positional arguments from index i on. The
// returned slice is never nil.
func (p *ArgParser) PositionalFrom(i int) []string {
	if i < 0 || i >= len(p.positional) {
		return []string{}
	}
	return p.positional[i:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// Raw returns the original token slice the parser was built from.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// =============================================================================
// VALUE PARSING HELPERS
// =============================================================================

// ParseBoolString interprets common yes/no spellings. Accepted true values
// are "true", "1", "yes", "on", "y"; false values are "false", "0", "no",
// "off", "n".
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "y":
		return true, nil
	case "false", "0", "no", "off", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q (use on or off)", s)
}

// ParseIntWithValidation parses a positive integer, naming the field in
// the error so callers can surface it directly.
func ParseIntWithValidation(value, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   value,
			Reason:  "must be a whole number",
			Example: fmt.Sprintf("--%s 20", field),
		}
	}
	if n <= 0 {
		return 0, &ValidationError{
			Field:   field,
			Value:   value,
			Reason:  "must be greater than zero",
			Example: fmt.Sprintf("--%s 20", field),
		}
	}
	return n, nil
}
