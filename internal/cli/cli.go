// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for murabbi.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdThreads
	CmdExport
	CmdLogin
	CmdLogout
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Server   string // --server overrides the configured backend URL
	Persona  string // --persona neutral|yazan
	Language string // --language msa|jordanian
	JSON     bool   // machine-readable output where a command supports it

	// Command-specific
	Query      string // ask: the question text
	ThreadID   string // export: which thread to export
	Output     string // export: output file (default: stdout)
	Theme      string // export: light|dark page theme
	Household  string // login: household id
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `murabbi - parenting advice from the terminal

Murabbi is a terminal client for the family coaching backend. It keeps
anonymous conversations on this device and can claim them into a
household account after login.

Usage:
  murabbi                     Start the TUI (default)
  murabbi ask "question"      Ask one question and print the reply
    --persona neutral|yazan   Coaching persona
    --language msa|jordanian  Reply dialect
    --json                    Print the raw reply object
  murabbi threads             List conversations
    --json                    Print the raw thread list
  murabbi export <thread-id>  Export a conversation as HTML
    --output FILE             Write to a file instead of stdout
    --theme light|dark        Page theme (default: light)
  murabbi login <household>   Sign in to a household (prompts for the secret)
  murabbi logout              Forget the stored access token
  murabbi version             Show version information
  murabbi help                Show this help

Global flags:
  --server URL                Backend base URL (overrides config)

Configuration:
  ~/.murabbi/config.toml      Settings file
  MURABBI_SERVER_URL          Environment override for the backend URL
  MURABBI_PERSONA             Environment override for the persona
  MURABBI_LANGUAGE            Environment override for the dialect

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("murabbi version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Split out from Parse for tests.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	// No command defaults to the TUI.
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "ask":
		args.Query = strings.Join(positionals(remaining), " ")
		return CmdAsk, args

	case "threads", "list":
		return CmdThreads, args

	case "export":
		parseExportArgs(&args, remaining)
		return CmdExport, args

	case "login":
		if pos := positionals(remaining); len(pos) > 0 {
			args.Household = pos[0]
		}
		return CmdLogin, args

	case "logout":
		return CmdLogout, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		// Unknown commands fall through to help so a typo never starts
		// the TUI silently.
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts flags that apply to every command and returns
// the remaining arguments.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--server" && i+1 < len(argv):
			args.Server = argv[i+1]
			i += 2
		case strings.HasPrefix(arg, "--server="):
			args.Server = strings.TrimPrefix(arg, "--server=")
			i++
		case arg == "--persona" && i+1 < len(argv):
			args.Persona = argv[i+1]
			i += 2
		case strings.HasPrefix(arg, "--persona="):
			args.Persona = strings.TrimPrefix(arg, "--persona=")
			i++
		case arg == "--language" && i+1 < len(argv):
			args.Language = argv[i+1]
			i += 2
		case strings.HasPrefix(arg, "--language="):
			args.Language = strings.TrimPrefix(arg, "--language=")
			i++
		case arg == "--json":
			args.JSON = true
			i++
		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	return remaining, args
}

func parseExportArgs(args *Args, remaining []string) {
	i := 0
	for i < len(remaining) {
		arg := remaining[i]
		switch {
		case arg == "--output" || arg == "-o":
			if i+1 < len(remaining) {
				args.Output = remaining[i+1]
				i += 2
				continue
			}
			i++
		case strings.HasPrefix(arg, "--output="):
			args.Output = strings.TrimPrefix(arg, "--output=")
			i++
		case arg == "--theme":
			if i+1 < len(remaining) {
				args.Theme = remaining[i+1]
				i += 2
				continue
			}
			i++
		case strings.HasPrefix(arg, "--theme="):
			args.Theme = strings.TrimPrefix(arg, "--theme=")
			i++
		case !strings.HasPrefix(arg, "-"):
			if args.ThreadID == "" {
				args.ThreadID = arg
			}
			i++
		default:
			i++
		}
	}
}

// positionals filters out anything that looks like a flag.
func positionals(argv []string) []string {
	var out []string
	for _, a := range argv {
		if !strings.HasPrefix(a, "-") {
			out = append(out, a)
		}
	}
	return out
}
