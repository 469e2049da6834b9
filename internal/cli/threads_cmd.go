// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// threads_cmd.go - Conversation listing command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/util"
)

// HandleThreads prints the conversations visible to this device or
// household.
func HandleThreads(args Args) int {
	rt, err := NewRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Timeout())
	defer cancel()

	res, err := rt.Engine.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if args.JSON {
		out, err := json.MarshalIndent(res.Threads, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if len(res.Threads) == 0 {
		fmt.Println("No conversations yet. Start one with: murabbi ask \"...\"")
		return 0
	}

	for _, t := range res.Threads {
		marker := " "
		if t.ThreadID == res.ActiveID {
			marker = "*"
		}
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s %-36s  %-9s %-9s  %s\n",
			marker, t.ThreadID, personaLabel(t.Persona), langLabel(t.Lang),
			util.TruncateWidth(util.CollapseLine(title), 48))
	}
	return 0
}

func personaLabel(p api.Persona) string {
	if p == api.PersonaYazan {
		return "yazan"
	}
	return "neutral"
}

func langLabel(l api.Language) string {
	if l == api.LanguageJordanian {
		return "jordanian"
	}
	return "msa"
}
