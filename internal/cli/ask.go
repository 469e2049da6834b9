// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/familyai/murabbi-tui/internal/markdown"
)

// markdownRenderer renders replies for terminal display. nil when the
// renderer could not be built; output then falls back to plain text.
var markdownRenderer *glamour.TermRenderer

func init() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		markdownRenderer = r
	}
}

// displayReply prints a reply, markdown-rendered only when stdout is a
// terminal so piped output stays plain.
func displayReply(text string) {
	if IsStdoutTTY() && markdownRenderer != nil {
		if rendered, err := markdownRenderer.Render(text); err == nil {
			fmt.Print(rendered)
			return
		}
	}
	fmt.Println(text)
}

// HandleAsk sends a single question and prints the reply. The exchange is
// recorded on the backend like any other, so it shows up in the TUI and
// in `murabbi threads` afterwards.
func HandleAsk(args Args) int {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: murabbi ask \"question\"")
		return 1
	}

	rt, err := NewRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Timeout())
	defer cancel()

	resp, err := rt.Ctrl.Send(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if args.JSON {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	displayReply(markdown.StripNeedsHuman(resp.Reply))
	if resp.NeedsHuman {
		fmt.Fprintln(os.Stderr, "\nnote: a human specialist should review this topic")
	}
	if len(resp.Context) > 0 {
		fmt.Fprintf(os.Stderr, "(drawn from %d guidance notes)\n", len(resp.Context))
	}
	return 0
}
