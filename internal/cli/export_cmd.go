// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - HTML transcript export command.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/familyai/murabbi-tui/internal/export"
	"github.com/familyai/murabbi-tui/internal/util"
)

// HandleExport writes one thread's transcript as a standalone HTML page.
func HandleExport(args Args) int {
	if args.ThreadID == "" {
		fmt.Fprintln(os.Stderr, "usage: murabbi export <thread-id> [--output FILE] [--theme light|dark]")
		return 1
	}

	rt, err := NewRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Timeout())
	defer cancel()

	if _, err := rt.Ctrl.LoadHistory(ctx, args.ThreadID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	msgs := rt.Ctrl.Messages()
	if len(msgs) == 0 {
		fmt.Fprintf(os.Stderr, "thread %s has no messages\n", args.ThreadID)
		return 1
	}

	title := args.ThreadID
	if res, err := rt.Engine.Refresh(ctx); err == nil {
		for _, t := range res.Threads {
			if t.ThreadID == args.ThreadID && t.Title != "" {
				title = util.CollapseLine(t.Title)
			}
		}
	}

	exporter := export.NewHTMLExporter(&export.Options{
		Title:           title,
		Theme:           args.Theme,
		IncludeMetadata: true,
	})
	page, err := exporter.Export(args.ThreadID, msgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if args.Output == "" {
		os.Stdout.Write(page)
		return 0
	}
	if err := util.AtomicWriteFile(args.Output, page, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("wrote %s (%d bytes)\n", args.Output, len(page))
	return 0
}
