// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to standalone files.
//
// The HTML exporter produces a self-contained page with embedded CSS.
// Assistant replies go through the markdown renderer, so the exported page
// shows the same structure the backend authored: headings, lists, links,
// and blockquotes, with the needs_human tag stripped.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/familyai/murabbi-tui/internal/markdown"
	"github.com/familyai/murabbi-tui/internal/session"
)

// Options controls the exported page.
type Options struct {
	// Title is the page title; falls back to the thread id.
	Title string
	// Theme is "light" or "dark".
	Theme string
	// IncludeMetadata adds the header block with thread id and date.
	IncludeMetadata bool
}

// DefaultOptions returns the options used when nil is passed.
func DefaultOptions() *Options {
	return &Options{
		Theme:           "light",
		IncludeMetadata: true,
	}
}

// HTMLExporter exports transcripts to HTML with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates an exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Theme != "dark" {
		opts.Theme = "light"
	}
	return &HTMLExporter{options: opts}
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string { return ".html" }

// MimeType returns the HTML MIME type.
func (e *HTMLExporter) MimeType() string { return "text/html" }

// Export renders the transcript of one thread.
func (e *HTMLExporter) Export(threadID string, msgs []session.Message) ([]byte, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("transcript is empty")
	}

	title := e.options.Title
	if title == "" {
		title = threadID
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"ar\" dir=\"auto\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", markdown.EscapeHTML(title)))
	sb.WriteString("    <meta name=\"generator\" content=\"murabbi-tui\">\n")
	sb.WriteString(e.css())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString("        <header class=\"header\">\n")
		sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", markdown.EscapeHTML(title)))
		sb.WriteString("            <div class=\"metadata\">\n")
		sb.WriteString(fmt.Sprintf("                <span><strong>Thread:</strong> %s</span>\n", markdown.EscapeHTML(threadID)))
		sb.WriteString(fmt.Sprintf("                <span><strong>Messages:</strong> %d</span>\n", len(msgs)))
		sb.WriteString(fmt.Sprintf("                <span><strong>Exported:</strong> %s</span>\n", time.Now().Format("2006-01-02 15:04")))
		sb.WriteString("            </div>\n")
		sb.WriteString("        </header>\n")
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range msgs {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

func (e *HTMLExporter) renderMessage(msg session.Message) string {
	var sb strings.Builder

	if msg.Role == session.RoleUser {
		sb.WriteString("            <div class=\"message user\" dir=\"auto\">\n")
		sb.WriteString("                <div class=\"role\">Parent</div>\n")
		sb.WriteString("                <div class=\"body\"><p>")
		sb.WriteString(markdown.EscapeHTML(msg.Text))
		sb.WriteString("</p></div>\n")
		sb.WriteString("            </div>\n")
		return sb.String()
	}

	sb.WriteString("            <div class=\"message assistant\" dir=\"auto\">\n")
	sb.WriteString("                <div class=\"role\">Murabbi</div>\n")
	sb.WriteString("                <div class=\"body\">")
	sb.WriteString(markdown.Render(msg.Text))
	sb.WriteString("</div>\n")

	needsHuman := msg.NeedsHuman
	if !needsHuman {
		if v, present := markdown.TrailingNeedsHuman(msg.Text); present {
			needsHuman = v
		}
	}
	if needsHuman {
		sb.WriteString("                <div class=\"needs-human\">A human specialist should review this exchange.</div>\n")
	}

	sb.WriteString("            </div>\n")
	return sb.String()
}

func (e *HTMLExporter) css() string {
	return `    <style>
        body { font-family: system-ui, sans-serif; margin: 0; }
        .light-theme { background: #f8fafc; color: #1f2937; }
        .dark-theme { background: #1e1e2e; color: #cdd6f4; }
        .container { max-width: 760px; margin: 0 auto; padding: 2rem 1rem; }
        .header h1 { margin: 0 0 0.5rem; }
        .metadata span { margin-inline-end: 1.5rem; font-size: 0.85rem; opacity: 0.75; }
        .message { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 0.75rem; }
        .message .role { font-size: 0.75rem; font-weight: 700; opacity: 0.6; margin-bottom: 0.25rem; }
        .message.user { background: #dbeafe; }
        .dark-theme .message.user { background: #1d4ed8; color: #e0f2fe; }
        .message.assistant { background: #ccfbf1; }
        .dark-theme .message.assistant { background: #134e4a; color: #ccfbf1; }
        .needs-human { margin-top: 0.5rem; font-weight: 700; color: #b45309; }
        blockquote { border-inline-start: 3px solid #94a3b8; margin: 0.5rem 0; padding-inline-start: 0.75rem; }
        code { background: rgba(148, 163, 184, 0.25); padding: 0.1rem 0.3rem; border-radius: 0.25rem; }
    </style>
`
}
