// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders assistant replies into safe HTML fragments.
//
// Replies arrive as a constrained Markdown dialect, optionally terminated by
// a machine-readable "needs_human: true|false" tag that must never reach the
// rendered output. Rendering is a pure function: any input string produces a
// defined sequence of HTML block fragments, and every character of input is
// HTML-escaped before this package injects its own markup, so
// assistant-authored text cannot smuggle tags through.
package markdown

import (
	"regexp"
	"strings"
)

// =============================================================================
// SENTINEL TAG
// =============================================================================

// trailingNeedsHumanPattern matches a needs_human tag anchored at the very
// end of the reply: case-insensitive, optionally bold-wrapped, optionally
// preceded by a horizontal-rule line of dash-like characters. A tag in the
// middle of a document must not match.
var trailingNeedsHumanPattern = regexp.MustCompile(
	`(?i)(?:\r?\n)?(?:[-–—]{3,}\s*)?\*{0,2}needs_human:\*{0,2}\s*(true|false)\s*\*{0,2}\s*$`)

// StripNeedsHuman removes one trailing needs_human tag, if present, along
// with any trailing whitespace. Text without the tag is returned with
// trailing whitespace trimmed and nothing else changed.
func StripNeedsHuman(text string) string {
	clean := trailingNeedsHumanPattern.ReplaceAllString(text, "")
	return strings.TrimRight(clean, " \t\r\n")
}

// TrailingNeedsHuman reports whether the reply ends in a needs_human tag and
// the boolean it carries. The flag normally arrives out-of-band in the API
// response; this is the fallback for transcripts loaded from history where
// only the raw text survives.
func TrailingNeedsHuman(text string) (value, present bool) {
	m := trailingNeedsHumanPattern.FindStringSubmatch(text)
	if m == nil {
		return false, false
	}
	return strings.EqualFold(m[1], "true"), true
}

// =============================================================================
// ESCAPING
// =============================================================================

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the five characters that could open markup.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// =============================================================================
// INLINE FORMATTING
// =============================================================================

// Inline patterns run against already-escaped text, in a fixed order so the
// markup injected by an earlier pattern is not re-matched by a later one:
// code spans first (their content must stay literal), then links, bold, and
// finally single-asterisk italics.
var (
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	inlineLinkPattern = regexp.MustCompile(`\[(.+?)\]\((https?://[^\s)]+)\)`)
	inlineBoldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
	// After bold pairs are consumed, a single asterisk followed by
	// non-asterisk content cannot start inside a ** run.
	inlineItalicPattern = regexp.MustCompile(`\*([^*]+)\*`)
)

// renderInline escapes text and applies inline markup within one block.
func renderInline(text string) string {
	out := EscapeHTML(text)
	out = inlineCodePattern.ReplaceAllString(out, "<code>$1</code>")
	out = inlineLinkPattern.ReplaceAllString(out,
		`<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)
	out = inlineBoldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = inlineItalicPattern.ReplaceAllString(out, "<em>$1</em>")
	return out
}

// =============================================================================
// BLOCK PARSING
// =============================================================================

var (
	horizontalRulePattern = regexp.MustCompile(`^[-–—]{3,}\s*$`)
	headingPattern        = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemPattern       = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	blockquotePattern     = regexp.MustCompile(`^>\s?`)
)

// maxHeadingLevel flattens deep headings; the chat transcript only styles
// three levels.
const maxHeadingLevel = 3

// Blocks parses markdown into an ordered sequence of HTML block fragments.
//
// The scanner walks the input line by line keeping two pieces of state: an
// open paragraph buffer and an open-list flag. Blank lines flush both.
// Consecutive list items share one <ul>; blockquote lines are deliberately
// not merged, each produces its own <blockquote>. If the input produces no
// blocks at all the whole text is emitted as a single paragraph.
func Blocks(md string) []string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")

	var blocks []string
	var paragraph []string
	var listItems []string

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		blocks = append(blocks, "<p>"+renderInline(strings.Join(paragraph, " "))+"</p>")
		paragraph = nil
	}
	closeList := func() {
		if len(listItems) == 0 {
			return
		}
		blocks = append(blocks, "<ul>"+strings.Join(listItems, "")+"</ul>")
		listItems = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			flushParagraph()
			closeList()
			continue
		}

		if horizontalRulePattern.MatchString(trimmed) {
			flushParagraph()
			closeList()
			blocks = append(blocks, "<hr />")
			continue
		}

		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			closeList()
			level := len(m[1])
			if level > maxHeadingLevel {
				level = maxHeadingLevel
			}
			tag := "h" + string(rune('0'+level))
			blocks = append(blocks, "<"+tag+">"+renderInline(strings.TrimSpace(m[2]))+"</"+tag+">")
			continue
		}

		if m := listItemPattern.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			listItems = append(listItems, "<li>"+renderInline(strings.TrimSpace(m[1]))+"</li>")
			continue
		}

		if blockquotePattern.MatchString(trimmed) {
			flushParagraph()
			closeList()
			quoted := strings.TrimSpace(blockquotePattern.ReplaceAllString(trimmed, ""))
			blocks = append(blocks, "<blockquote>"+renderInline(quoted)+"</blockquote>")
			continue
		}

		closeList()
		paragraph = append(paragraph, trimmed)
	}

	flushParagraph()
	closeList()

	if len(blocks) == 0 {
		// Defensive fallback: the paragraph rule captures every non-blank
		// line, so this only fires for pure-whitespace input.
		return []string{"<p>" + renderInline(md) + "</p>"}
	}
	return blocks
}

// ToHTML renders markdown into one HTML string, the concatenation of Blocks.
func ToHTML(md string) string {
	return strings.Join(Blocks(md), "")
}

// Render strips the trailing needs_human tag and renders the remainder.
// This is the one call sites normally want for assistant replies.
func Render(reply string) string {
	return ToHTML(StripNeedsHuman(reply))
}
