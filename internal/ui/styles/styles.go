// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the murabbi TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// PALETTE
// =============================================================================

// Teal - Primary accent, assistant messages, selections
var Teal = lipgloss.AdaptiveColor{Light: "#0D9488", Dark: "#2DD4BF"}

// Indigo - User highlights, focus markers
var Indigo = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}

// Rose - Errors, danger states
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, needs-human advisories
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Surface colors
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// Text colors
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// Message bubble colors
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"}
var UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}
var AssistantBubbleFg = lipgloss.AdaptiveColor{Light: "#115E59", Dark: "#CCFBF1"}
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#2DD4BF", Dark: "#0D9488"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Header is the top title bar.
	Header = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true).
		Padding(0, 1)

	// Sidebar frames the thread list.
	Sidebar = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	// SidebarFocused marks the thread list as the focused pane.
	SidebarFocused = Sidebar.
			BorderForeground(Teal)

	// ThreadItem is an unselected thread row.
	ThreadItem = lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1)

	// ThreadItemActive is the selected thread row.
	ThreadItemActive = lipgloss.NewStyle().
				Foreground(TextInverse).
				Background(Teal).
				Bold(true).
				Padding(0, 1)

	// ThreadMeta is the persona/language line under a thread title.
	ThreadMeta = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1)

	// UserMessage frames a message the user sent.
	UserMessage = lipgloss.NewStyle().
			Foreground(UserBubbleFg).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(UserBubbleBorder).
			Padding(0, 1)

	// AssistantMessage frames a reply.
	AssistantMessage = lipgloss.NewStyle().
				Foreground(AssistantBubbleFg).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(AssistantBubbleBorder).
				Padding(0, 1)

	// NeedsHuman is the advisory line under flagged replies.
	NeedsHuman = lipgloss.NewStyle().
			Foreground(Amber).
			Bold(true)

	// ContextNote lists the knowledge snippets a reply drew on.
	ContextNote = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true)

	// ErrorBanner renders a region error.
	ErrorBanner = lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true).
			Padding(0, 1)

	// InfoBanner renders a status notice.
	InfoBanner = lipgloss.NewStyle().
			Foreground(Emerald).
			Padding(0, 1)

	// Chip shows the active persona or language.
	Chip = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Indigo).
		Padding(0, 1)

	// Disclaimer is the persona guidance line above the input.
	Disclaimer = lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true).
			Padding(0, 1)

	// InputBox frames the message input.
	InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1)

	// InputBoxFocused marks the input as the focused pane.
	InputBoxFocused = InputBox.
			BorderForeground(Indigo)

	// StatusBar is the bottom key hint line.
	StatusBar = lipgloss.NewStyle().
			Foreground(TextMuted).
			Background(SurfaceDim).
			Padding(0, 1)

	// Overlay frames the login form.
	OverlayBox = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Indigo).
			Padding(1, 2)
)

// ApplyTheme forces the light or dark palette instead of relying on
// background detection, which fails on some terminals. "dark" is the
// default when the value is unrecognized.
func ApplyTheme(theme string) {
	renderer := lipgloss.DefaultRenderer()
	renderer.SetHasDarkBackground(theme != "light")

	// Monochrome terminals get plain output rather than mangled escapes.
	if termenv.ColorProfile() == termenv.Ascii {
		renderer.SetColorProfile(termenv.Ascii)
	}
}
