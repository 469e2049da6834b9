// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/markdown"
	"github.com/familyai/murabbi-tui/internal/session"
	"github.com/familyai/murabbi-tui/internal/ui/components"
	"github.com/familyai/murabbi-tui/internal/ui/styles"
	"github.com/familyai/murabbi-tui/internal/util"
)

// View renders the whole screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	main := m.renderMain()
	if m.showLogin {
		main = m.renderLogin()
	}

	row := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	b.WriteString(row)
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := "murabbi - family coaching"
	auth := "anonymous"
	if m.loggedIn {
		auth = "household"
	}
	left := styles.Header.Render(title)
	right := styles.ThreadMeta.Render(auth)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	frame := styles.Sidebar
	if m.focus == focusThreads && !m.showLogin {
		frame = styles.SidebarFocused
	}

	var rows []string
	header := "Conversations"
	if m.loadingThreads {
		header = m.spin.View() + " Conversations"
	}
	rows = append(rows, styles.Header.Render(header))

	if banner := m.banners.View(components.RegionThreads); banner != "" {
		rows = append(rows, banner)
	}

	if len(m.threads) == 0 && !m.loadingThreads {
		rows = append(rows, styles.ThreadMeta.Render("no conversations yet"))
		rows = append(rows, styles.ThreadMeta.Render("ctrl+n starts one"))
	}

	active := m.engine.Active()
	for i, t := range m.threads {
		title := t.Title
		if title == "" {
			title = t.ThreadID
		}
		title = util.TruncateWidth(util.CollapseLine(title), sidebarWidth-4)

		style := styles.ThreadItem
		if i == m.cursor && m.focus == focusThreads {
			style = styles.ThreadItemActive
		} else if t.ThreadID == active {
			style = styles.ThreadItemActive
		}
		rows = append(rows, style.Render(title))
		rows = append(rows, styles.ThreadMeta.Render(threadMetaLine(t)))
	}

	body := strings.Join(rows, "\n")
	return frame.Width(sidebarWidth).Height(m.viewport.Height + 8).Render(body)
}

func threadMetaLine(t api.ThreadSummary) string {
	lang := "msa"
	if t.Lang == api.LanguageJordanian {
		lang = "jordanian"
	}
	persona := "neutral coach"
	if t.Persona == api.PersonaYazan {
		persona = "yazan"
	}
	return lang + " · " + persona
}

// =============================================================================
// MAIN COLUMN
// =============================================================================

func (m *Model) renderMain() string {
	var rows []string

	if banner := m.banners.View(components.RegionTranscript); banner != "" {
		rows = append(rows, banner)
	}
	if m.loadingHistory {
		rows = append(rows, styles.ThreadMeta.Render(m.spin.View()+" loading conversation..."))
	}
	rows = append(rows, m.viewport.View())

	if banner := m.banners.View(components.RegionAuth); banner != "" {
		rows = append(rows, banner)
	}
	if banner := m.banners.View(components.RegionComposer); banner != "" {
		rows = append(rows, banner)
	}

	rows = append(rows, m.renderChips())
	rows = append(rows, styles.Disclaimer.Render(m.disclaimer()))

	inputFrame := styles.InputBox
	if m.focus == focusComposer && !m.showLogin {
		inputFrame = styles.InputBoxFocused
	}
	composer := m.composer.View()
	if m.sending {
		composer = m.spin.View() + " sending..."
	}
	rows = append(rows, inputFrame.Width(m.viewport.Width).Render(composer))

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderChips() string {
	persona := "neutral coach"
	if m.ctrl.Persona() == api.PersonaYazan {
		persona = "yazan"
	}
	lang := "msa"
	if m.ctrl.Language() == api.LanguageJordanian {
		lang = "jordanian"
	}
	return styles.Chip.Render(persona) + " " + styles.Chip.Render(lang) +
		" " + styles.ThreadMeta.Render("ctrl+p persona · ctrl+g dialect")
}

// disclaimer mirrors the persona guidance the assistant operates under.
func (m *Model) disclaimer() string {
	if m.ctrl.Persona() == api.PersonaYazan {
		return "Yazan is your calm friend; when a topic needs a human specialist he says so right away."
	}
	return "The neutral coach gives practical guidance and refers sensitive topics to a human specialist."
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	msgs := m.ctrl.Messages()
	if len(msgs) == 0 {
		return styles.ThreadMeta.Render("Send a message to start.")
	}

	width := m.bubbleWidth()
	var blocks []string
	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n")
}

func (m *Model) renderMessage(msg session.Message, width int) string {
	if msg.Role == session.RoleUser {
		return styles.UserMessage.Width(width).Render(msg.Text)
	}

	text := markdown.StripNeedsHuman(msg.Text)
	parts := []string{styles.AssistantMessage.Width(width).Render(m.renderMarkdown(text))}

	needsHuman := msg.NeedsHuman
	if !needsHuman {
		if v, present := markdown.TrailingNeedsHuman(msg.Text); present {
			needsHuman = v
		}
	}
	if needsHuman {
		parts = append(parts, styles.NeedsHuman.Render("⚠ a human specialist should look at this"))
	}

	if m.cfg.UI.ShowSafetyReasons && len(msg.SafetyReasons) > 0 {
		parts = append(parts, styles.ContextNote.Render("safety: "+strings.Join(msg.SafetyReasons, ", ")))
	}
	if len(msg.Context) > 0 {
		parts = append(parts, styles.ContextNote.Render(fmt.Sprintf("drawn from %d guidance notes", len(msg.Context))))
	}

	return strings.Join(parts, "\n")
}

// renderMarkdown renders an assistant reply's markdown for the terminal.
// Returns the text unchanged when the renderer is unavailable or fails.
func (m *Model) renderMarkdown(text string) string {
	if m.mdRenderer == nil {
		return text
	}
	rendered, err := m.mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

// =============================================================================
// LOGIN OVERLAY
// =============================================================================

func (m *Model) renderLogin() string {
	var rows []string
	rows = append(rows, styles.Header.Render("Household login"))
	rows = append(rows, "")
	rows = append(rows, m.loginID.View())
	rows = append(rows, m.loginSecret.View())
	rows = append(rows, "")
	if m.authPending {
		rows = append(rows, m.spin.View()+" signing in...")
	} else {
		rows = append(rows, styles.ThreadMeta.Render("enter to sign in · esc to cancel"))
	}
	if banner := m.banners.View(components.RegionAuth); banner != "" {
		rows = append(rows, banner)
	}

	box := styles.OverlayBox.Width(m.viewport.Width - 4).Render(strings.Join(rows, "\n"))
	return lipgloss.Place(m.viewport.Width, m.viewport.Height+8, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	hints := []string{
		"enter send",
		"ctrl+j newline",
		"tab panes",
		"ctrl+n new",
		"ctrl+r refresh",
	}
	if m.loggedIn {
		hints = append(hints, "ctrl+d logout")
	} else {
		hints = append(hints, "ctrl+l login")
	}
	hints = append(hints, "ctrl+c quit")
	return styles.StatusBar.Width(m.width).Render(strings.Join(hints, " · "))
}
