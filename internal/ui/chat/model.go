// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI screen: a thread sidebar, the
// transcript, and the message composer, plus the login overlay.
//
// The model follows the standard Elm shape. All network work happens in
// commands; Update is the only writer of model state. The thread engine and
// session controller hold the synchronized chat state, so this package is
// mostly translation between their results and the screen.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/config"
	"github.com/familyai/murabbi-tui/internal/identity"
	"github.com/familyai/murabbi-tui/internal/session"
	"github.com/familyai/murabbi-tui/internal/thread"
	"github.com/familyai/murabbi-tui/internal/ui/components"
	"github.com/familyai/murabbi-tui/internal/ui/styles"
)

// focusArea marks which pane receives keys.
type focusArea int

const (
	focusComposer focusArea = iota
	focusThreads
)

const sidebarWidth = 34

// Model is the top-level Bubble Tea model.
type Model struct {
	cfg      *config.Config
	identity *identity.Manager
	engine   *thread.Engine
	ctrl     *session.Controller
	banners  *components.BannerSet

	composer    textarea.Model
	viewport    viewport.Model
	spin        spinner.Model
	loginID     textinput.Model
	loginSecret textinput.Model
	mdRenderer  *glamour.TermRenderer

	width  int
	height int
	ready  bool

	focus            focusArea
	showLogin        bool
	loginFocusSecret bool

	sending        bool
	loadingThreads bool
	loadingHistory bool
	authPending    bool

	threads   []api.ThreadSummary
	cursor    int
	browserID string
	loggedIn  bool
	quitting  bool
}

// New assembles the chat screen. browserID must already be ensured and
// loggedIn reflects whether a stored token was found.
func New(cfg *config.Config, ident *identity.Manager, engine *thread.Engine, ctrl *session.Controller, browserID string, loggedIn bool) *Model {
	composer := textarea.New()
	composer.Placeholder = "Ask about your child..."
	composer.ShowLineNumbers = false
	composer.SetHeight(3)
	composer.CharLimit = 4000
	// Enter submits; ctrl+j inserts a newline.
	composer.KeyMap.InsertNewline.SetKeys("ctrl+j")
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spin.Style.Foreground(styles.Teal)

	loginID := textinput.New()
	loginID.Placeholder = "household id"
	loginID.CharLimit = 64

	loginSecret := textinput.New()
	loginSecret.Placeholder = "secret"
	loginSecret.CharLimit = 128
	loginSecret.EchoMode = textinput.EchoPassword

	return &Model{
		cfg:         cfg,
		identity:    ident,
		engine:      engine,
		ctrl:        ctrl,
		banners:     components.NewBannerSet(),
		composer:    composer,
		spin:        spin,
		loginID:     loginID,
		loginSecret: loginSecret,
		browserID:   browserID,
		loggedIn:    loggedIn,
	}
}

// Init starts the spinner and the first thread refresh.
func (m *Model) Init() tea.Cmd {
	m.loadingThreads = true
	return tea.Batch(textarea.Blink, m.spin.Tick, m.refreshThreadsCmd())
}

// Update routes messages to the handlers below.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case components.ExpiredMsg:
		m.banners.Expire(msg)
		return m, nil

	case threadsRefreshedMsg:
		return m.handleThreadsRefreshed(msg)
	case threadsFailedMsg:
		m.loadingThreads = false
		return m, m.banners.Error(components.RegionThreads, userFacingError(msg.err))

	case historyLoadedMsg:
		m.loadingHistory = false
		m.refreshTranscript()
		return m, nil
	case historyFailedMsg:
		m.loadingHistory = false
		return m, m.banners.Error(components.RegionTranscript, userFacingError(msg.err))

	case sendDoneMsg:
		m.sending = false
		m.loadingThreads = true
		m.refreshTranscript()
		return m, m.refreshThreadsCmd()
	case sendFailedMsg:
		m.sending = false
		m.refreshTranscript()
		return m, m.banners.Error(components.RegionComposer, userFacingError(msg.err))

	case newThreadMsg:
		m.ctrl.Clear()
		m.refreshTranscript()
		m.loadingThreads = true
		m.loadingHistory = true
		return m, tea.Batch(m.refreshThreadsCmd(), m.loadHistoryCmd(msg.id))
	case newThreadFailedMsg:
		return m, m.banners.Error(components.RegionThreads, userFacingError(msg.err))

	case loginDoneMsg:
		m.authPending = false
		m.loggedIn = true
		m.showLogin = false
		m.loginSecret.SetValue("")
		m.loadingThreads = true
		var cmd tea.Cmd
		if msg.claimErr != nil {
			cmd = m.banners.Error(components.RegionAuth,
				"Logged in, but moving this device's conversations failed: "+userFacingError(msg.claimErr))
		} else {
			cmd = m.banners.Info(components.RegionAuth, loginNotice(msg.moved))
		}
		return m, tea.Batch(cmd, m.refreshThreadsCmd())
	case loginFailedMsg:
		m.authPending = false
		return m, m.banners.Error(components.RegionAuth, userFacingError(msg.err))
	}

	return m, nil
}

func loginNotice(moved int) string {
	if moved == 1 {
		return "Logged in. 1 conversation moved to the household."
	}
	if moved > 1 {
		return "Logged in. Conversations moved to the household."
	}
	return "Logged in."
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	mainWidth := m.width - sidebarWidth - 4
	if mainWidth < 20 {
		mainWidth = 20
	}
	// Header, banners, disclaimer, composer, and status bar share the
	// column with the transcript.
	transcriptHeight := m.height - 12
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(mainWidth, transcriptHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = transcriptHeight
	}
	m.composer.SetWidth(mainWidth - 2)

	// Word wrap follows the bubble width, so the renderer is rebuilt on
	// every resize. A nil renderer falls back to plain text.
	if r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.bubbleWidth()-2),
	); err == nil {
		m.mdRenderer = r
	}

	m.refreshTranscript()
	return m, nil
}

func (m *Model) handleThreadsRefreshed(msg threadsRefreshedMsg) (tea.Model, tea.Cmd) {
	m.loadingThreads = false
	m.threads = msg.res.Threads
	m.banners.Clear(components.RegionThreads)
	m.syncCursor()

	if msg.res.ClearTranscript {
		m.ctrl.Clear()
		m.refreshTranscript()
		return m, nil
	}

	if msg.res.ActiveID != "" {
		m.ctrl.ApplyMetadata(msg.res.Metadata)
		if msg.res.ActiveChanged {
			m.loadingHistory = true
			return m, m.loadHistoryCmd(msg.res.ActiveID)
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showLogin {
		return m.handleLoginKey(msg)
	}

	switch msg.String() {
	case "tab":
		if m.focus == focusComposer {
			m.focus = focusThreads
			m.composer.Blur()
		} else {
			m.focus = focusComposer
			m.composer.Focus()
		}
		return m, nil

	case "ctrl+n":
		return m, m.newThreadCmd()

	case "ctrl+r":
		m.loadingThreads = true
		return m, m.refreshThreadsCmd()

	case "ctrl+l":
		if !m.loggedIn {
			m.showLogin = true
			m.loginFocusSecret = false
			m.loginID.Focus()
			m.loginSecret.Blur()
			return m, textinput.Blink
		}
		return m, nil

	case "ctrl+d":
		if m.loggedIn {
			if err := m.identity.Logout(); err != nil {
				return m, m.banners.Error(components.RegionAuth, err.Error())
			}
			m.loggedIn = false
			m.loadingThreads = true
			cmd := m.banners.Info(components.RegionAuth, "Logged out.")
			return m, tea.Batch(cmd, m.refreshThreadsCmd())
		}
		return m, nil

	case "ctrl+p":
		m.togglePersona()
		return m, nil

	case "ctrl+g":
		m.toggleLanguage()
		return m, nil
	}

	if m.focus == focusThreads {
		return m.handleThreadKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m *Model) handleThreadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.threads)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if m.cursor < 0 || m.cursor >= len(m.threads) {
			return m, nil
		}
		id := m.threads[m.cursor].ThreadID
		meta := m.engine.Select(id)
		m.ctrl.ApplyMetadata(meta)
		m.loadingHistory = true
		return m, m.loadHistoryCmd(id)
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		if m.sending {
			return m, nil
		}
		text := strings.TrimSpace(m.composer.Value())
		if text == "" {
			return m, nil
		}
		m.sending = true
		m.composer.Reset()
		m.refreshTranscriptSoon(text)
		return m, tea.Batch(m.sendCmd(text), m.spin.Tick)
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.showLogin = false
		m.banners.Clear(components.RegionAuth)
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.loginFocusSecret = !m.loginFocusSecret
		if m.loginFocusSecret {
			m.loginID.Blur()
			m.loginSecret.Focus()
		} else {
			m.loginSecret.Blur()
			m.loginID.Focus()
		}
		return m, textinput.Blink
	case "enter":
		if m.authPending {
			return m, nil
		}
		householdID := strings.TrimSpace(m.loginID.Value())
		secret := strings.TrimSpace(m.loginSecret.Value())
		if householdID == "" || secret == "" {
			return m, m.banners.Error(components.RegionAuth, "Enter both the household id and the secret.")
		}
		m.authPending = true
		return m, tea.Batch(m.loginCmd(householdID, secret), m.spin.Tick)
	}

	var cmd tea.Cmd
	if m.loginFocusSecret {
		m.loginSecret, cmd = m.loginSecret.Update(msg)
	} else {
		m.loginID, cmd = m.loginID.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// syncCursor points the sidebar cursor at the active thread.
func (m *Model) syncCursor() {
	active := m.engine.Active()
	for i, t := range m.threads {
		if t.ThreadID == active {
			m.cursor = i
			return
		}
	}
	m.cursor = 0
}

func (m *Model) togglePersona() {
	if m.ctrl.Persona() == api.PersonaYazan {
		m.ctrl.SetPersona(api.PersonaNeutral)
	} else {
		m.ctrl.SetPersona(api.PersonaYazan)
	}
}

func (m *Model) toggleLanguage() {
	if m.ctrl.Language() == api.LanguageJordanian {
		m.ctrl.SetLanguage(api.LanguageMSA)
	} else {
		m.ctrl.SetLanguage(api.LanguageJordanian)
	}
}

// refreshTranscript re-renders the viewport from the controller state and
// keeps the view pinned to the latest message.
func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// refreshTranscriptSoon shows the optimistic user message immediately. The
// controller appends it inside Send, which runs in a command goroutine, so
// the view renders the pending text directly until the result message
// triggers a real refresh.
func (m *Model) refreshTranscriptSoon(pending string) {
	if !m.ready {
		return
	}
	content := m.renderTranscript()
	bubble := styles.UserMessage.Width(m.bubbleWidth()).Render(pending)
	if content != "" {
		content += "\n"
	}
	m.viewport.SetContent(content + bubble)
	m.viewport.GotoBottom()
}

func (m *Model) bubbleWidth() int {
	w := m.viewport.Width - 4
	if w < 16 {
		w = 16
	}
	return w
}
