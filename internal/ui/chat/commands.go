// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/familyai/murabbi-tui/internal/api"
)

// commandTimeout bounds every background request so a hung backend cannot
// wedge the UI forever.
const commandTimeout = 90 * time.Second

func (m *Model) refreshThreadsCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		res, err := engine.Refresh(ctx)
		if err != nil {
			return threadsFailedMsg{err: err}
		}
		return threadsRefreshedMsg{res: res}
	}
}

func (m *Model) loadHistoryCmd(threadID string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		ran, err := ctrl.LoadHistory(ctx, threadID)
		if err != nil {
			return historyFailedMsg{err: err}
		}
		return historyLoadedMsg{threadID: threadID, ran: ran}
	}
}

func (m *Model) sendCmd(text string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		resp, err := ctrl.Send(ctx, text)
		if err != nil {
			return sendFailedMsg{err: err}
		}
		return sendDoneMsg{resp: resp}
	}
}

func (m *Model) newThreadCmd() tea.Cmd {
	engine := m.engine
	persona, language := m.ctrl.Persona(), m.ctrl.Language()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		id, err := engine.Create(ctx, persona, language)
		if err != nil {
			return newThreadFailedMsg{err: err}
		}
		return newThreadMsg{id: id}
	}
}

func (m *Model) loginCmd(householdID, secret string) tea.Cmd {
	ident, engine := m.identity, m.engine
	browserID := m.browserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := ident.Login(ctx, householdID, secret); err != nil {
			return loginFailedMsg{err: err}
		}

		// Claim anonymous threads before the post-login refresh so they
		// appear in the household list immediately. A claim failure is
		// not fatal; the threads stay reachable through the device id,
		// but the user is told it happened.
		moved, err := engine.Claim(ctx, browserID)
		if err != nil {
			return loginDoneMsg{claimErr: err}
		}
		return loginDoneMsg{moved: moved}
	}
}

// userFacingError turns client errors into a banner line. Server-provided
// messages pass through; transport failures get a stable prefix.
func userFacingError(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, api.ErrNetwork) {
		return "Cannot reach the server. Check the connection and try again."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server took too long to respond."
	}
	return err.Error()
}
