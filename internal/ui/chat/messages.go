// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/thread"
)

// =============================================================================
// ASYNC RESULT MESSAGES
// =============================================================================

// Every network operation runs as a tea.Cmd and reports back through one of
// these messages. The update loop is the only writer of model state, so the
// handlers stay race-free without locks of their own.

// threadsRefreshedMsg carries a successful thread-list refresh.
type threadsRefreshedMsg struct {
	res thread.RefreshResult
}

// threadsFailedMsg reports a failed refresh.
type threadsFailedMsg struct {
	err error
}

// historyLoadedMsg reports a transcript load. ran is false when the load
// was suppressed by the post-send reload guard.
type historyLoadedMsg struct {
	threadID string
	ran      bool
}

// historyFailedMsg reports a failed transcript load.
type historyFailedMsg struct {
	err error
}

// sendDoneMsg carries a successful send.
type sendDoneMsg struct {
	resp *api.ChatResponse
}

// sendFailedMsg reports a failed send; the controller has already rolled
// the transcript back.
type sendFailedMsg struct {
	err error
}

// newThreadMsg reports a freshly created thread.
type newThreadMsg struct {
	id string
}

// newThreadFailedMsg reports a failed thread creation.
type newThreadFailedMsg struct {
	err error
}

// loginDoneMsg reports a successful login and how many anonymous threads
// were claimed into the household. claimErr is set when the claim step
// failed; the login itself still succeeded.
type loginDoneMsg struct {
	moved    int
	claimErr error
}

// loginFailedMsg reports a failed login.
type loginFailedMsg struct {
	err error
}
