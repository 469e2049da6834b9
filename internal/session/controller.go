// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the visible transcript and the send pipeline.
//
// Sends are optimistic: the user's message is appended before the network
// round trip so the transcript never stalls behind the server. A failed send
// rolls the appended message back, leaving the transcript exactly as it was.
// A successful send appends the assistant reply and hands the server's
// thread id to the thread engine with the reload-suppression flag raised,
// since the transcript already shows the exchange.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/thread"
)

// Role identifies who authored a message.
type Role string

// Transcript roles. History rows with any other role are shown as the user.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the transcript.
type Message struct {
	Role Role
	Text string

	// Context lists the knowledge-base snippets the reply drew on.
	Context []string
	// NeedsHuman marks replies the assistant flagged for human follow-up.
	NeedsHuman bool
	// SafetyReasons explains why the safety layer intervened, if it did.
	SafetyReasons []string
}

// Controller drives one chat session.
type Controller struct {
	client *api.Client
	engine *thread.Engine

	mu       sync.Mutex
	messages []Message

	persona     api.Persona
	language    api.Language
	householdID string
	browserID   string
}

// NewController creates a controller with the given defaults for new
// exchanges.
func NewController(client *api.Client, engine *thread.Engine, persona api.Persona, language api.Language) *Controller {
	return &Controller{
		client:   client,
		engine:   engine,
		persona:  persona,
		language: language,
	}
}

// SetBrowserID records the device id included in chat payloads.
func (c *Controller) SetBrowserID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.browserID = id
}

// SetHouseholdID records the optional household attribution.
func (c *Controller) SetHouseholdID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.householdID = id
}

// SetPersona switches the coaching voice for subsequent sends.
func (c *Controller) SetPersona(p api.Persona) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persona = p
}

// SetLanguage switches the reply register for subsequent sends.
func (c *Controller) SetLanguage(l api.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = l
}

// ApplyMetadata applies a thread's persona and language in one step.
func (c *Controller) ApplyMetadata(m thread.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persona = m.Persona
	c.language = m.Language
}

// Persona returns the current persona.
func (c *Controller) Persona() api.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persona
}

// Language returns the current language.
func (c *Controller) Language() api.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear empties the transcript. Used when the thread list comes back empty
// or a fresh thread is opened.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// LoadHistory replaces the transcript with threadID's stored turns, unless
// the thread engine's suppression says the transcript already shows this
// thread's latest exchange. Returns whether the load ran.
func (c *Controller) LoadHistory(ctx context.Context, threadID string) (bool, error) {
	if c.engine.ConsumeSkipReload(threadID) {
		return false, nil
	}

	hist, err := c.client.History(ctx, threadID)
	if err != nil {
		return false, err
	}

	msgs := make([]Message, 0, len(hist.Turns))
	for _, turn := range hist.Turns {
		role := RoleUser
		if turn.Role == string(RoleAssistant) {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Text: turn.Content})
	}

	c.mu.Lock()
	c.messages = msgs
	c.mu.Unlock()
	return true, nil
}

// Send submits text as the user and appends the assistant reply.
//
// The user message is appended before the request goes out. On failure the
// transcript is rolled back to its pre-send state and the error is returned
// for the banner. On success the server's thread id is adopted with the
// reload suppression raised.
func (c *Controller) Send(ctx context.Context, text string) (*api.ChatResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	c.mu.Lock()
	c.messages = append(c.messages, Message{Role: RoleUser, Text: text})
	req := api.ChatRequest{
		Message:     text,
		Persona:     c.persona,
		Language:    c.language,
		HouseholdID: c.householdID,
		ThreadID:    c.engine.Active(),
		BrowserID:   c.browserID,
	}
	c.mu.Unlock()

	resp, err := c.client.SendChat(ctx, req)
	if err != nil {
		c.mu.Lock()
		if n := len(c.messages); n > 0 {
			c.messages = c.messages[:n-1]
		}
		c.mu.Unlock()
		return nil, err
	}

	c.engine.AdoptSendResult(resp.ThreadID)

	c.mu.Lock()
	c.messages = append(c.messages, Message{
		Role:          RoleAssistant,
		Text:          resp.Reply,
		Context:       resp.Context,
		NeedsHuman:    resp.NeedsHuman,
		SafetyReasons: resp.SafetyReasons,
	})
	c.mu.Unlock()

	return resp, nil
}
