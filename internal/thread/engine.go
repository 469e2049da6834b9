// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package thread keeps the client's view of the server-side thread list
// consistent.
//
// The engine owns three pieces of session state: the cached thread list, the
// active thread id, and a single-use suppression keyed to the thread the
// last send adopted. The suppression exists for one reason: after a
// successful send the transcript already holds the exchange, so reloading
// that thread's history would clobber it. Loading a different thread
// discards the suppression and fetches normally.
//
// Refresh is self-repairing. An empty list clears the selection; a selection
// pointing at a thread the server no longer reports snaps to the newest
// thread. The active id is persisted to the session store so a reconnecting
// frontend can restore it.
package thread

import (
	"context"
	"sync"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/kv"
)

// Metadata is the persona and language a thread was created with. Selecting
// a thread re-applies its metadata so replies keep the thread's voice.
type Metadata struct {
	Persona  api.Persona
	Language api.Language
}

// normalize clamps unknown server values onto the supported set, matching
// how the rest of the client treats personas and languages.
func normalize(persona api.Persona, lang api.Language) Metadata {
	m := Metadata{Persona: api.PersonaNeutral, Language: api.LanguageMSA}
	if persona == api.PersonaYazan {
		m.Persona = api.PersonaYazan
	}
	if lang == api.LanguageJordanian {
		m.Language = api.LanguageJordanian
	}
	return m
}

// RefreshResult describes what a refresh decided.
type RefreshResult struct {
	// Threads is the fresh list, newest first.
	Threads []api.ThreadSummary
	// ActiveID is the repaired selection, empty when no threads exist.
	ActiveID string
	// ActiveChanged reports whether the selection moved.
	ActiveChanged bool
	// ClearTranscript is set when the list came back empty and any
	// displayed messages belong to a thread that no longer exists.
	ClearTranscript bool
	// Metadata carries the active thread's persona and language, valid
	// only when ActiveID is non-empty.
	Metadata Metadata
}

// Engine synchronizes the thread list and selection with the server.
type Engine struct {
	client  *api.Client
	session kv.Store

	mu            sync.Mutex
	threads       []api.ThreadSummary
	activeID      string
	skipReloadFor string
}

// NewEngine creates an engine over the API client and the session-scoped
// store. Any previously persisted selection is restored immediately; the
// next Refresh validates it against the server.
func NewEngine(client *api.Client, session kv.Store) *Engine {
	e := &Engine{client: client, session: session}
	if id, ok := session.Get(kv.KeyActiveThread); ok {
		e.activeID = id
	}
	return e
}

// Active returns the current selection, empty when none.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID
}

// Threads returns the cached list from the last refresh.
func (e *Engine) Threads() []api.ThreadSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.ThreadSummary, len(e.threads))
	copy(out, e.threads)
	return out
}

// setActiveLocked updates the selection and mirrors it into the session
// store. Callers hold e.mu.
func (e *Engine) setActiveLocked(id string) {
	e.activeID = id
	if id == "" {
		e.session.Delete(kv.KeyActiveThread) //nolint:errcheck // session store
		return
	}
	e.session.Set(kv.KeyActiveThread, id) //nolint:errcheck // session store
}

// Refresh fetches the thread list and repairs the selection.
//
// Rules, in order: an empty list clears the selection and the transcript; a
// missing or dangling selection snaps to the first (newest) thread; a valid
// selection is kept. The repaired thread's metadata is always returned so
// the caller can re-sync persona and language.
func (e *Engine) Refresh(ctx context.Context) (RefreshResult, error) {
	threads, err := e.client.Threads(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.threads = threads

	if len(threads) == 0 {
		changed := e.activeID != ""
		e.setActiveLocked("")
		return RefreshResult{
			Threads:         threads,
			ActiveChanged:   changed,
			ClearTranscript: true,
		}, nil
	}

	target := e.activeID
	if target == "" || !containsThread(threads, target) {
		target = threads[0].ThreadID
	}

	changed := target != e.activeID
	if changed {
		e.setActiveLocked(target)
	}

	return RefreshResult{
		Threads:       threads,
		ActiveID:      target,
		ActiveChanged: changed,
		Metadata:      metadataFor(threads, target),
	}, nil
}

// Select makes threadID the active thread and returns its metadata from the
// cached list. Selecting a thread the cache does not know is allowed; the
// metadata then falls back to the defaults.
func (e *Engine) Select(threadID string) Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setActiveLocked(threadID)
	return metadataFor(e.threads, threadID)
}

// Create asks the server for a fresh thread with the given metadata and
// makes it active. The caller should refresh afterwards so the new thread
// appears in the list.
func (e *Engine) Create(ctx context.Context, persona api.Persona, language api.Language) (string, error) {
	id, err := e.client.CreateThread(ctx, persona, language)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	e.setActiveLocked(id)
	e.mu.Unlock()
	return id, nil
}

// Claim moves anonymous threads owned by browserID into the logged-in
// household. Runs right after login, before the post-login refresh.
func (e *Engine) Claim(ctx context.Context, browserID string) (int, error) {
	return e.client.ClaimThreads(ctx, browserID)
}

// AdoptSendResult records the thread id returned by a successful send. The
// suppression is armed first, keyed to that id, so adopting the selection
// does not trigger a history fetch over the transcript that already shows
// the exchange.
func (e *Engine) AdoptSendResult(threadID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipReloadFor = threadID
	e.setActiveLocked(threadID)
}

// ConsumeSkipReload reports whether a history reload of threadID should be
// suppressed, clearing the pending suppression in the same step. The
// suppression only matches the thread the last send adopted; loading any
// other thread discards it, so a real thread switch always fetches that
// thread's history.
func (e *Engine) ConsumeSkipReload(threadID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	armed := e.skipReloadFor
	e.skipReloadFor = ""
	return armed != "" && armed == threadID
}

func containsThread(threads []api.ThreadSummary, id string) bool {
	for _, t := range threads {
		if t.ThreadID == id {
			return true
		}
	}
	return false
}

func metadataFor(threads []api.ThreadSummary, id string) Metadata {
	for _, t := range threads {
		if t.ThreadID == id {
			return normalize(t.Persona, t.Lang)
		}
	}
	return normalize(api.PersonaNeutral, api.LanguageMSA)
}
