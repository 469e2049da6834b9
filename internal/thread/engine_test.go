// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package thread

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/kv"
)

// threadServer serves a mutable thread list plus create/claim endpoints.
type threadServer struct {
	mu      sync.Mutex
	threads []api.ThreadSummary
	created int
	claimed int
	*httptest.Server
}

func newThreadServer(t *testing.T, threads []api.ThreadSummary) *threadServer {
	t.Helper()
	ts := &threadServer{threads: threads}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/chat/threads":
			json.NewEncoder(w).Encode(map[string]interface{}{"threads": ts.threads})
		case "/chat/new":
			ts.created++
			id := "created-" + string(rune('0'+ts.created))
			ts.threads = append([]api.ThreadSummary{{ThreadID: id}}, ts.threads...)
			json.NewEncoder(w).Encode(map[string]string{"thread_id": id})
		case "/chat/claim":
			ts.claimed++
			json.NewEncoder(w).Encode(map[string]int{"moved": 2})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *threadServer) setThreads(threads []api.ThreadSummary) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.threads = threads
}

func TestRefresh_EmptyListClearsSelection(t *testing.T) {
	server := newThreadServer(t, nil)
	session := kv.NewMemoryStore()
	session.Set(kv.KeyActiveThread, "ghost")

	engine := NewEngine(api.NewClient(server.URL), session)
	require.Equal(t, "ghost", engine.Active())

	res, err := engine.Refresh(context.Background())
	require.NoError(t, err)
	require.True(t, res.ClearTranscript)
	require.True(t, res.ActiveChanged)
	require.Empty(t, res.ActiveID)
	require.Empty(t, engine.Active())

	_, ok := session.Get(kv.KeyActiveThread)
	require.False(t, ok, "session store should forget the selection")
}

func TestRefresh_DanglingSelectionSnapsToNewest(t *testing.T) {
	server := newThreadServer(t, []api.ThreadSummary{
		{ThreadID: "t-new", Persona: api.PersonaYazan, Lang: api.LanguageJordanian},
		{ThreadID: "t-old"},
	})
	session := kv.NewMemoryStore()
	session.Set(kv.KeyActiveThread, "t-deleted")

	engine := NewEngine(api.NewClient(server.URL), session)
	res, err := engine.Refresh(context.Background())
	require.NoError(t, err)

	require.Equal(t, "t-new", res.ActiveID)
	require.True(t, res.ActiveChanged)
	require.False(t, res.ClearTranscript)
	require.Equal(t, api.PersonaYazan, res.Metadata.Persona)
	require.Equal(t, api.LanguageJordanian, res.Metadata.Language)

	stored, ok := session.Get(kv.KeyActiveThread)
	require.True(t, ok)
	require.Equal(t, "t-new", stored)
}

func TestRefresh_ValidSelectionIsKept(t *testing.T) {
	server := newThreadServer(t, []api.ThreadSummary{
		{ThreadID: "t-1"},
		{ThreadID: "t-2"},
	})
	session := kv.NewMemoryStore()
	session.Set(kv.KeyActiveThread, "t-2")

	engine := NewEngine(api.NewClient(server.URL), session)
	res, err := engine.Refresh(context.Background())
	require.NoError(t, err)

	require.Equal(t, "t-2", res.ActiveID)
	require.False(t, res.ActiveChanged)
}

func TestRefresh_NoSelectionPicksFirst(t *testing.T) {
	server := newThreadServer(t, []api.ThreadSummary{{ThreadID: "t-only"}})
	engine := NewEngine(api.NewClient(server.URL), kv.NewMemoryStore())

	res, err := engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t-only", res.ActiveID)
	require.True(t, res.ActiveChanged)
}

func TestSelect_SyncsMetadata(t *testing.T) {
	server := newThreadServer(t, []api.ThreadSummary{
		{ThreadID: "t-1", Persona: api.PersonaYazan, Lang: api.LanguageJordanian},
		{ThreadID: "t-2", Persona: "unknown", Lang: "klingon"},
	})
	engine := NewEngine(api.NewClient(server.URL), kv.NewMemoryStore())
	_, err := engine.Refresh(context.Background())
	require.NoError(t, err)

	meta := engine.Select("t-1")
	require.Equal(t, api.PersonaYazan, meta.Persona)
	require.Equal(t, api.LanguageJordanian, meta.Language)
	require.Equal(t, "t-1", engine.Active())

	// Unknown server values fall back to the defaults.
	meta = engine.Select("t-2")
	require.Equal(t, api.PersonaNeutral, meta.Persona)
	require.Equal(t, api.LanguageMSA, meta.Language)
}

func TestCreate_BecomesActive(t *testing.T) {
	server := newThreadServer(t, nil)
	session := kv.NewMemoryStore()
	engine := NewEngine(api.NewClient(server.URL), session)

	id, err := engine.Create(context.Background(), api.PersonaNeutral, api.LanguageMSA)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, id, engine.Active())

	stored, ok := session.Get(kv.KeyActiveThread)
	require.True(t, ok)
	require.Equal(t, id, stored)
}

func TestSkipReload_SingleUse(t *testing.T) {
	server := newThreadServer(t, nil)
	engine := NewEngine(api.NewClient(server.URL), kv.NewMemoryStore())

	require.False(t, engine.ConsumeSkipReload("t-9"), "suppression must start lowered")

	engine.AdoptSendResult("t-9")
	require.Equal(t, "t-9", engine.Active())

	require.True(t, engine.ConsumeSkipReload("t-9"), "first load of the adopted thread is suppressed")
	require.False(t, engine.ConsumeSkipReload("t-9"), "suppression must not survive one consume")
}

func TestSkipReload_KeyedToAdoptedThread(t *testing.T) {
	server := newThreadServer(t, nil)
	engine := NewEngine(api.NewClient(server.URL), kv.NewMemoryStore())

	engine.AdoptSendResult("t-a")

	// Switching to another thread must load that thread's history.
	require.False(t, engine.ConsumeSkipReload("t-b"), "a different thread's load must run")

	// The stale suppression does not linger for a later return to t-a.
	require.False(t, engine.ConsumeSkipReload("t-a"), "mismatched consume discards the suppression")
}

func TestClaim(t *testing.T) {
	server := newThreadServer(t, nil)
	engine := NewEngine(api.NewClient(server.URL), kv.NewMemoryStore())

	moved, err := engine.Claim(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Equal(t, 2, moved)
}

func TestRefresh_ErrorLeavesStateUntouched(t *testing.T) {
	server := newThreadServer(t, []api.ThreadSummary{{ThreadID: "t-1"}})
	session := kv.NewMemoryStore()
	engine := NewEngine(api.NewClient(server.URL), session)

	_, err := engine.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t-1", engine.Active())

	server.Close()

	_, err = engine.Refresh(context.Background())
	require.Error(t, err)
	require.Equal(t, "t-1", engine.Active(), "failed refresh must not move the selection")
	require.Len(t, engine.Threads(), 1, "failed refresh must not drop the cached list")
}
