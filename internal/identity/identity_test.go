// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/kv"
)

func TestEnsureBrowserID_Idempotent(t *testing.T) {
	store := kv.NewMemoryStore()
	mgr := NewManager(store, api.NewClient("http://unused"))

	first, err := mgr.EnsureBrowserID()
	if err != nil {
		t.Fatalf("EnsureBrowserID failed: %v", err)
	}
	if first == "" {
		t.Fatal("empty device id")
	}
	if store.SetCalls != 1 {
		t.Fatalf("SetCalls = %d, want 1", store.SetCalls)
	}

	second, err := mgr.EnsureBrowserID()
	if err != nil {
		t.Fatalf("second EnsureBrowserID failed: %v", err)
	}
	if second != first {
		t.Errorf("id changed between calls: %q vs %q", first, second)
	}
	if store.SetCalls != 1 {
		t.Errorf("SetCalls = %d after second call, want 1", store.SetCalls)
	}
}

func TestEnsureBrowserID_ReusesStoredValue(t *testing.T) {
	store := kv.NewMemoryStore()
	store.Set(kv.KeyBrowserID, "stored-id")
	store.SetCalls = 0

	mgr := NewManager(store, api.NewClient("http://unused"))
	id, err := mgr.EnsureBrowserID()
	if err != nil {
		t.Fatalf("EnsureBrowserID failed: %v", err)
	}
	if id != "stored-id" {
		t.Errorf("id = %q, want stored-id", id)
	}
	if store.SetCalls != 0 {
		t.Errorf("stored id was rewritten, SetCalls = %d", store.SetCalls)
	}
}

func TestLogin_PersistsToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/household/login" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-xyz"}`))
	}))
	defer server.Close()

	store := kv.NewMemoryStore()
	mgr := NewManager(store, api.NewClient(server.URL))

	if err := mgr.Login(context.Background(), "house-1", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	token, ok := store.Get(kv.KeyAuthToken)
	if !ok || token != "tok-xyz" {
		t.Errorf("stored token = (%q, %v)", token, ok)
	}
	if !mgr.LoggedIn() {
		t.Error("LoggedIn = false after login")
	}
}

func TestLogin_RejectsEmptyCredentials(t *testing.T) {
	mgr := NewManager(kv.NewMemoryStore(), api.NewClient("http://unused"))

	if err := mgr.Login(context.Background(), "", "secret"); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("err = %v, want ErrEmptyCredentials", err)
	}
	if err := mgr.Login(context.Background(), "  ", "secret"); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("err = %v, want ErrEmptyCredentials", err)
	}
	if err := mgr.Login(context.Background(), "house", ""); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("err = %v, want ErrEmptyCredentials", err)
	}
}

func TestLogin_FailureLeavesNoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"bad secret"}`))
	}))
	defer server.Close()

	store := kv.NewMemoryStore()
	mgr := NewManager(store, api.NewClient(server.URL))

	err := mgr.Login(context.Background(), "house-1", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, api.ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
	if _, ok := store.Get(kv.KeyAuthToken); ok {
		t.Error("token stored despite failed login")
	}
}

func TestLogout_KeepsBrowserID(t *testing.T) {
	store := kv.NewMemoryStore()
	store.Set(kv.KeyBrowserID, "dev-1")
	store.Set(kv.KeyAuthToken, "tok")

	mgr := NewManager(store, api.NewClient("http://unused"))
	if err := mgr.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, ok := store.Get(kv.KeyAuthToken); ok {
		t.Error("token survived logout")
	}
	if id, ok := store.Get(kv.KeyBrowserID); !ok || id != "dev-1" {
		t.Error("device id lost on logout")
	}
}
