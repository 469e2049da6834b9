// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity manages the two credentials a device can hold: a durable
// anonymous device id and an optional household bearer token.
//
// The device id is minted once per installation and never rotated; it is how
// the backend groups anonymous threads. The token arrives through household
// login and upgrades every later request. Both live in the durable key-value
// store and are installed on the API client so the rest of the program never
// touches raw credentials.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/kv"
)

// Error variables for identity operations.
var (
	// ErrEmptyCredentials indicates login was called without both fields.
	ErrEmptyCredentials = errors.New("household id and secret are required")

	// ErrEmptyToken indicates the server accepted the login but returned
	// no token.
	ErrEmptyToken = errors.New("server returned an empty token")
)

// Manager owns the device id and token lifecycle.
type Manager struct {
	store  kv.Store
	client *api.Client
}

// NewManager creates a Manager over the durable store and API client.
func NewManager(store kv.Store, client *api.Client) *Manager {
	return &Manager{store: store, client: client}
}

// EnsureBrowserID returns the durable device id, minting and persisting one
// on first use. Calling it again never rewrites the stored value. The id is
// also installed on the API client.
func (m *Manager) EnsureBrowserID() (string, error) {
	if id, ok := m.store.Get(kv.KeyBrowserID); ok && id != "" {
		m.client.SetBrowserID(id)
		return id, nil
	}

	id := newBrowserID()
	if err := m.store.Set(kv.KeyBrowserID, id); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	m.client.SetBrowserID(id)
	return id, nil
}

// newBrowserID mints a device id. UUIDv4 normally; if the system entropy
// source refuses, a timestamp-random fallback keeps the client usable since
// the id only needs to be unique, not unguessable.
func newBrowserID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}

	var b [8]byte
	rand.Read(b[:]) //nolint:errcheck // fallback path, zeros still acceptable
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}

// Token returns the stored bearer token, if any, and installs it on the
// API client.
func (m *Manager) Token() (string, bool) {
	token, ok := m.store.Get(kv.KeyAuthToken)
	if !ok || token == "" {
		return "", false
	}
	m.client.SetToken(token)
	return token, true
}

// LoggedIn reports whether a bearer token is stored.
func (m *Manager) LoggedIn() bool {
	_, ok := m.Token()
	return ok
}

// Login exchanges household credentials for a token, persists it, and
// installs it on the API client.
func (m *Manager) Login(ctx context.Context, householdID, secret string) error {
	householdID = strings.TrimSpace(householdID)
	if householdID == "" || secret == "" {
		return ErrEmptyCredentials
	}

	token, err := m.client.Login(ctx, householdID, secret)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrEmptyToken
	}

	if err := m.store.Set(kv.KeyAuthToken, token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	m.client.SetToken(token)
	return nil
}

// Logout discards the stored token and clears it from the API client. The
// device id survives so anonymous threads stay reachable.
func (m *Manager) Logout() error {
	if err := m.store.Delete(kv.KeyAuthToken); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	m.client.SetToken("")
	return nil
}
