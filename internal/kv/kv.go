// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the small key-value port used for client-side state.
//
// Two lifetimes exist: a durable store that survives restarts (backed by a
// JSON file under the state directory) and a session store that lives only
// as long as the process (in-memory). The identity manager writes the
// device id and auth token to the durable store; the thread engine writes
// the active-thread id to the session store. No other component writes
// either store.
package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/familyai/murabbi-tui/internal/util"
)

// Store is the key-value port shared by both lifetimes.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	// Set stores value under key.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// Well-known keys. Kept in one place so the stores stay greppable.
const (
	KeyBrowserID    = "browser_id"
	KeyAuthToken    = "auth_token"
	KeyActiveThread = "active_thread"
)

// =============================================================================
// DURABLE FILE STORE
// =============================================================================

// FileStore is a durable Store backed by a single JSON file. Every write
// persists the full map with an atomic rename so a crash never leaves a
// torn state file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenFileStore opens (or creates) the store at path. A missing file is an
// empty store; a corrupt file is replaced on the next write rather than
// failing every read.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		// Corrupt state is not fatal: start fresh, the device would
		// otherwise be permanently wedged.
		s.values = make(map[string]string)
	}
	return s, nil
}

// Get returns the value for key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and persists the file.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flushLocked()
}

// Delete removes key and persists the file.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flushLocked()
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// =============================================================================
// SESSION MEMORY STORE
// =============================================================================

// MemoryStore is a Store that lives only for the process lifetime. It backs
// the session-scoped state (active thread id) and the in-memory fakes used
// in tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string

	// SetCalls counts writes, letting tests assert idempotence of
	// ensure-style operations.
	SetCalls int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.SetCalls++
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
