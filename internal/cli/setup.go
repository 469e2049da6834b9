// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Shared wiring for CLI command handlers.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/familyai/murabbi-tui/internal/api"
	"github.com/familyai/murabbi-tui/internal/config"
	"github.com/familyai/murabbi-tui/internal/identity"
	"github.com/familyai/murabbi-tui/internal/kv"
	"github.com/familyai/murabbi-tui/internal/session"
	"github.com/familyai/murabbi-tui/internal/thread"
)

// Runtime bundles the client-side services every command needs. The TUI
// and the one-shot commands share the same wiring so they see the same
// device id, token, and active thread.
type Runtime struct {
	Config    *config.Config
	Client    *api.Client
	Identity  *identity.Manager
	Engine    *thread.Engine
	Ctrl      *session.Controller
	BrowserID string
}

// NewRuntime loads configuration, opens the state store, and wires the
// service stack. Global CLI flags override config values.
func NewRuntime(args Args) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnvOverrides()

	if args.Server != "" {
		cfg.Server.URL = args.Server
	}
	if args.Persona != "" {
		cfg.Chat.Persona = args.Persona
	}
	if args.Language != "" {
		cfg.Chat.Language = args.Language
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stateDir, err := cfg.StateDirPath()
	if err != nil {
		return nil, fmt.Errorf("resolving state dir: %w", err)
	}
	store, err := kv.OpenFileStore(filepath.Join(stateDir, "state.json"))
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	client := api.NewClient(cfg.Server.URL).WithTimeout(cfg.Timeout())
	ident := identity.NewManager(store, client)

	browserID, err := ident.EnsureBrowserID()
	if err != nil {
		return nil, fmt.Errorf("device identity: %w", err)
	}
	// Installs the token on the client when one is stored.
	ident.Token()

	// The active thread lives for one run only; the durable file keeps just
	// the device id and token. Each invocation starts with no selection and
	// lets the first refresh pick the newest thread.
	engine := thread.NewEngine(client, kv.NewMemoryStore())
	ctrl := session.NewController(client, engine,
		api.Persona(cfg.Chat.Persona), api.Language(cfg.Chat.Language))
	ctrl.SetBrowserID(browserID)
	ctrl.SetHouseholdID(cfg.Chat.HouseholdID)

	return &Runtime{
		Config:    cfg,
		Client:    client,
		Identity:  ident,
		Engine:    engine,
		Ctrl:      ctrl,
		BrowserID: browserID,
	}, nil
}
