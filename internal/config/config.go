// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for murabbi.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location (in order of precedence):
//   - ~/.murabbi/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/familyai/murabbi-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete murabbi configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// Chat defaults applied to new threads
	Chat ChatConfig `toml:"chat"`

	// UI settings
	UI UIConfig `toml:"ui"`

	// StateDir overrides where client state (device id, token) is kept.
	// Empty means ~/.murabbi.
	StateDir string `toml:"state_dir"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// URL is the backend base URL, e.g. "http://localhost:8000/api".
	URL string `toml:"url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig contains the persona and language used for new threads.
type ChatConfig struct {
	// Persona is "neutral" or "yazan".
	Persona string `toml:"persona"`
	// Language is "msa" or "jordanian".
	Language string `toml:"language"`
	// HouseholdID is an optional default household to attribute chats to.
	HouseholdID string `toml:"household_id"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
	// ShowSafetyReasons displays the safety annotations on replies.
	ShowSafetyReasons bool `toml:"show_safety_reasons"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         "http://localhost:8000/api",
			TimeoutSecs: 60,
		},
		Chat: ChatConfig{
			Persona:  "neutral",
			Language: "msa",
		},
		UI: UIConfig{
			Theme:             "dark",
			ShowSafetyReasons: false,
		},
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.Server.TimeoutSecs <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the murabbi configuration directory (~/.murabbi).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".murabbi"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StateDirPath returns the directory for client state. The config value
// wins; otherwise state lives next to the config file.
func (c *Config) StateDirPath() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	return ConfigDir()
}

// =============================================================================
// LOADING AND SAVING
// =============================================================================

// Load reads configuration from disk, applies environment overrides, and
// validates the result. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, decErr := toml.DecodeFile(path, cfg); decErr != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, decErr)
			}
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads configuration from an explicit file path, applies env
// overrides, and validates. Used by the --config flag and tests.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the default path with an atomic rename.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to an explicit path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(buf.String()), 0600)
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - MURABBI_SERVER_URL: overrides server.url
//   - MURABBI_STATE_DIR: overrides state_dir
//   - MURABBI_PERSONA: overrides chat.persona
//   - MURABBI_LANGUAGE: overrides chat.language
//   - MURABBI_HOUSEHOLD: overrides chat.household_id
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MURABBI_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("MURABBI_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("MURABBI_PERSONA"); v != "" {
		c.Chat.Persona = v
	}
	if v := os.Getenv("MURABBI_LANGUAGE"); v != "" {
		c.Chat.Language = v
	}
	if v := os.Getenv("MURABBI_HOUSEHOLD"); v != "" {
		c.Chat.HouseholdID = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return ValidationError{Field: "server.url", Message: "must not be empty"}
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: "server.url", Message: "must be an http(s) URL"}
	}

	if c.Server.TimeoutSecs < 0 {
		return ValidationError{Field: "server.timeout_secs", Message: "must not be negative"}
	}

	switch c.Chat.Persona {
	case "neutral", "yazan":
	default:
		return ValidationError{Field: "chat.persona", Message: `must be "neutral" or "yazan"`}
	}

	switch c.Chat.Language {
	case "msa", "jordanian":
	default:
		return ValidationError{Field: "chat.language", Message: `must be "msa" or "jordanian"`}
	}

	switch c.UI.Theme {
	case "dark", "light":
	default:
		return ValidationError{Field: "ui.theme", Message: `must be "dark" or "light"`}
	}

	return nil
}
