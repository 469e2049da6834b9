// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the murabbi TUI:
// atomic file writes and rune-safe string handling for Arabic and
// mixed-direction text.
package util
