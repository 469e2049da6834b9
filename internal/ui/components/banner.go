// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the murabbi TUI.
//
// This file implements per-region notification banners. Each surface of the
// chat screen (thread list, transcript, composer, login form) shows its own
// failures inline instead of a single global error line, and every banner
// auto-clears so stale errors never linger over fresh state.
package components

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/familyai/murabbi-tui/internal/ui/styles"
)

// Region identifies which surface a banner belongs to.
type Region string

// Banner regions. One banner per region; a newer message replaces the old.
const (
	RegionThreads    Region = "threads"
	RegionTranscript Region = "transcript"
	RegionComposer   Region = "composer"
	RegionAuth       Region = "auth"
)

// Kind selects the banner styling.
type Kind int

const (
	// KindError is a failure notice.
	KindError Kind = iota
	// KindInfo is a success or status notice.
	KindInfo
)

// AutoClearAfter is how long a banner stays visible.
const AutoClearAfter = 5 * time.Second

// Banner is one visible notice.
type Banner struct {
	ID      int
	Region  Region
	Kind    Kind
	Message string
	SetAt   time.Time
}

// ExpiredMsg asks the update loop to clear a banner. The id guards against
// clearing a newer banner that replaced the one whose timer fired.
type ExpiredMsg struct {
	Region Region
	ID     int
}

// =============================================================================
// BANNER SET
// =============================================================================

// BannerSet holds at most one banner per region.
type BannerSet struct {
	mu      sync.Mutex
	banners map[Region]Banner
	nextID  int
}

// NewBannerSet creates an empty banner set.
func NewBannerSet() *BannerSet {
	return &BannerSet{banners: make(map[Region]Banner)}
}

// Set replaces the region's banner and returns the command that will expire
// it. The returned command must be dispatched for auto-clear to work.
func (s *BannerSet) Set(region Region, kind Kind, message string) tea.Cmd {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.banners[region] = Banner{
		ID:      id,
		Region:  region,
		Kind:    kind,
		Message: message,
		SetAt:   time.Now(),
	}
	s.mu.Unlock()

	return tea.Tick(AutoClearAfter, func(time.Time) tea.Msg {
		return ExpiredMsg{Region: region, ID: id}
	})
}

// Error is shorthand for an error banner.
func (s *BannerSet) Error(region Region, message string) tea.Cmd {
	return s.Set(region, KindError, message)
}

// Info is shorthand for an informational banner.
func (s *BannerSet) Info(region Region, message string) tea.Cmd {
	return s.Set(region, KindInfo, message)
}

// Clear removes the region's banner immediately.
func (s *BannerSet) Clear(region Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.banners, region)
}

// Expire handles an ExpiredMsg, clearing the banner only if it is still the
// one the timer was armed for.
func (s *BannerSet) Expire(msg ExpiredMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.banners[msg.Region]; ok && b.ID == msg.ID {
		delete(s.banners, msg.Region)
	}
}

// Get returns the region's banner, if one is visible.
func (s *BannerSet) Get(region Region) (Banner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banners[region]
	return b, ok
}

// View renders the region's banner, or "" when the region is clean.
func (s *BannerSet) View(region Region) string {
	b, ok := s.Get(region)
	if !ok {
		return ""
	}
	if b.Kind == KindError {
		return styles.ErrorBanner.Render(b.Message)
	}
	return styles.InfoBanner.Render(b.Message)
}
