// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/muesli/termenv"
)

const (
	// DefaultWordWrap is the wrap width used when none is configured.
	DefaultWordWrap = 80

	// DefaultCacheSize bounds the number of memoized renders.
	DefaultCacheSize = 128
)

// Style names accepted by TerminalOptions.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// TerminalOptions configures a Terminal renderer.
type TerminalOptions struct {
	// Style is auto, dark, light, notty or any other glamour standard style.
	Style string

	// WordWrap is the wrap width in columns. Zero means DefaultWordWrap.
	WordWrap int

	// CacheSize bounds the memo cache. Zero means DefaultCacheSize.
	CacheSize int
}

// Terminal renders markdown for ANSI terminals.
type Terminal struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	cache    *lru.Cache[string, string]
}

// NewTerminal builds a terminal renderer.
func NewTerminal(opts TerminalOptions) (*Terminal, error) {
	if opts.WordWrap <= 0 {
		opts.WordWrap = DefaultWordWrap
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(resolveStyle(opts.Style)),
		glamour.WithWordWrap(opts.WordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	cache, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}
	return &Terminal{renderer: r, cache: cache}, nil
}

// resolveStyle maps "auto" to dark or light from the terminal background.
func resolveStyle(style string) string {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "", StyleAuto:
		if termenv.HasDarkBackground() {
			return StyleDark
		}
		return StyleLight
	default:
		return strings.ToLower(strings.TrimSpace(style))
	}
}

// Render implements Renderer. Results are memoized by input.
func (t *Terminal) Render(markdown string) (string, error) {
	if out, ok := t.cache.Get(markdown); ok {
		return out, nil
	}

	t.mu.Lock()
	out, err := t.renderer.Render(markdown)
	t.mu.Unlock()
	if err != nil {
		return "", err
	}

	t.cache.Add(markdown, out)
	return out, nil
}

// Fallback returns the raw text.
func (t *Terminal) Fallback(text string) string {
	return text
}

// Cached reports how many renders are memoized.
func (t *Terminal) Cached() int {
	return t.cache.Len()
}
