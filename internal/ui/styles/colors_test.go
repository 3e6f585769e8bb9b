// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestPaletteHasBothModes(t *testing.T) {
	for name, c := range map[string]lipgloss.AdaptiveColor{
		"Purple": Purple, "Cyan": Cyan, "Emerald": Emerald, "Rose": Rose, "Amber": Amber,
		"Overlay": Overlay, "TextPrimary": TextPrimary, "TextMuted": TextMuted, "TextInverse": TextInverse,
	} {
		assert.NotEmpty(t, c.Light, name)
		assert.NotEmpty(t, c.Dark, name)
		assert.NotEqual(t, c.Light, c.Dark, name)
	}
}

func TestStylesKeepText(t *testing.T) {
	for _, s := range []lipgloss.Style{Title, Muted, Label, Success, Warning, Error, Tab, ActiveTab} {
		assert.Contains(t, s.Render("candidate"), "candidate")
	}
}
