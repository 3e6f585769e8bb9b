// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StringWidth returns the number of terminal columns s occupies.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// TruncateWidth shortens s to at most maxWidth columns, ending with "..."
// when anything was cut. Wide (CJK) characters are never split.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadWidth right-pads s with spaces to width columns.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// FirstLine returns the first non-empty line of s, trimmed, truncated to
// maxWidth columns.
func FirstLine(s string, maxWidth int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return TruncateWidth(line, maxWidth)
		}
	}
	return ""
}
