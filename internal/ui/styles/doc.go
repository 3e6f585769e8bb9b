// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the shared palette and lipgloss styles for orchat's
// terminal output. Colors are lipgloss.AdaptiveColor so light and dark
// backgrounds both read well.
package styles
