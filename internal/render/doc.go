// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns stored markdown into something to look at.
//
// Rendering is a projection only. The raw markdown stays the source of truth
// for the conversation, for editing and for the clipboard.
//
//   - Terminal renders ANSI output with glamour and memoizes results
//   - HTML renders GFM with goldmark, highlights fenced code with chroma and
//     sanitizes the result with bluemonday
//   - ExportHTML writes a whole conversation as one self-contained page
package render
