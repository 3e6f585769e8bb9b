// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package picker lets the user choose one of several candidate replies.
//
// On a terminal the candidates are shown as tabs over a scrollable,
// markdown-rendered viewport (bubbletea). Otherwise Prompt prints a numbered
// list and reads the choice from a line of input. Both implement
// resolve.Picker and report a dismissal as resolve.ErrCancelled.
package picker
