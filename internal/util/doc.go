// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across orchat.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//
// Text:
//   - TruncateWidth, PadWidth: display-width aware column fitting
//   - FirstLine: single-line preview of multi-line content
//
// # Usage
//
//	// Cache files and key files are never left half-written
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit a model name into a 32 column table cell
//	cell := util.PadWidth(util.TruncateWidth(name, 32), 32)
package util
