// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat: it owns the conversation state and runs
// the send, edit and clear flows.
//
// The Controller is the only writer of its conversation.State. A send
// appends the user message, snapshots the history, runs the orchestrator on
// the snapshot and resolves the outcome:
//
//   - one reply is appended directly
//   - several replies go to the Picker; cancelling keeps the history as is
//   - no reply rolls the user message back and hands its text to the
//     Notifier so it can be recovered
//
// Editing a user message truncates the history after it and reruns the turn
// exactly once on the truncated snapshot.
package session
