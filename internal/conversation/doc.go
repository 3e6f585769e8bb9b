// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the ordered message history of a chat.
//
// State is owned by exactly one goroutine, the session controller. Work that
// runs elsewhere, such as an orchestration run, receives a Snapshot and
// never sees later edits.
//
// Only raw message text is stored. Rendering is done on demand by callers,
// so editing and copying always operate on the original markdown.
//
// # Operations
//
//   - Append: add a message at the end
//   - Edit: replace a message's content and discard everything after it
//   - Clear: drop the whole history
//   - RemoveLastIfRole: pop the final message only if it has the given role
package conversation
