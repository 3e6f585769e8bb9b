// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package resolve turns an orchestration outcome into at most one assistant
// message.
//
//   - No candidates: the pending user turn is rolled back and the user is told.
//   - One candidate: accepted without asking.
//   - Several: a Picker chooses; cancelling leaves the conversation as it is.
package resolve
