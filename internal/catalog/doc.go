// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog keeps the list of models the completion endpoint offers.
//
// The list is fetched from GET {base}/models, stamped with request_time and
// cached as JSON. A missing or unreadable cache falls back to a remote
// refresh.
package catalog
