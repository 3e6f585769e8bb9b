// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator runs one request per sampling-plan entry and collects
// the candidates that succeed.
//
// A run works on its own copy of the history. Each candidate is streamed to
// completion and its fragments are concatenated. A candidate that fails is
// logged, reported to the Observer and left out; the run carries on with
// the next one. Nothing is retried.
//
// Candidates are attempted in plan order. In parallel mode they are fetched
// concurrently, but the returned list still follows plan order.
//
// The context is checked before every candidate, so cancelling it stops a
// run between candidates and aborts the one in flight.
package orchestrator
