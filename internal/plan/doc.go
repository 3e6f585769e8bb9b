// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package plan derives per-candidate request parameters.
//
// A Plan has one Params entry per candidate. A single candidate uses the
// configured temperature. Several candidates walk a fixed ascending
// temperature ladder so the replies differ in a predictable way; every other
// field is copied from the base parameters.
//
// # Usage
//
//	p := plan.Build(3, plan.Params{Temperature: 0.5, ReasoningEffort: plan.EffortLow})
//	for _, params := range p {
//	    req := params.Request(model, messages)
//	    ...
//	}
package plan
