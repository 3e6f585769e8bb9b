// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/orchat/internal/cloud"
)

// Candidate count bounds.
const (
	MinCandidates = 1
	MaxCandidates = 6
)

// ladder holds one temperature per possible candidate, ascending.
var ladder = [MaxCandidates]float64{0.5, 0.6, 0.7, 1.0, 1.1, 1.25}

// Ladder returns a copy of the multi-candidate temperature ladder.
func Ladder() []float64 {
	out := make([]float64, len(ladder))
	copy(out, ladder[:])
	return out
}

// =============================================================================
// REASONING EFFORT
// =============================================================================

// Effort is a provider reasoning effort level. The zero value leaves the
// choice to the provider.
type Effort string

const (
	EffortUnset  Effort = ""
	EffortNone   Effort = "none"
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ErrInvalidEffort is returned for an unknown effort level.
var ErrInvalidEffort = errors.New("invalid reasoning effort")

// ParseEffort parses an effort name case-insensitively.
func ParseEffort(s string) (Effort, error) {
	switch e := Effort(strings.ToLower(strings.TrimSpace(s))); e {
	case EffortUnset, EffortNone, EffortLow, EffortMedium, EffortHigh:
		return e, nil
	default:
		return EffortUnset, fmt.Errorf("%w %q, must be one of: none, low, medium, high", ErrInvalidEffort, s)
	}
}

// =============================================================================
// PARAMS
// =============================================================================

// Params are the sampling parameters of one candidate request. Zero token
// limits mean "unset".
type Params struct {
	Temperature         float64
	ContextLength       int
	MaxCompletionTokens int
	ReasoningEffort     Effort
	ReasoningMaxTokens  int
	ExcludeReasoning    bool
}

// Validate rejects values the API would refuse.
func (p Params) Validate() error {
	if _, err := ParseEffort(string(p.ReasoningEffort)); err != nil {
		return err
	}
	if p.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %g", p.Temperature)
	}
	if p.ContextLength < 0 || p.MaxCompletionTokens < 0 || p.ReasoningMaxTokens < 0 {
		return errors.New("token limits must not be negative")
	}
	return nil
}

// reasoning returns the request's reasoning block, or nil when every
// reasoning control is unset.
func (p Params) reasoning() *cloud.Reasoning {
	if p.ReasoningEffort == EffortUnset && p.ReasoningMaxTokens == 0 && !p.ExcludeReasoning {
		return nil
	}
	return &cloud.Reasoning{
		Effort:    string(p.ReasoningEffort),
		MaxTokens: p.ReasoningMaxTokens,
		Exclude:   p.ExcludeReasoning,
	}
}

// Request builds the completion request for model and messages.
// ContextLength is sent as max_tokens.
func (p Params) Request(model string, messages []cloud.Message) cloud.Request {
	return cloud.Request{
		Model:               model,
		Messages:            messages,
		Temperature:         p.Temperature,
		MaxTokens:           p.ContextLength,
		MaxCompletionTokens: p.MaxCompletionTokens,
		Reasoning:           p.reasoning(),
	}
}

// =============================================================================
// PLAN
// =============================================================================

// Plan is the ordered list of per-candidate parameters.
type Plan []Params

// Clamp bounds n to [MinCandidates, MaxCandidates].
func Clamp(n int) int {
	return min(max(n, MinCandidates), MaxCandidates)
}

// Build returns a plan with Clamp(n) entries. One candidate keeps
// base.Temperature; several take ladder[i%len(ladder)]. Other fields are
// copied from base unchanged.
func Build(n int, base Params) Plan {
	n = Clamp(n)
	if n == 1 {
		return Plan{base}
	}
	p := make(Plan, n)
	for i := range p {
		p[i] = base
		p[i].Temperature = ladder[i%len(ladder)]
	}
	return p
}

// Temperatures lists the plan's temperatures in order.
func (p Plan) Temperatures() []float64 {
	out := make([]float64, len(p))
	for i, params := range p {
		out[i] = params.Temperature
	}
	return out
}
