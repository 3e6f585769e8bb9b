// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/orchat/internal/cloud"
)

func baseParams() Params {
	return Params{
		Temperature:         0.33,
		ContextLength:       8000,
		MaxCompletionTokens: 1024,
		ReasoningEffort:     EffortMedium,
		ReasoningMaxTokens:  256,
		ExcludeReasoning:    true,
	}
}

// =============================================================================
// BUILD
// =============================================================================

func TestBuild_Length(t *testing.T) {
	for n := MinCandidates; n <= MaxCandidates; n++ {
		assert.Len(t, Build(n, baseParams()), n, "n=%d", n)
	}
}

func TestBuild_SingleUsesBaseTemperature(t *testing.T) {
	p := Build(1, baseParams())
	require.Len(t, p, 1)
	assert.Equal(t, 0.33, p[0].Temperature)
	assert.Equal(t, baseParams(), p[0])
}

func TestBuild_MultipleWalksLadder(t *testing.T) {
	l := Ladder()
	for n := 2; n <= MaxCandidates; n++ {
		p := Build(n, baseParams())
		for i := range p {
			assert.Equal(t, l[i%len(l)], p[i].Temperature, "n=%d i=%d", n, i)
		}
	}
	assert.Equal(t, []float64{0.5, 0.6, 0.7}, Build(3, baseParams()).Temperatures())
}

func TestBuild_CopiesOtherFields(t *testing.T) {
	base := baseParams()
	for _, params := range Build(MaxCandidates, base) {
		params.Temperature = base.Temperature
		assert.Equal(t, base, params)
	}
}

func TestBuild_Clamps(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{-3, 1},
		{0, 1},
		{7, 6},
		{100, 6},
	}
	for _, tt := range tests {
		assert.Len(t, Build(tt.n, baseParams()), tt.want, "n=%d", tt.n)
	}
	// A clamped-to-one plan keeps the base temperature
	assert.Equal(t, 0.33, Build(0, baseParams())[0].Temperature)
}

func TestLadder_IsACopy(t *testing.T) {
	l := Ladder()
	l[0] = 99
	assert.Equal(t, 0.5, Build(2, Params{})[0].Temperature)
}

// =============================================================================
// PARAMS
// =============================================================================

func TestParseEffort(t *testing.T) {
	tests := []struct {
		in      string
		want    Effort
		wantErr bool
	}{
		{"", EffortUnset, false},
		{"none", EffortNone, false},
		{"Low", EffortLow, false},
		{" medium ", EffortMedium, false},
		{"HIGH", EffortHigh, false},
		{"extreme", EffortUnset, true},
	}
	for _, tt := range tests {
		got, err := ParseEffort(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrInvalidEffort), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, baseParams().Validate())
	assert.Error(t, Params{ReasoningEffort: "max"}.Validate())
	assert.Error(t, Params{Temperature: -0.1}.Validate())
	assert.Error(t, Params{ContextLength: -1}.Validate())
}

func TestParams_Request(t *testing.T) {
	msgs := []cloud.Message{{Role: "user", Content: "hi"}}

	req := baseParams().Request("openai/gpt-4o-mini", msgs)
	assert.Equal(t, cloud.Request{
		Model:               "openai/gpt-4o-mini",
		Messages:            msgs,
		Temperature:         0.33,
		MaxTokens:           8000,
		MaxCompletionTokens: 1024,
		Reasoning:           &cloud.Reasoning{Effort: "medium", MaxTokens: 256, Exclude: true},
	}, req)

	bare := Params{Temperature: 1}.Request("m", msgs)
	assert.Nil(t, bare.Reasoning)
	assert.Zero(t, bare.MaxTokens)
}
