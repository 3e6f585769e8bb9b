// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/orchestrator"
)

// recordingPicker returns a fixed answer and remembers what it was shown.
type recordingPicker struct {
	index int
	err   error
	calls int
	seen  []orchestrator.Candidate
}

func (p *recordingPicker) Pick(_ context.Context, c []orchestrator.Candidate) (int, error) {
	p.calls++
	p.seen = c
	return p.index, p.err
}

func outcome(contents ...string) orchestrator.Outcome {
	var out orchestrator.Outcome
	for i, c := range contents {
		out.Candidates = append(out.Candidates, orchestrator.Candidate{Content: c, Index: i})
	}
	return out
}

func TestResolve_NoResponses(t *testing.T) {
	picker := &recordingPicker{}
	r, err := Resolve(context.Background(), outcome(), picker)

	require.NoError(t, err)
	assert.Equal(t, NoResponses, r.Kind)
	assert.Zero(t, picker.calls)
}

func TestResolve_SingleIsAutomatic(t *testing.T) {
	picker := &recordingPicker{}
	r, err := Resolve(context.Background(), outcome("  hello \n"), picker)

	require.NoError(t, err)
	assert.Equal(t, Accepted, r.Kind)
	assert.True(t, r.Auto)
	assert.Equal(t, conversation.RoleAssistant, r.Message.Role)
	assert.Equal(t, "hello", r.Message.Content)
	assert.Zero(t, picker.calls, "picker must not be invoked for one candidate")
}

func TestResolve_SingleWorksWithoutPicker(t *testing.T) {
	r, err := Resolve(context.Background(), outcome("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, Accepted, r.Kind)
}

func TestResolve_PickerGetsAllInOrder(t *testing.T) {
	picker := &recordingPicker{index: 2}
	out := outcome("a", "b", "c")
	out.Candidates[2].Reasoning = "because"

	r, err := Resolve(context.Background(), out, picker)

	require.NoError(t, err)
	assert.Equal(t, 1, picker.calls)
	require.Len(t, picker.seen, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, picker.seen[i].Content)
	}
	assert.Equal(t, Accepted, r.Kind)
	assert.False(t, r.Auto)
	assert.Equal(t, 2, r.Picked)
	assert.Equal(t, "c", r.Message.Content)
	assert.Equal(t, "because", r.Message.Reasoning)
}

func TestResolve_Cancel(t *testing.T) {
	for _, cancelErr := range []error{ErrCancelled, context.Canceled} {
		r, err := Resolve(context.Background(), outcome("a", "b"), &recordingPicker{err: cancelErr})
		require.NoError(t, err)
		assert.Equal(t, Cancelled, r.Kind)
	}
}

func TestResolve_PickerErrors(t *testing.T) {
	_, err := Resolve(context.Background(), outcome("a", "b"), &recordingPicker{err: errors.New("tty gone")})
	assert.Error(t, err)

	_, err = Resolve(context.Background(), outcome("a", "b"), &recordingPicker{index: 2})
	assert.Error(t, err)

	_, err = Resolve(context.Background(), outcome("a", "b"), nil)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	newState := func() *conversation.State {
		s := conversation.New()
		s.Append(conversation.NewUserMessage("q"))
		return s
	}

	t.Run("accepted appends", func(t *testing.T) {
		s := newState()
		_, removed := Apply(s, Result{Kind: Accepted, Message: conversation.NewAssistantMessage("a", "")})
		assert.False(t, removed)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("no responses removes the user turn once", func(t *testing.T) {
		s := newState()
		msg, removed := Apply(s, Result{Kind: NoResponses})
		assert.True(t, removed)
		assert.Equal(t, "q", msg.Content)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("cancelled leaves state", func(t *testing.T) {
		s := newState()
		_, removed := Apply(s, Result{Kind: Cancelled})
		assert.False(t, removed)
		assert.Equal(t, 1, s.Len())
	})
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "no-responses", NoResponses.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
