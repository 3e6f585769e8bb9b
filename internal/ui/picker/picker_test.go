// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/resolve"
)

func candidates() []orchestrator.Candidate {
	return []orchestrator.Candidate{
		{Content: "first reply", Index: 0, Temperature: 0.5},
		{Content: "second reply", Index: 1, Temperature: 0.6},
		{Content: "third reply", Index: 2, Temperature: 0.7},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func sized(t *testing.T) Model {
	t.Helper()
	m, _ := update(t, NewModel(candidates(), nil), tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

// =============================================================================
// MODEL
// =============================================================================

func TestModel_ViewBeforeSize(t *testing.T) {
	m := NewModel(candidates(), nil)
	assert.Equal(t, "Loading replies...", m.View())
	assert.Nil(t, m.Init())
}

func TestModel_Navigation(t *testing.T) {
	m := sized(t)
	assert.Equal(t, 0, m.Active())
	assert.Contains(t, m.View(), "first reply")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.Active())
	assert.Contains(t, m.View(), "second reply")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, m.Active(), "wraps forward")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 2, m.Active(), "wraps backward")

	m, _ = update(t, m, runes("2"))
	assert.Equal(t, 1, m.Active())

	m, _ = update(t, m, runes("9"))
	assert.Equal(t, 1, m.Active(), "out of range digit is ignored")
}

func TestModel_Select(t *testing.T) {
	m := sized(t)
	m, _ = update(t, m, runes("3"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 2, m.Chosen())
	assert.False(t, m.Cancelled())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_Cancel(t *testing.T) {
	for _, msg := range []tea.KeyMsg{{Type: tea.KeyEsc}, runes("q"), {Type: tea.KeyCtrlC}} {
		m, cmd := update(t, sized(t), msg)
		assert.True(t, m.Cancelled(), msg.String())
		assert.Equal(t, -1, m.Chosen())
		require.NotNil(t, cmd)
	}
}

func TestModel_ViewShowsTabsAndHelp(t *testing.T) {
	view := sized(t).View()
	assert.Contains(t, view, "Choose a reply (3 candidates)")
	assert.Contains(t, view, "t=0.5")
	assert.Contains(t, view, "t=0.7")
	assert.Contains(t, view, "cancel")
}

func TestModel_RendersLazily(t *testing.T) {
	m := sized(t)
	assert.NotEmpty(t, m.rendered[0])
	assert.Empty(t, m.rendered[1])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.NotEmpty(t, m.rendered[1])
}

// =============================================================================
// PROMPT
// =============================================================================

func TestPrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{name: "valid choice", input: "2\n", want: 1},
		{name: "retry after bad input", input: "zero\n7\n3\n", want: 2},
		{name: "empty line cancels", input: "\n", want: -1, wantErr: resolve.ErrCancelled},
		{name: "eof cancels", input: "", want: -1, wantErr: resolve.ErrCancelled},
		{name: "last line without newline", input: "1", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &Prompt{Renderer: render.Plain{}, In: strings.NewReader(tt.input), Out: &out}

			got, err := p.Pick(context.Background(), candidates())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "second reply")
			assert.Contains(t, out.String(), "Reply 3 of 3")
		})
	}
}

func TestPrompt_DoesNotConsumePastLine(t *testing.T) {
	in := strings.NewReader("1\nnext command\n")
	p := &Prompt{In: in, Out: &bytes.Buffer{}}

	got, err := p.Pick(context.Background(), candidates())
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	rest, err := readLine(in)
	require.NoError(t, err)
	assert.Equal(t, "next command", rest)
}

func TestPrompt_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Prompt{In: strings.NewReader("1\n"), Out: &bytes.Buffer{}}

	_, err := p.Pick(ctx, candidates())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyCandidates(t *testing.T) {
	_, err := (&Prompt{Out: &bytes.Buffer{}}).Pick(context.Background(), nil)
	assert.Error(t, err)
	_, err = (&TUI{}).Pick(context.Background(), nil)
	assert.Error(t, err)
}

func TestForTerminal_NonTTY(t *testing.T) {
	p := ForTerminal(nil, nil, nil)
	prompt, ok := p.(*Prompt)
	require.True(t, ok)
	assert.Nil(t, prompt.In)
	assert.Nil(t, prompt.Out)
}
