// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

// Lines taken by the title, tabs, frame border and help footer.
const chromeHeight = 6

// Model is the bubbletea model for choosing a candidate.
type Model struct {
	candidates []orchestrator.Candidate
	renderer   render.Renderer
	rendered   []string

	active    int
	chosen    int
	cancelled bool

	viewport viewport.Model
	ready    bool
	keys     KeyMap
	help     help.Model
}

// NewModel builds a picker model. renderer may be nil for plain text.
func NewModel(candidates []orchestrator.Candidate, renderer render.Renderer) Model {
	if renderer == nil {
		renderer = render.Plain{}
	}
	return Model{
		candidates: candidates,
		renderer:   renderer,
		rendered:   make([]string, len(candidates)),
		chosen:     -1,
		keys:       DefaultKeyMap(),
		help:       help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Chosen returns the selected index, or -1.
func (m Model) Chosen() int {
	return m.chosen
}

// Cancelled reports whether the picker was dismissed.
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Active returns the index of the tab on screen.
func (m Model) Active() int {
	return m.active
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - chromeHeight
		if height < 3 {
			height = 3
		}
		width := msg.Width - 2
		if width < 10 {
			width = 10
		}
		if !m.ready {
			m.viewport = viewport.New(width, height)
			m.ready = true
		} else {
			m.viewport.Width = width
			m.viewport.Height = height
		}
		m.help.Width = msg.Width
		m.showActive()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case len(m.candidates) == 0:
			return m, nil
		case key.Matches(msg, m.keys.Select):
			m.chosen = m.active
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.setActive((m.active + 1) % len(m.candidates))
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.setActive((m.active - 1 + len(m.candidates)) % len(m.candidates))
			return m, nil
		}
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(m.candidates) {
				m.setActive(i)
			}
			return m, nil
		}
	}

	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) setActive(i int) {
	if i == m.active {
		return
	}
	m.active = i
	m.showActive()
}

// showActive loads the active candidate into the viewport, rendering it on
// first view.
func (m *Model) showActive() {
	if !m.ready || len(m.candidates) == 0 {
		return
	}
	if m.rendered[m.active] == "" {
		m.rendered[m.active] = render.Safe(m.renderer, m.candidates[m.active].Content)
	}
	m.viewport.SetContent(m.rendered[m.active])
	m.viewport.GotoTop()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading replies..."
	}

	var sb strings.Builder
	sb.WriteString(styles.Title.Render(fmt.Sprintf("Choose a reply (%d candidates)", len(m.candidates))))
	sb.WriteString("\n")
	sb.WriteString(m.tabs())
	sb.WriteString("\n")
	sb.WriteString(styles.Frame.Render(m.viewport.View()))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) tabs() string {
	tabs := make([]string, len(m.candidates))
	for i, c := range m.candidates {
		label := fmt.Sprintf("%d · t=%.2g", i+1, c.Temperature)
		if i == m.active {
			tabs[i] = styles.ActiveTab.Render(label)
		} else {
			tabs[i] = styles.Tab.Render(label)
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.ready && m.viewport.TotalLineCount() > m.viewport.Height {
		row += styles.Muted.Render(fmt.Sprintf("  %3.f%%", m.viewport.ScrollPercent()*100))
	}
	return row
}
