// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/resolve"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

var errNoCandidates = errors.New("nothing to pick from")

// =============================================================================
// TERMINAL PICKER
// =============================================================================

// TUI is a full-screen picker.
type TUI struct {
	Renderer render.Renderer
	Input    io.Reader
	Output   io.Writer
}

// Pick implements resolve.Picker.
func (p *TUI) Pick(ctx context.Context, candidates []orchestrator.Candidate) (int, error) {
	if len(candidates) == 0 {
		return -1, errNoCandidates
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if p.Input != nil {
		opts = append(opts, tea.WithInput(p.Input))
	}
	if p.Output != nil {
		opts = append(opts, tea.WithOutput(p.Output))
	}

	final, err := tea.NewProgram(NewModel(candidates, p.Renderer), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return -1, fmt.Errorf("picker: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.Cancelled() || m.Chosen() < 0 {
		return -1, resolve.ErrCancelled
	}
	return m.Chosen(), nil
}

// =============================================================================
// LINE PROMPT
// =============================================================================

// Prompt prints every candidate and reads a number. An empty line or end of
// input cancels.
type Prompt struct {
	Renderer render.Renderer
	In       io.Reader
	Out      io.Writer
}

// Pick implements resolve.Picker.
func (p *Prompt) Pick(ctx context.Context, candidates []orchestrator.Candidate) (int, error) {
	if len(candidates) == 0 {
		return -1, errNoCandidates
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	in := p.In
	if in == nil {
		in = os.Stdin
	}

	for i, c := range candidates {
		header := fmt.Sprintf("── Reply %d of %d (temperature %.2g) ──", i+1, len(candidates), c.Temperature)
		fmt.Fprintln(out, styles.Title.Render(header))
		fmt.Fprintln(out, strings.TrimRight(render.Safe(p.Renderer, c.Content), "\n"))
		fmt.Fprintln(out)
	}

	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		fmt.Fprintf(out, "Choose 1-%d (enter to cancel): ", len(candidates))
		line, err := readLine(in)
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				fmt.Fprintln(out)
			}
			return -1, resolve.ErrCancelled
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil || n < 1 || n > len(candidates) {
			fmt.Fprintln(out, styles.Warning.Render(fmt.Sprintf("Enter a number between 1 and %d.", len(candidates))))
			if err != nil {
				return -1, resolve.ErrCancelled
			}
			continue
		}
		return n - 1, nil
	}
}

// readLine reads up to a newline one byte at a time so that no input past
// the line is consumed; the REPL reads the same stream afterwards.
func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			return sb.String(), err
		}
	}
}

// =============================================================================
// SELECTION
// =============================================================================

// IsInteractive reports whether both files are terminals.
func IsInteractive(in, out *os.File) bool {
	return in != nil && out != nil && term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd()))
}

// ForTerminal returns the TUI picker when in and out are terminals and the
// line prompt otherwise.
func ForTerminal(in, out *os.File, renderer render.Renderer) resolve.Picker {
	if IsInteractive(in, out) {
		return &TUI{Renderer: renderer, Input: in, Output: out}
	}
	p := &Prompt{Renderer: renderer}
	if in != nil {
		p.In = in
	}
	if out != nil {
		p.Out = out
	}
	return p
}
