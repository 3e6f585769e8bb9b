// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

// =============================================================================
// PROGRESS
// =============================================================================

// progressPrinter shows a one-line status while candidates arrive. Status
// lines are only drawn on a terminal; failures are always reported.
type progressPrinter struct {
	w       io.Writer
	live    bool
	drawn   int
	planned int
}

func newProgressPrinter(w io.Writer, live bool) *progressPrinter {
	return &progressPrinter{w: w, live: live}
}

// expect sets the number of candidates the next run plans.
func (p *progressPrinter) expect(n int) {
	p.planned = n
}

func (p *progressPrinter) OnProgress(pr orchestrator.Progress) {
	if !p.live {
		return
	}
	line := fmt.Sprintf("receiving reply %d", pr.Candidate+1)
	if p.planned > 1 {
		line += fmt.Sprintf(" of %d", p.planned)
	}
	line += fmt.Sprintf(" · %d chunks", pr.Fragments)
	p.draw(styles.Muted.Render(line))
}

func (p *progressPrinter) OnFailure(index int, err error) {
	p.clear()
	fmt.Fprintf(p.w, "%s reply %d failed: %v\n", styles.Warning.Render("[Warning]"), index+1, err)
}

func (p *progressPrinter) OnComplete(o orchestrator.Outcome) {
	p.clear()
	if o.Cancelled {
		fmt.Fprintln(p.w, styles.Warning.Render("[Cancelled]"))
	}
}

func (p *progressPrinter) draw(line string) {
	pad := p.drawn - len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(p.w, "\r%s%s", line, strings.Repeat(" ", pad))
	p.drawn = len(line)
}

func (p *progressPrinter) clear() {
	if p.drawn == 0 {
		return
	}
	fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.drawn))
	p.drawn = 0
}

// =============================================================================
// NOTICES
// =============================================================================

// notifier prints controller notices. copyText, when set, puts a lost
// message on the clipboard.
type notifier struct {
	w        io.Writer
	copyText func(string) error
}

func newNotifier(w io.Writer, useClipboard bool) *notifier {
	n := &notifier{w: w}
	if useClipboard && !clipboard.Unsupported {
		n.copyText = clipboard.WriteAll
	}
	return n
}

func (n *notifier) NoResponses(lost string) {
	fmt.Fprintf(n.w, "%s No replies were received. Your message was removed from the conversation.\n",
		styles.Warning.Render("[Warning]"))
	if lost == "" {
		return
	}
	if n.copyText != nil {
		if err := n.copyText(lost); err == nil {
			fmt.Fprintln(n.w, styles.Muted.Render("Your message was copied to the clipboard."))
			return
		}
	}
	fmt.Fprintln(n.w, styles.Muted.Render("Your message was:"))
	for _, line := range strings.Split(lost, "\n") {
		fmt.Fprintln(n.w, "  "+line)
	}
}

func (n *notifier) Info(msg string) {
	fmt.Fprintln(n.w, styles.Muted.Render(msg))
}
