// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	urfavecli "github.com/urfave/cli/v2"

	"github.com/jeranaias/orchat/internal/catalog"
	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/resolve"
	"github.com/jeranaias/orchat/internal/session"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
)

func chatCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:   "chat",
		Usage:  "Start an interactive chat session",
		Action: runChat,
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides line editing and persistent input history.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(historyFile string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &lineReader{line: line, historyFile: historyFile}
	r.loadHistory()
	return r
}

func (r *lineReader) loadHistory() {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line and records it in the history.
func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Confirm asks a yes/no question on the same line editor.
func (r *lineReader) Confirm(question string) bool {
	answer, err := r.line.Prompt(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (r *lineReader) saveHistory() {
	if r.historyFile == "" {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (r *lineReader) Close() {
	r.saveHistory()
	r.line.Close()
}

// =============================================================================
// REPL STATE
// =============================================================================

type repl struct {
	env      *env
	ctrl     *session.Controller
	catalog  *catalog.Catalog
	terminal render.Renderer
	html     *render.HTML
	progress *progressPrinter
	confirm  YesNoFunc
	out      io.Writer
	errOut   io.Writer

	mu      sync.Mutex
	cancel  context.CancelFunc
	pending *config.Config
}

// newREPL assembles the chat loop around ctrl.
func newREPL(e *env, ctrl *session.Controller, cat *catalog.Catalog, term render.Renderer, progress *progressPrinter) *repl {
	return &repl{
		env:      e,
		ctrl:     ctrl,
		catalog:  cat,
		terminal: term,
		html:     render.NewHTML(render.DefaultCodeStyle),
		progress: progress,
		confirm:  func(string) bool { return false },
		out:      e.out,
		errOut:   e.errOut,
	}
}

// cancelRun cancels the turn in flight, if any.
func (r *repl) cancelRun() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}

func (r *repl) setCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
}

// onConfigChange is called by the config watcher. The new settings are
// applied before the next turn, never during one.
func (r *repl) onConfigChange(cfg config.Config, err error) {
	if err != nil {
		r.env.logger.Warn().Err(err).Msg("config reload failed")
		return
	}
	if r.env.overrides != nil {
		r.env.overrides(&cfg)
	}
	r.mu.Lock()
	r.pending = &cfg
	r.mu.Unlock()
}

func (r *repl) applyPendingConfig() {
	r.mu.Lock()
	cfg := r.pending
	r.pending = nil
	r.mu.Unlock()
	if cfg == nil {
		return
	}

	settings, err := session.SettingsFromConfig(cfg.Chat)
	if err == nil {
		err = r.ctrl.UpdateSettings(settings)
	}
	if err != nil {
		fmt.Fprintf(r.errOut, "%s config not reloaded: %v\n", styles.Warning.Render("[Warning]"), err)
		return
	}
	r.env.cfg = *cfg
	fmt.Fprintln(r.out, styles.Muted.Render("Configuration reloaded."))
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func runChat(c *urfavecli.Context) error {
	e := envFrom(c)
	key, err := e.apiKey()
	if err != nil {
		return err
	}

	term := e.renderer()
	progress := newProgressPrinter(e.errOut, e.errTTY)
	ctrl, err := e.controller(
		e.orchestrator(e.client(key), progress),
		e.picker(term),
		newNotifier(e.errOut, e.tty),
	)
	if err != nil {
		return err
	}
	r := newREPL(e, ctrl, e.catalog(), term, progress)

	line := newLineReader(e.cfg.UI.HistoryFile)
	defer line.Close()
	r.confirm = line.Confirm

	// Ctrl+C during a turn cancels the turn; at the prompt liner handles it
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sigDone := make(chan struct{})
	defer func() {
		signal.Stop(sigChan)
		close(sigDone)
	}()
	go watchInterrupts(sigChan, sigDone, r.cancelRun)

	watchCtx, stopWatch := context.WithCancel(c.Context)
	defer stopWatch()
	go func() {
		if err := config.Watch(watchCtx, e.cfgPath, r.onConfigChange); err != nil {
			e.logger.Debug().Err(err).Msg("config watch disabled")
		}
	}()

	r.printWelcome()
	for {
		input, err := line.ReadInput(promptStyle.Render("orchat> "))
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				e.logger.Debug().Err(err).Msg("input closed")
			}
			fmt.Fprintln(r.out)
			r.printSummary()
			return nil
		}

		r.applyPendingConfig()
		if r.handleInput(c.Context, input) {
			r.printSummary()
			return nil
		}
	}
}

// watchInterrupts calls cancel for every signal until done is closed.
func watchInterrupts(sigs <-chan os.Signal, done <-chan struct{}, cancel func() bool) {
	for {
		select {
		case <-sigs:
			cancel()
		case <-done:
			return
		}
	}
}

// handleInput processes one line. It returns true when the session should
// end.
func (r *repl) handleInput(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return false
	case strings.HasPrefix(input, "/"):
		quit, err := r.handleCommand(ctx, input)
		if err != nil {
			DisplayError(r.errOut, err)
		}
		return quit
	case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
		return true
	}

	if err := r.send(ctx, input); err != nil {
		DisplayError(r.errOut, err)
	}
	return false
}

// turn runs fn with a cancellable context registered for Ctrl+C.
func (r *repl) turn(ctx context.Context, fn func(context.Context) (resolve.Result, error)) (resolve.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	r.setCancel(cancel)
	defer func() {
		r.cancelRun()
		cancel()
	}()
	r.progress.expect(r.ctrl.Settings().Candidates)
	return fn(runCtx)
}

func (r *repl) send(ctx context.Context, text string) error {
	result, err := r.turn(ctx, func(ctx context.Context) (resolve.Result, error) {
		return r.ctrl.Send(ctx, text)
	})
	if err != nil {
		return err
	}
	r.showResult(result)
	return nil
}

// showResult prints an accepted reply. Other outcomes were already
// reported by the notifier.
func (r *repl) showResult(result resolve.Result) {
	if result.Kind != resolve.Accepted {
		return
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, strings.TrimRight(render.Safe(r.terminal, result.Message.Content), "\n"))
	if !result.Auto {
		fmt.Fprintln(r.out, styles.Muted.Render(fmt.Sprintf("(reply %d chosen)", result.Picked+1)))
	}
	fmt.Fprintln(r.out)
}

func (r *repl) printWelcome() {
	s := r.ctrl.Settings()
	fmt.Fprintln(r.out, welcomeStyle.Render("orchat"))
	fmt.Fprintf(r.out, "%s %s · %d %s per turn\n",
		styles.Label.Render("Model:"), s.Model, s.Candidates, plural(s.Candidates, "reply", "replies"))
	fmt.Fprintln(r.out, styles.Muted.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(r.out)
}

func (r *repl) printSummary() {
	fmt.Fprintf(r.out, "%s %d messages in %s\n",
		styles.Label.Render("Session:"), r.ctrl.Len(), formatDuration(r.ctrl.Duration()))
}
