// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/orchat/internal/catalog"
	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/plan"
	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/resolve"
	"github.com/jeranaias/orchat/internal/ui/styles"
	"github.com/jeranaias/orchat/internal/util"
)

// slashCommand describes one interactive command.
type slashCommand struct {
	name    string
	aliases []string
	args    string
	help    string
	run     func(r *repl, ctx context.Context, args string) (quit bool, err error)
}

var slashCommands []slashCommand

func init() {
	slashCommands = []slashCommand{
		{name: "help", aliases: []string{"h", "?"}, help: "Show available commands", run: (*repl).cmdHelp},
		{name: "clear", aliases: []string{"c"}, help: "Clear the conversation", run: (*repl).cmdClear},
		{name: "edit", aliases: []string{"e"}, args: "N text", help: "Replace message N and rerun from there", run: (*repl).cmdEdit},
		{name: "history", help: "List the conversation", run: (*repl).cmdHistory},
		{name: "model", aliases: []string{"m"}, args: "[id]", help: "Show or switch the model", run: (*repl).cmdModel},
		{name: "n", args: "K", help: "Request K replies per turn (1-6)", run: (*repl).cmdCandidates},
		{name: "temp", args: "T", help: "Set the single-reply temperature", run: (*repl).cmdTemperature},
		{name: "export", args: "FILE.html", help: "Save the conversation as HTML", run: (*repl).cmdExport},
		{name: "quit", aliases: []string{"q", "exit"}, help: "Exit", run: (*repl).cmdQuit},
	}
}

// parseSlash splits "/name args" into its parts.
func parseSlash(input string) (name, args string) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "/")
	name, args, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func findCommand(name string) (slashCommand, bool) {
	for _, c := range slashCommands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return slashCommand{}, false
}

// handleCommand runs a slash command.
func (r *repl) handleCommand(ctx context.Context, input string) (bool, error) {
	name, args := parseSlash(input)
	cmd, ok := findCommand(name)
	if !ok {
		return false, fmt.Errorf("unknown command /%s, type /help for a list", name)
	}
	return cmd.run(r, ctx, args)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (r *repl) cmdHelp(context.Context, string) (bool, error) {
	fmt.Fprintln(r.out, styles.Title.Render("Commands"))
	for _, c := range slashCommands {
		usage := "/" + c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(r.out, "  %s %s\n", commandStyle.Render(util.PadWidth(usage, 20)), c.help)
	}
	fmt.Fprintf(r.out, "  %s %s\n", commandStyle.Render(util.PadWidth("Ctrl+C", 20)), "Cancel the replies in flight")
	return false, nil
}

func (r *repl) cmdClear(context.Context, string) (bool, error) {
	if r.ctrl.Len() == 0 {
		fmt.Fprintln(r.out, styles.Muted.Render("Nothing to clear."))
		return false, nil
	}
	if !r.confirm("Clear the whole conversation?") {
		fmt.Fprintln(r.out, styles.Muted.Render("Kept the conversation."))
		return false, nil
	}
	r.ctrl.Clear()
	fmt.Fprintln(r.out, styles.Success.Render("Conversation cleared."))
	return false, nil
}

func (r *repl) cmdEdit(ctx context.Context, args string) (bool, error) {
	indexArg, text, _ := strings.Cut(args, " ")
	n, err := strconv.Atoi(indexArg)
	if err != nil || strings.TrimSpace(text) == "" {
		return false, usageError("/edit", "expected a message number and the new text", "/edit 1 What is Go?")
	}

	var rerun bool
	result, err := r.turn(ctx, func(ctx context.Context) (resolve.Result, error) {
		res, again, err := r.ctrl.Edit(ctx, n-1, text)
		rerun = again
		return res, err
	})
	if err != nil {
		if errors.Is(err, conversation.ErrIndexOutOfRange) {
			return false, usageError("/edit", fmt.Sprintf("no message %d, see /history", n), "")
		}
		return false, err
	}
	if !rerun {
		fmt.Fprintln(r.out, styles.Success.Render(fmt.Sprintf("Message %d updated.", n)))
		return false, nil
	}
	r.showResult(result)
	return false, nil
}

func (r *repl) cmdHistory(context.Context, string) (bool, error) {
	history := r.ctrl.History()
	if len(history) == 0 {
		fmt.Fprintln(r.out, styles.Muted.Render("No messages yet."))
		return false, nil
	}
	width := TerminalWidth() - 16
	for i, m := range history {
		fmt.Fprintf(r.out, "%3d  %s %s\n", i+1,
			styles.Label.Render(util.PadWidth(m.Role.DisplayName(), 10)),
			util.FirstLine(m.Content, width))
	}
	return false, nil
}

func (r *repl) cmdModel(ctx context.Context, args string) (bool, error) {
	if args == "" {
		current := r.ctrl.Settings().Model
		if m, err := r.lookupModel(ctx, current); err == nil {
			fmt.Fprint(r.out, catalog.Describe(m))
		} else {
			fmt.Fprintf(r.out, "%s %s\n", styles.Label.Render("Model:"), current)
		}
		return false, nil
	}

	id := args
	m, err := r.lookupModel(ctx, args)
	switch {
	case err == nil:
		id = m.ID
	case errors.Is(err, catalog.ErrModelNotFound):
		fmt.Fprintf(r.errOut, "%s %q is not in the model list, using it as given.\n", styles.Warning.Render("[Warning]"), args)
	default:
		r.env.logger.Debug().Err(err).Msg("model catalog unavailable")
	}
	if err := r.ctrl.SetModel(id); err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "%s %s\n", styles.Success.Render("Model set to"), id)
	return false, nil
}

// lookupModel loads the catalog on first use.
func (r *repl) lookupModel(ctx context.Context, name string) (catalog.Model, error) {
	if r.catalog == nil {
		return catalog.Model{}, errors.New("no model catalog")
	}
	if len(r.catalog.Models()) == 0 {
		if err := r.catalog.Load(ctx); err != nil {
			return catalog.Model{}, err
		}
	}
	return r.catalog.Lookup(name)
}

func (r *repl) cmdCandidates(_ context.Context, args string) (bool, error) {
	n, err := strconv.Atoi(args)
	if err != nil {
		return false, usageError("/n", "expected a number of replies", "/n 3")
	}
	clamped := plan.Clamp(n)
	if clamped != n {
		fmt.Fprintf(r.errOut, "%s using %d, the allowed range is %d-%d.\n",
			styles.Warning.Render("[Warning]"), clamped, plan.MinCandidates, plan.MaxCandidates)
	}
	if err := r.ctrl.SetCandidates(clamped); err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "%s %d %s per turn\n", styles.Success.Render("Requesting"), clamped, plural(clamped, "reply", "replies"))
	return false, nil
}

func (r *repl) cmdTemperature(_ context.Context, args string) (bool, error) {
	t, err := strconv.ParseFloat(args, 64)
	if err != nil {
		return false, usageError("/temp", "expected a number", "/temp 0.7")
	}
	if err := r.ctrl.SetTemperature(t); err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "%s %g\n", styles.Success.Render("Temperature set to"), t)
	return false, nil
}

func (r *repl) cmdExport(_ context.Context, args string) (bool, error) {
	path := args
	if path == "" {
		path = fmt.Sprintf("orchat-%s.html", time.Now().Format("20060102-150405"))
	}
	err := render.ExportHTMLFile(path, r.html, r.ctrl.History(), render.ExportOptions{
		Title:             "orchat conversation",
		Model:             r.ctrl.Settings().Model,
		IncludeTimestamps: true,
	})
	if err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "%s %s\n", styles.Success.Render("Exported to"), path)
	return false, nil
}

func (r *repl) cmdQuit(context.Context, string) (bool, error) {
	return true, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// formatDuration formats d for the session summary.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
