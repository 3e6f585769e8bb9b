// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	urfavecli "github.com/urfave/cli/v2"

	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/resolve"
)

// errNoReplies is returned by ask when every candidate failed.
var errNoReplies = errors.New("no replies were received")

func askCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:      "ask",
		Usage:     "Ask a single question",
		ArgsUsage: "QUESTION",
		Description: `Sends one question and prints the reply. With several candidates
the picker opens first. The question may also be piped on stdin:

   orchat ask "What is a goroutine?"
   echo "Explain this" | orchat ask -n 3`,
		Action: runAsk,
	}
}

func runAsk(c *urfavecli.Context) error {
	e := envFrom(c)

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" && !IsTTY() {
		data, err := io.ReadAll(e.in)
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		question = strings.TrimSpace(string(data))
		// The picker can no longer read from the consumed stdin
		e.in = strings.NewReader("")
	}
	if question == "" {
		return usageError("ask", "no question given", `orchat ask "What is a goroutine?"`)
	}

	key, err := e.apiKey()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	term := e.renderer()
	progress := newProgressPrinter(e.errOut, e.errTTY)
	ctrl, err := e.controller(
		e.orchestrator(e.client(key), progress),
		e.picker(term),
		newNotifier(e.errOut, false),
	)
	if err != nil {
		return err
	}
	progress.expect(ctrl.Settings().Candidates)

	result, err := ctrl.Send(ctx, question)
	if err != nil {
		return err
	}
	switch result.Kind {
	case resolve.Accepted:
		out := render.Safe(term, result.Message.Content)
		fmt.Fprintln(e.out, strings.TrimRight(out, "\n"))
	case resolve.NoResponses:
		return errNoReplies
	}
	return nil
}
