// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	urfavecli "github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/ui/picker"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

func keyCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "key",
		Usage: "Manage the stored API key",
		Subcommands: []*urfavecli.Command{
			{
				Name:   "set",
				Usage:  "Store an API key (read from the terminal or stdin)",
				Action: runKeySet,
			},
			{
				Name:   "show",
				Usage:  "Show the API key in use, masked",
				Action: runKeyShow,
			},
			{
				Name:  "delete",
				Usage: "Delete the stored API key",
				Flags: []urfavecli.Flag{
					&urfavecli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: runKeyDelete,
			},
		},
	}
}

func runKeySet(c *urfavecli.Context) error {
	e := envFrom(c)
	store, err := keyStore()
	if err != nil {
		return err
	}

	var secret string
	if IsTTY() && e.tty {
		fmt.Fprint(e.out, "API key: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(e.out)
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		secret = string(raw)
	} else {
		line, err := readSecretLine(e)
		if err != nil {
			return err
		}
		secret = line
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return usageError("key set", "no key given", "echo $OPENROUTER_API_KEY | orchat key set")
	}
	if err := store.Store(e.cfg.API.Credential, secret); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s %s\n", styles.Success.Render("Stored key"), credential.Mask(secret))
	return nil
}

func readSecretLine(e *env) (string, error) {
	buf := make([]byte, 0, 128)
	one := make([]byte, 1)
	for {
		n, err := e.in.Read(one)
		if n == 1 {
			if one[0] == '\n' {
				break
			}
			buf = append(buf, one[0])
		}
		if err != nil {
			break
		}
	}
	return string(buf), nil
}

func runKeyShow(c *urfavecli.Context) error {
	e := envFrom(c)
	secret, err := e.apiKey()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s %s\n", styles.Label.Render(e.cfg.API.Credential+":"), credential.Mask(secret))
	return nil
}

func runKeyDelete(c *urfavecli.Context) error {
	e := envFrom(c)
	store, err := keyStore()
	if err != nil {
		return err
	}
	name := e.cfg.API.Credential
	if !store.Exists(name) {
		fmt.Fprintln(e.out, styles.Muted.Render("No stored key."))
		return nil
	}
	if !c.Bool("yes") {
		if !picker.IsInteractive(os.Stdin, os.Stdout) {
			return usageError("key delete", "confirmation needed", "orchat key delete --yes")
		}
		if !PromptYesNo(os.Stdin, e.out, "Delete the stored API key?") {
			fmt.Fprintln(e.out, styles.Muted.Render("Kept the key."))
			return nil
		}
	}
	if err := store.Delete(name); err != nil {
		return err
	}
	fmt.Fprintln(e.out, styles.Success.Render("Deleted the stored key."))
	return nil
}
