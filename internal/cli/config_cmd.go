// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	urfavecli "github.com/urfave/cli/v2"

	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/ui/picker"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

func configCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "config",
		Usage: "Show or reset the configuration",
		Subcommands: []*urfavecli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration, flags and environment included",
				Action: runConfigShow,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file location",
				Action: runConfigPath,
			},
			{
				Name:  "reset",
				Usage: "Write the default configuration to the file",
				Flags: []urfavecli.Flag{
					&urfavecli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: runConfigReset,
			},
		},
		Action: runConfigShow,
	}
}

func runConfigShow(c *urfavecli.Context) error {
	e := envFrom(c)
	fmt.Fprintln(e.out, styles.Muted.Render("# "+e.cfgPath))
	if err := toml.NewEncoder(e.out).Encode(e.cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func runConfigPath(c *urfavecli.Context) error {
	e := envFrom(c)
	fmt.Fprintln(e.out, e.cfgPath)
	return nil
}

func runConfigReset(c *urfavecli.Context) error {
	e := envFrom(c)
	if _, err := os.Stat(e.cfgPath); err == nil && !c.Bool("yes") {
		if !picker.IsInteractive(os.Stdin, os.Stdout) {
			return usageError("config reset", "confirmation needed", "orchat config reset --yes")
		}
		if !PromptYesNo(os.Stdin, e.out, fmt.Sprintf("Overwrite %s with the defaults?", e.cfgPath)) {
			fmt.Fprintln(e.out, styles.Muted.Render("Kept the configuration."))
			return nil
		}
	}
	if err := config.Save(config.Default(), e.cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s %s\n", styles.Success.Render("Wrote defaults to"), e.cfgPath)
	return nil
}
