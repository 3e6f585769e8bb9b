// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	urfavecli "github.com/urfave/cli/v2"

	"github.com/jeranaias/orchat/internal/catalog"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

func modelsCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "models",
		Usage: "Browse the model catalog",
		Subcommands: []*urfavecli.Command{
			{
				Name:  "list",
				Usage: "List available models",
				Flags: []urfavecli.Flag{
					&urfavecli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Fetch a fresh list first"},
					&urfavecli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only models whose id or name contains `TEXT`"},
				},
				Action: runModelsList,
			},
			{
				Name:   "refresh",
				Usage:  "Fetch the model list and update the cache",
				Action: runModelsRefresh,
			},
			{
				Name:      "show",
				Usage:     "Show one model",
				ArgsUsage: "ID|NAME",
				Action:    runModelsShow,
			},
		},
	}
}

// loadCatalog loads the cached list, refreshing it when asked or stale. A
// failed refresh of a stale cache only warns.
func loadCatalog(c *urfavecli.Context, e *env, refresh bool) (*catalog.Catalog, error) {
	cat := e.catalog()
	if refresh {
		return cat, cat.Refresh(c.Context)
	}
	if err := cat.Load(c.Context); err != nil {
		return nil, err
	}
	if cat.Stale(e.cfg.Catalog.MaxAge) {
		if err := cat.Refresh(c.Context); err != nil {
			fmt.Fprintf(e.errOut, "%s model list is out of date: %v\n", styles.Warning.Render("[Warning]"), err)
		}
	}
	return cat, nil
}

func runModelsList(c *urfavecli.Context) error {
	e := envFrom(c)
	cat, err := loadCatalog(c, e, c.Bool("refresh"))
	if err != nil {
		return err
	}

	models := cat.Search(c.String("search"))
	width := 0
	if e.tty {
		width = TerminalWidth()
	}
	if err := catalog.WriteTable(e.out, models, width); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "\n%s\n", styles.Muted.Render(fmt.Sprintf("%d models · fetched %s",
		len(models), cat.Fetched().Format("2006-01-02 15:04"))))
	return nil
}

func runModelsRefresh(c *urfavecli.Context) error {
	e := envFrom(c)
	cat, err := loadCatalog(c, e, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s %d models\n", styles.Success.Render("Fetched"), len(cat.Models()))
	return nil
}

func runModelsShow(c *urfavecli.Context) error {
	e := envFrom(c)
	name := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if name == "" {
		return usageError("models show", "no model given", "orchat models show openai/gpt-4o-mini")
	}
	cat, err := loadCatalog(c, e, false)
	if err != nil {
		return err
	}
	m, err := cat.Lookup(name)
	if err != nil {
		return err
	}
	fmt.Fprint(e.out, catalog.Describe(m))
	return nil
}
