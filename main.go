// orchat - chat with OpenRouter models and pick the best of several replies.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/orchat/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	app := cli.NewApp(Version + " (" + GitCommit + ", " + BuildDate + ")")
	if err := app.Run(os.Args); err != nil {
		cli.DisplayError(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
