// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	urfavecli "github.com/urfave/cli/v2"

	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/logging"
	"github.com/jeranaias/orchat/internal/plan"
)

const envKey = "orchat.env"

// NewApp builds the orchat command line application.
func NewApp(version string) *urfavecli.App {
	return &urfavecli.App{
		Name:    "orchat",
		Usage:   "Chat with OpenRouter models and pick the best of several replies",
		Version: version,
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"ORCHAT_CONFIG"},
			},
			&urfavecli.StringFlag{
				Name:  "log-level",
				Usage: "Log `LEVEL`: debug, info, warn, error or off",
			},
			&urfavecli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Model `ID` to use",
			},
			&urfavecli.IntFlag{
				Name:    "candidates",
				Aliases: []string{"n"},
				Usage:   "Replies to request per turn (1-6)",
			},
			&urfavecli.Float64Flag{
				Name:    "temperature",
				Aliases: []string{"t"},
				Usage:   "Temperature for single-reply turns",
			},
			&urfavecli.BoolFlag{
				Name:  "parallel",
				Usage: "Request candidates concurrently",
			},
			&urfavecli.BoolFlag{
				Name:  "no-stream",
				Usage: "Wait for whole replies instead of streaming",
			},
		},
		Before: setup,
		After:  teardown,
		Action: runChat,
		Commands: []*urfavecli.Command{
			chatCommand(),
			askCommand(),
			modelsCommand(),
			keyCommand(),
			configCommand(),
		},
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// env is the per-invocation state shared by every command.
type env struct {
	cfg      config.Config
	cfgPath  string
	logger   zerolog.Logger
	closeLog func() error
	noStream bool

	// overrides re-applies command line flags, also after a config reload.
	overrides func(*config.Config)

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// tty is true when output goes to an interactive terminal.
	tty bool

	// errTTY is true when status lines can be redrawn on errOut.
	errTTY bool
}

func envFrom(c *urfavecli.Context) *env {
	e, _ := c.App.Metadata[envKey].(*env)
	return e
}

// setup loads the configuration, applies flags and builds the logger.
func setup(c *urfavecli.Context) error {
	path := c.String("config")
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	overrides := func(cfg *config.Config) {
		if c.IsSet("model") {
			cfg.Chat.Model = c.String("model")
		}
		if c.IsSet("candidates") {
			cfg.Chat.Candidates = plan.Clamp(c.Int("candidates"))
		}
		if c.IsSet("temperature") {
			cfg.Chat.Temperature = c.Float64("temperature")
		}
		if c.IsSet("parallel") {
			cfg.Chat.Parallel = c.Bool("parallel")
		}
		if c.IsSet("log-level") {
			cfg.Log.Level = c.String("log-level")
		}
	}
	overrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	if c.IsSet("candidates") && cfg.Chat.Candidates != c.Int("candidates") {
		logger.Warn().Int("candidates", cfg.Chat.Candidates).Msg("candidate count clamped")
	}

	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	errOut := c.App.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[envKey] = &env{
		cfg:       cfg,
		cfgPath:   path,
		logger:    logger,
		closeLog:  closeLog,
		noStream:  c.Bool("no-stream"),
		overrides: overrides,
		in:        in,
		out:       out,
		errOut:    errOut,
		tty:       out == io.Writer(os.Stdout) && IsStdoutTTY(),
		errTTY:    errOut == io.Writer(os.Stderr) && IsStderrTTY(),
	}
	lipgloss.SetColorProfile(ColorProfile())

	logger.Debug().Str("config", path).Str("model", cfg.Chat.Model).Int("candidates", cfg.Chat.Candidates).Msg("configuration loaded")
	return nil
}

func teardown(c *urfavecli.Context) error {
	if e := envFrom(c); e != nil && e.closeLog != nil {
		return e.closeLog()
	}
	return nil
}
