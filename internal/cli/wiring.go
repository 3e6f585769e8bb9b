// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/jeranaias/orchat/internal/catalog"
	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/plan"
	"github.com/jeranaias/orchat/internal/render"
	"github.com/jeranaias/orchat/internal/resolve"
	"github.com/jeranaias/orchat/internal/session"
	"github.com/jeranaias/orchat/internal/ui/picker"
)

// keyStore returns the file keystore in the config directory.
func keyStore() (*credential.FileProvider, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return credential.NewFileProvider(dir), nil
}

// credentials returns the lookup chain: environment, key file, then the
// Windows Credential Manager.
func (e *env) credentials() credential.Provider {
	chain := credential.Chain{credential.EnvProvider{Var: e.cfg.API.KeyEnv}}
	if store, err := keyStore(); err == nil {
		chain = append(chain, store)
	}
	return append(chain, credential.WinCredProvider{})
}

// apiKey looks up the configured credential.
func (e *env) apiKey() (string, error) {
	return credential.Lookup(e.credentials(), e.cfg.API.Credential)
}

func (e *env) client(apiKey string) *cloud.Client {
	return cloud.NewClient(apiKey).
		WithBaseURL(e.cfg.API.BaseURL).
		WithTimeout(e.cfg.API.Timeout).
		WithSite(e.cfg.API.SiteURL, e.cfg.API.SiteName).
		WithMaxDecodeFailures(e.cfg.Chat.MaxDecodeFailures).
		WithLogger(e.logger)
}

// catalog returns the model catalog. The listing is public, so a missing
// key is not an error here.
func (e *env) catalog() *catalog.Catalog {
	key, _ := e.apiKey()
	return catalog.New(e.cfg.Catalog.CacheFile, e.client(key), catalog.WithLogger(e.logger))
}

func (e *env) orchestrator(client orchestrator.Completer, obs orchestrator.Observer) *orchestrator.Orchestrator {
	opts := []orchestrator.Option{
		orchestrator.WithObserver(obs),
		orchestrator.WithLogger(e.logger),
		orchestrator.WithRateLimit(e.cfg.Chat.RequestsPerSecond),
		orchestrator.WithStreaming(!e.noStream),
	}
	if e.cfg.Chat.Parallel {
		opts = append(opts, orchestrator.WithParallel(plan.MaxCandidates))
	}
	return orchestrator.New(client, opts...)
}

// renderer returns the terminal renderer on a TTY and plain text otherwise.
func (e *env) renderer() render.Renderer {
	if !e.tty || !ColorsEnabled() {
		return render.Plain{}
	}
	r, err := render.NewTerminal(render.TerminalOptions{
		Style:    e.cfg.UI.Style,
		WordWrap: min(e.cfg.UI.WordWrap, TerminalWidth()),
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("markdown rendering disabled")
		return render.Plain{}
	}
	return r
}

func (e *env) picker(r render.Renderer) resolve.Picker {
	if e.tty {
		return picker.ForTerminal(os.Stdin, os.Stdout, r)
	}
	return &picker.Prompt{Renderer: r, In: e.in, Out: e.errOut}
}

// controller wires a session controller for one command.
func (e *env) controller(runner orchestrator.Runner, p resolve.Picker, n session.Notifier) (*session.Controller, error) {
	settings, err := session.SettingsFromConfig(e.cfg.Chat)
	if err != nil {
		return nil, err
	}
	return session.New(settings, runner, p, n, session.WithLogger(e.logger))
}
