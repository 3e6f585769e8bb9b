// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp directory and runs from another
// temp directory so a stray .env cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Chdir(t.TempDir())
	return home
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Chat.Model)
	assert.Equal(t, 1, cfg.Chat.Candidates)
	assert.Equal(t, DefaultTemperature, cfg.Chat.Temperature)
	assert.Equal(t, filepath.Join(home, "models.json"), cfg.Catalog.CacheFile)
	assert.Equal(t, filepath.Join(home, "history"), cfg.UI.HistoryFile)
}

// =============================================================================
// FILE LOADING
// =============================================================================

func TestLoad_TOML(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
timeout = "30s"

[chat]
model = "anthropic/claude-3.5-sonnet"
candidates = 4
temperature = 0.9
reasoning_effort = "high"
max_decode_failures = 20
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-3.5-sonnet", cfg.Chat.Model)
	assert.Equal(t, 4, cfg.Chat.Candidates)
	assert.Equal(t, 0.9, cfg.Chat.Temperature)
	assert.Equal(t, "high", cfg.Chat.ReasoningEffort)
	assert.Equal(t, 20, cfg.Chat.MaxDecodeFailures)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	// Untouched sections keep their defaults
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\ncandidatez = 2\n"), 0600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.candidatez")
}

func TestLoadFile_NotFound(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidValues(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[chat]\ncandidates = 9\nreasoning_effort = \"max\"\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{"chat.candidates", "chat.reasoning_effort"}, fields)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Chat.Model = "meta-llama/llama-3.1-70b-instruct"
	cfg.Chat.Candidates = 3
	cfg.Chat.Parallel = true

	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORCHAT_MODEL", "env/model")
	t.Setenv("ORCHAT_CANDIDATES", "5")
	t.Setenv("ORCHAT_TEMPERATURE", "1.1")
	t.Setenv("ORCHAT_PARALLEL", "true")
	t.Setenv("ORCHAT_LOG_LEVEL", "debug")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())

	assert.Equal(t, "env/model", cfg.Chat.Model)
	assert.Equal(t, 5, cfg.Chat.Candidates)
	assert.Equal(t, 1.1, cfg.Chat.Temperature)
	assert.True(t, cfg.Chat.Parallel)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvOverrides_BadNumber(t *testing.T) {
	t.Setenv("ORCHAT_CANDIDATES", "three")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnvOverrides())
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("ORCHAT_MODEL=dotenv/model\n"), 0600))
	// godotenv sets the variable process-wide; register cleanup through t.Setenv
	t.Setenv("ORCHAT_MODEL", "")
	require.NoError(t, os.Unsetenv("ORCHAT_MODEL"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv/model", cfg.Chat.Model)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "openrouter.ai" }, "api.base_url"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host/x" }, "api.base_url"},
		{"empty model", func(c *Config) { c.Chat.Model = "  " }, "chat.model"},
		{"zero candidates", func(c *Config) { c.Chat.Candidates = 0 }, "chat.candidates"},
		{"hot temperature", func(c *Config) { c.Chat.Temperature = 2.5 }, "chat.temperature"},
		{"negative context", func(c *Config) { c.Chat.ContextLength = -1 }, "chat.context_length"},
		{"bad style", func(c *Config) { c.UI.Style = "neon" }, "ui.style"},
		{"negative decode cap", func(c *Config) { c.Chat.MaxDecodeFailures = -2 }, "chat.max_decode_failures"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	require.NoError(t, Save(Default(), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg Config, err error) {
			if err == nil {
				changes <- cfg
			}
		})
	}()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	updated := Default()
	updated.Chat.Candidates = 3
	require.NoError(t, Save(updated, path))

	select {
	case cfg := <-changes:
		assert.Equal(t, 3, cfg.Chat.Candidates)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	assert.NoError(t, <-done)
}
