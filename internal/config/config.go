// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/orchat/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the OpenRouter API root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is used until the user picks another one.
	DefaultModel = "openai/gpt-4o-mini"

	// DefaultTemperature is the single-candidate sampling temperature.
	DefaultTemperature = 0.5

	// DefaultCredential is the credential name looked up at startup.
	DefaultCredential = "openrouter"

	// DefaultKeyEnv is the environment variable checked for the API key.
	DefaultKeyEnv = "OPENROUTER_API_KEY"

	// MaxCandidates bounds chat.candidates.
	MaxCandidates = 6

	// HomeEnv relocates the configuration directory.
	HomeEnv = "ORCHAT_HOME"
)

// ErrNotFound is returned by LoadFile when the file does not exist.
var ErrNotFound = errors.New("config file not found")

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete orchat configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	Chat    ChatConfig    `toml:"chat"`
	Catalog CatalogConfig `toml:"catalog"`
	UI      UIConfig      `toml:"ui"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig describes the completion endpoint.
type APIConfig struct {
	BaseURL  string        `toml:"base_url"`
	SiteURL  string        `toml:"site_url"`
	SiteName string        `toml:"site_name"`
	Timeout  time.Duration `toml:"timeout"`

	// Credential is the name handed to the credential lookup.
	Credential string `toml:"credential"`

	// KeyEnv is the environment variable holding the API key, if any.
	KeyEnv string `toml:"key_env"`
}

// ChatConfig holds the sampling defaults used to build a request plan.
type ChatConfig struct {
	Model       string  `toml:"model"`
	Candidates  int     `toml:"candidates"`
	Temperature float64 `toml:"temperature"`

	// Zero means "let the provider decide".
	ContextLength       int `toml:"context_length"`
	MaxCompletionTokens int `toml:"max_completion_tokens"`

	ReasoningEffort    string `toml:"reasoning_effort"`
	ReasoningMaxTokens int    `toml:"reasoning_max_tokens"`
	ExcludeReasoning   bool   `toml:"exclude_reasoning"`

	// Parallel fetches candidates concurrently. Order is unaffected.
	Parallel bool `toml:"parallel"`

	// RequestsPerSecond paces candidate requests. Zero disables pacing.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// MaxDecodeFailures fails a stream after this many consecutive
	// undecodable lines. Zero means unlimited.
	MaxDecodeFailures int `toml:"max_decode_failures"`
}

// CatalogConfig controls the model catalog cache.
type CatalogConfig struct {
	CacheFile string        `toml:"cache_file"`
	MaxAge    time.Duration `toml:"max_age"`
}

// UIConfig controls terminal presentation.
type UIConfig struct {
	WordWrap    int    `toml:"word_wrap"`
	Style       string `toml:"style"`
	HistoryFile string `toml:"history_file"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			SiteName:   "orchat",
			Timeout:    60 * time.Second,
			Credential: DefaultCredential,
			KeyEnv:     DefaultKeyEnv,
		},
		Chat: ChatConfig{
			Model:       DefaultModel,
			Candidates:  1,
			Temperature: DefaultTemperature,
		},
		Catalog: CatalogConfig{
			MaxAge: 24 * time.Hour,
		},
		UI: UIConfig{
			WordWrap: 80,
			Style:    "auto",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the orchat configuration directory.
func Dir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".orchat"), nil
}

// Path returns the default config.toml location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads path (or the default location when path is empty), applies
// .env and environment overrides, fills derived defaults and validates.
// A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg, err := LoadFile(path)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Config{}, err
	}

	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.fillPaths(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes a TOML file on top of Default(). It does not apply
// environment overrides. Returns Default() and ErrNotFound if the file
// does not exist.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), ErrNotFound
		}
		return Default(), fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Default(), fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Save writes cfg as TOML with owner-only permissions.
func Save(cfg Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# orchat configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fillPaths resolves file locations left empty to the config directory.
func (c *Config) fillPaths() error {
	if c.Catalog.CacheFile != "" && c.UI.HistoryFile != "" {
		return nil
	}
	dir, err := Dir()
	if err != nil {
		return err
	}
	if c.Catalog.CacheFile == "" {
		c.Catalog.CacheFile = filepath.Join(dir, "models.json")
	}
	if c.UI.HistoryFile == "" {
		c.UI.HistoryFile = filepath.Join(dir, "history")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies ORCHAT_* variables:
//   - ORCHAT_BASE_URL: api.base_url
//   - ORCHAT_MODEL: chat.model
//   - ORCHAT_CANDIDATES: chat.candidates
//   - ORCHAT_TEMPERATURE: chat.temperature
//   - ORCHAT_REASONING_EFFORT: chat.reasoning_effort
//   - ORCHAT_PARALLEL: chat.parallel
//   - ORCHAT_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("ORCHAT_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ORCHAT_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("ORCHAT_CANDIDATES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ORCHAT_CANDIDATES: %w", err)
		}
		c.Chat.Candidates = n
	}
	if v := os.Getenv("ORCHAT_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ORCHAT_TEMPERATURE: %w", err)
		}
		c.Chat.Temperature = f
	}
	if v := os.Getenv("ORCHAT_REASONING_EFFORT"); v != "" {
		c.Chat.ReasoningEffort = v
	}
	if v := os.Getenv("ORCHAT_PARALLEL"); v != "" {
		c.Chat.Parallel = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("ORCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var validEfforts = map[string]bool{"": true, "none": true, "low": true, "medium": true, "high": true}

var validStyles = map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("api.base_url", "must be an absolute URL, got %q", c.API.BaseURL)
	} else if u.Scheme != "https" && u.Scheme != "http" {
		add("api.base_url", "unsupported scheme %q", u.Scheme)
	}
	if c.API.Timeout < 0 {
		add("api.timeout", "must not be negative")
	}

	if strings.TrimSpace(c.Chat.Model) == "" {
		add("chat.model", "must not be empty")
	}
	if c.Chat.Candidates < 1 || c.Chat.Candidates > MaxCandidates {
		add("chat.candidates", "must be between 1 and %d, got %d", MaxCandidates, c.Chat.Candidates)
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		add("chat.temperature", "must be between 0 and 2, got %g", c.Chat.Temperature)
	}
	if c.Chat.ContextLength < 0 {
		add("chat.context_length", "must not be negative")
	}
	if c.Chat.MaxCompletionTokens < 0 {
		add("chat.max_completion_tokens", "must not be negative")
	}
	if !validEfforts[strings.ToLower(c.Chat.ReasoningEffort)] {
		add("chat.reasoning_effort", "invalid effort %q, must be one of: none, low, medium, high", c.Chat.ReasoningEffort)
	}
	if c.Chat.ReasoningMaxTokens < 0 {
		add("chat.reasoning_max_tokens", "must not be negative")
	}
	if c.Chat.RequestsPerSecond < 0 {
		add("chat.requests_per_second", "must not be negative")
	}
	if c.Chat.MaxDecodeFailures < 0 {
		add("chat.max_decode_failures", "must not be negative")
	}

	if c.Catalog.MaxAge < 0 {
		add("catalog.max_age", "must not be negative")
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative")
	}
	if !validStyles[strings.ToLower(c.UI.Style)] {
		add("ui.style", "invalid style %q, must be one of: auto, dark, light, notty", c.UI.Style)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
