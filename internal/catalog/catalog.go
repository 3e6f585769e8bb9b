// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/orchat/internal/util"
)

// RequestTimeLayout is the format of the cache's request_time stamp.
const RequestTimeLayout = "2006-01-02 15:04:05"

var (
	// ErrModelNotFound is returned by Lookup.
	ErrModelNotFound = errors.New("model not found in catalog")

	// ErrEmpty is returned when a listing contains no models.
	ErrEmpty = errors.New("no models in listing")
)

// =============================================================================
// TYPES
// =============================================================================

// Model is one catalog entry.
type Model struct {
	ID                  string
	Name                string
	Description         string
	Created             time.Time
	ContextLength       int
	MaxCompletionTokens int

	// Pricing maps a price kind (prompt, completion, ...) to the raw
	// per-token price string.
	Pricing map[string]string
}

// DisplayName returns the name, or the id when the name is empty.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// Fetcher retrieves the raw model listing.
type Fetcher interface {
	ListModels(ctx context.Context) ([]byte, error)
}

// wireModel mirrors one entry of the listing.
type wireModel struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Created       float64          `json:"created"`
	ContextLength int              `json:"context_length"`
	Pricing       map[string]any   `json:"pricing"`
	TopProvider   *wireTopProvider `json:"top_provider"`
}

type wireTopProvider struct {
	ContextLength       *int `json:"context_length"`
	MaxCompletionTokens *int `json:"max_completion_tokens"`
}

func (w wireModel) model() Model {
	m := Model{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		ContextLength: w.ContextLength,
		Pricing:       make(map[string]string, len(w.Pricing)),
	}
	if w.Created > 0 {
		m.Created = time.Unix(int64(w.Created), 0)
	}
	if tp := w.TopProvider; tp != nil {
		if tp.ContextLength != nil && *tp.ContextLength > 0 {
			m.ContextLength = *tp.ContextLength
		}
		if tp.MaxCompletionTokens != nil {
			m.MaxCompletionTokens = *tp.MaxCompletionTokens
		}
	}
	for k, v := range w.Pricing {
		switch v := v.(type) {
		case string:
			m.Pricing[k] = v
		case float64:
			m.Pricing[k] = fmt.Sprintf("%g", v)
		}
	}
	return m
}

// Parse decodes a listing. Both {"data": [...]} and a bare array are
// accepted; request_time, when present, is returned as fetched.
func Parse(data []byte) (models []Model, fetched time.Time, err error) {
	var wire []wireModel

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode model list: %w", err)
		}
	} else {
		var envelope struct {
			Data        []wireModel `json:"data"`
			RequestTime string      `json:"request_time"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode model list: %w", err)
		}
		wire = envelope.Data
		if envelope.RequestTime != "" {
			if t, perr := time.ParseInLocation(RequestTimeLayout, envelope.RequestTime, time.Local); perr == nil {
				fetched = t
			}
		}
	}

	if len(wire) == 0 {
		return nil, fetched, ErrEmpty
	}
	models = make([]Model, 0, len(wire))
	for _, w := range wire {
		if w.ID == "" {
			continue
		}
		models = append(models, w.model())
	}
	sortModels(models)
	return models, fetched, nil
}

func sortModels(models []Model) {
	sort.SliceStable(models, func(i, j int) bool {
		a, b := strings.ToLower(models[i].DisplayName()), strings.ToLower(models[j].DisplayName())
		if a != b {
			return a < b
		}
		return models[i].ID < models[j].ID
	})
}

// stamp adds request_time to a raw listing.
func stamp(raw []byte, now time.Time) ([]byte, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// A bare array gets wrapped
		var list json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode model list: %w", err)
		}
		envelope = map[string]json.RawMessage{"data": list}
	}
	ts, _ := json.Marshal(now.Format(RequestTimeLayout))
	envelope["request_time"] = ts
	return json.MarshalIndent(envelope, "", "    ")
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the cached model list.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	fetcher Fetcher
	logger  zerolog.Logger
	now     func() time.Time

	models  []Model
	fetched time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the catalog's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// New returns an empty catalog backed by the cache file at path. Either
// path or fetcher may be empty.
func New(path string, fetcher Fetcher, opts ...Option) *Catalog {
	c := &Catalog{
		path:    path,
		fetcher: fetcher,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the cache file, falling back to Refresh when it is missing or
// unreadable.
func (c *Catalog) Load(ctx context.Context) error {
	if c.path != "" {
		err := c.loadFile()
		if err == nil {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug().Str("path", c.path).Msg("no model cache, fetching")
		} else {
			c.logger.Warn().Err(err).Str("path", c.path).Msg("model cache unreadable, fetching")
		}
	}
	return c.Refresh(ctx)
}

func (c *Catalog) loadFile() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	models, fetched, err := Parse(data)
	if err != nil {
		return err
	}
	if fetched.IsZero() {
		if info, statErr := os.Stat(c.path); statErr == nil {
			fetched = info.ModTime()
		}
	}
	c.set(models, fetched)
	return nil
}

// Refresh fetches the listing and rewrites the cache file.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.fetcher == nil {
		return errors.New("no model source configured")
	}
	raw, err := c.fetcher.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("fetch models: %w", err)
	}
	models, _, err := Parse(raw)
	if err != nil {
		return err
	}
	now := c.now()
	c.set(models, now)

	if c.path != "" {
		stamped, err := stamp(raw, now)
		if err != nil {
			return err
		}
		if err := util.AtomicWriteFile(c.path, stamped, 0600); err != nil {
			return fmt.Errorf("write model cache: %w", err)
		}
	}
	c.logger.Info().Int("models", len(models)).Msg("model catalog refreshed")
	return nil
}

func (c *Catalog) set(models []Model, fetched time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
	c.fetched = fetched
}

// Models returns the models sorted by name.
func (c *Catalog) Models() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Fetched returns when the current list was retrieved.
func (c *Catalog) Fetched() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetched
}

// Stale reports whether the list is empty or older than maxAge. A zero
// maxAge never expires a loaded list.
func (c *Catalog) Stale(maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.models) == 0 || c.fetched.IsZero() {
		return true
	}
	return maxAge > 0 && c.now().Sub(c.fetched) > maxAge
}

// Lookup finds a model by exact id, then by case-insensitive id or name.
func (c *Catalog) Lookup(nameOrID string) (Model, error) {
	key := strings.TrimSpace(nameOrID)
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models {
		if m.ID == key {
			return m, nil
		}
	}
	for _, m := range c.models {
		if strings.EqualFold(m.ID, key) || strings.EqualFold(m.Name, key) {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q", ErrModelNotFound, nameOrID)
}

// Search returns models whose id or name contains query, case-insensitive.
func (c *Catalog) Search(query string) []Model {
	q := strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Model
	for _, m := range c.models {
		if q == "" || strings.Contains(strings.ToLower(m.ID), q) || strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}
