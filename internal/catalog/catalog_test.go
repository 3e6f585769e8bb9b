// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/orchat/internal/cloud"
)

const listing = `{
  "data": [
    {
      "id": "openai/gpt-4o-mini",
      "name": "OpenAI: GPT-4o-mini",
      "description": "Small and fast.",
      "created": 1721260800,
      "context_length": 128000,
      "pricing": {"prompt": "0.00000015", "completion": "0.0000006"},
      "top_provider": {"context_length": 128000, "max_completion_tokens": 16384}
    },
    {
      "id": "anthropic/claude-3-haiku",
      "name": "Anthropic: Claude 3 Haiku",
      "created": 1710288000,
      "context_length": 200000,
      "pricing": {"prompt": "0.00000025", "completion": "0.00000125", "image": "0.0004"},
      "top_provider": {"context_length": null, "max_completion_tokens": 4096}
    },
    {"name": "no id, skipped"}
  ]
}`

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/models", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(listing))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParse(t *testing.T) {
	models, fetched, err := Parse([]byte(listing))
	require.NoError(t, err)
	assert.True(t, fetched.IsZero())
	require.Len(t, models, 2)

	// Sorted by name
	assert.Equal(t, "anthropic/claude-3-haiku", models[0].ID)
	assert.Equal(t, "openai/gpt-4o-mini", models[1].ID)

	haiku := models[0]
	assert.Equal(t, 200000, haiku.ContextLength, "falls back to top-level context_length")
	assert.Equal(t, 4096, haiku.MaxCompletionTokens)
	assert.Equal(t, "0.0004", haiku.Pricing["image"])

	mini := models[1]
	assert.Equal(t, 128000, mini.ContextLength)
	assert.Equal(t, 16384, mini.MaxCompletionTokens)
	assert.Equal(t, int64(1721260800), mini.Created.Unix())
}

func TestParse_BareArrayAndErrors(t *testing.T) {
	models, _, err := Parse([]byte(`[{"id":"a/b","name":"B"}]`))
	require.NoError(t, err)
	require.Len(t, models, 1)

	_, _, err = Parse([]byte(`{"data":[]}`))
	assert.ErrorIs(t, err, ErrEmpty)

	_, _, err = Parse([]byte(`{"data":`))
	assert.Error(t, err)
}

func TestLoad_FetchesWhenCacheMissing(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	path := filepath.Join(t.TempDir(), "models.json")
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)

	c := New(path, cloud.NewClient("").WithBaseURL(srv.URL), WithClock(func() time.Time { return now }))
	require.NoError(t, c.Load(context.Background()))
	assert.Len(t, c.Models(), 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cached map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &cached))
	assert.JSONEq(t, `"2025-03-04 05:06:07"`, string(cached["request_time"]))

	// A second catalog reads the cache without touching the network
	again := New(path, cloud.NewClient("").WithBaseURL(srv.URL))
	require.NoError(t, again.Load(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, now.Equal(again.Fetched()))
}

func TestLoad_CorruptCacheRefetches(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	path := filepath.Join(t.TempDir(), "models.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	c := New(path, cloud.NewClient("").WithBaseURL(srv.URL))
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Len(t, c.Models(), 2)
}

func TestRefresh_NoFetcher(t *testing.T) {
	c := New("", nil)
	assert.Error(t, c.Refresh(context.Background()))
}

func TestStale(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New("", nil, WithClock(func() time.Time { return now }))
	assert.True(t, c.Stale(time.Hour))

	models, _, err := Parse([]byte(listing))
	require.NoError(t, err)
	c.set(models, now.Add(-2*time.Hour))
	assert.True(t, c.Stale(time.Hour))
	assert.False(t, c.Stale(3*time.Hour))
	assert.False(t, c.Stale(0))
}

func TestLookupAndSearch(t *testing.T) {
	models, _, err := Parse([]byte(listing))
	require.NoError(t, err)
	c := New("", nil)
	c.set(models, time.Now())

	m, err := c.Lookup("openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "OpenAI: GPT-4o-mini", m.Name)

	m, err = c.Lookup("  anthropic: claude 3 haiku ")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-haiku", m.ID)

	_, err = c.Lookup("nope")
	assert.ErrorIs(t, err, ErrModelNotFound)

	assert.Len(t, c.Search("HAIKU"), 1)
	assert.Len(t, c.Search(""), 2)
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatters(t *testing.T) {
	assert.Equal(t, "128K", FormatContext(128000))
	assert.Equal(t, "8K", FormatContext(8192))
	assert.Equal(t, NotAvailable, FormatContext(0))

	assert.Equal(t, "128,000", FormatTokens(128000))
	assert.Equal(t, NotAvailable, FormatTokens(0))

	assert.Equal(t, "$1.00/M tokens", FormatPrice("0.000001"))
	assert.Equal(t, "$0.15/M tokens", FormatPrice("0.00000015"))
	assert.Equal(t, "$0.00/M tokens", FormatPrice("0"))
	assert.Equal(t, "varies", FormatPrice("varies"))
	assert.Equal(t, NotAvailable, FormatPrice(""))

	assert.Equal(t, "prompt: $1.00/M tokens, completion: $2.00/M tokens, image: $400.00/M tokens",
		FormatPricing(map[string]string{"image": "0.0004", "completion": "0.000002", "prompt": "0.000001"}))
	assert.Equal(t, NotAvailable, FormatPricing(nil))

	assert.Equal(t, "2024-07-18", FormatCreated(time.Date(2024, 7, 18, 9, 0, 0, 0, time.Local)))
	assert.Equal(t, NotAvailable, FormatCreated(time.Time{}))
}

func TestWriteTable(t *testing.T) {
	models, _, err := Parse([]byte(listing))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, models, 80))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4) // header, rule, two rows

	out := buf.String()
	assert.Contains(t, out, "CONTEXT")
	assert.Contains(t, out, "200K")
	assert.Contains(t, out, "$0.15/M tokens")
}

func TestColumnsShrinkToWidth(t *testing.T) {
	cols := columns(70)
	total := len(cols) - 1
	for _, c := range cols {
		total += c.width
	}
	assert.LessOrEqual(t, total, 70)
	assert.GreaterOrEqual(t, cols[0].width, 12)
	assert.GreaterOrEqual(t, cols[1].width, 12)
}

func TestDescribe(t *testing.T) {
	models, _, err := Parse([]byte(listing))
	require.NoError(t, err)

	out := Describe(models[1])
	assert.Contains(t, out, "openai/gpt-4o-mini")
	assert.Contains(t, out, "128K (128,000 tokens)")
	assert.Contains(t, out, "16,384")
	assert.Contains(t, out, "Small and fast.")
}
