// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.WarnLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{" error ", zerolog.ErrorLevel, false},
		{"off", zerolog.Disabled, false},
		{"chatty", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_WriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "info", Writer: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Debug().Msg("hidden")
	logger.Info().Str("model", "m").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "m", entry["model"])
	assert.Equal(t, "orchat", entry["app"])
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "orchat.log")
	logger, closeFn, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug().Msg("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
