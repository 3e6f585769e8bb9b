// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("hello, world!"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello, world!", string(content))
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("test data"), 0644))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("initial"), 0644))
	require.NoError(t, AtomicWriteFile(path, []byte("updated"), 0644))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "updated", string(content))
}

func TestAtomicWriteFile_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, AtomicWriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, AtomicWriteFile(path, []byte("secret"), 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// TEXT TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ellipsis", "hello world", 8, "hello..."},
		{"tiny", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
		{"cjk not split", "日本語テキスト", 7, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWidth(tt.input, tt.width))
		})
	}
}

func TestStringWidth(t *testing.T) {
	assert.Equal(t, 5, StringWidth("hello"))
	assert.Equal(t, 6, StringWidth("日本語"))
	assert.Equal(t, 0, StringWidth(""))
}

func TestPadWidth(t *testing.T) {
	assert.Equal(t, "ab   ", PadWidth("ab", 5))
	assert.Equal(t, "日本 ", PadWidth("日本", 5))
	assert.Equal(t, "abcdef", PadWidth("abcdef", 3))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "second", FirstLine("\n  \n  second\nthird", 20))
	assert.Equal(t, "a long...", FirstLine("a long first line", 9))
	assert.Equal(t, "", FirstLine("   \n\n", 10))
}
