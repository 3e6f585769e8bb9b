// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// Options controls logger construction.
type Options struct {
	// Level is a zerolog level name (debug, info, warn, error, disabled).
	Level string

	// File, when set, receives JSON log lines instead of stderr.
	File string

	// Writer overrides both File and stderr. Used by tests.
	Writer io.Writer
}

// New returns a logger for opts together with a close function for any file
// it opened. Console formatting is used when writing to a terminal.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), noClose, err
	}

	var w io.Writer
	closeFn := noClose
	switch {
	case opts.Writer != nil:
		w = opts.Writer
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return zerolog.Nop(), noClose, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), noClose, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	case term.IsTerminal(int(os.Stderr.Fd())):
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	default:
		w = os.Stderr
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("app", "orchat").Logger()
	return logger, closeFn, nil
}

// ParseLevel accepts a level name, case-insensitively. Empty means DefaultLevel.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		s = DefaultLevel
	}
	if s == "off" || s == "none" {
		return zerolog.Disabled, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func noClose() error { return nil }
