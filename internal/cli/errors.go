// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/orchat/internal/catalog"
	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/credential"
	"github.com/jeranaias/orchat/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeoutError = 8
)

// UsageError is returned for bad arguments to a command.
type UsageError struct {
	Command string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Command, e.Reason)
	if e.Example != "" {
		msg += "\n  Example: " + e.Example
	}
	return msg
}

func usageError(command, reason, example string) error {
	return &UsageError{Command: command, Reason: reason, Example: example}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var credErr *credential.CredentialError
	var cfgErr config.ValidateErrors
	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &credErr), errors.Is(err, cloud.ErrAuthFailed), errors.Is(err, cloud.ErrNotConfigured):
		return ExitAuthError
	case errors.Is(err, cloud.ErrModelNotFound), errors.Is(err, catalog.ErrModelNotFound):
		return ExitNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	}

	var reqErr *cloud.RequestFailed
	if errors.As(err, &reqErr) {
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err in the standard format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", styles.Error.Render("[ERROR]"), err.Error())

	var credErr *credential.CredentialError
	if errors.As(err, &credErr) {
		fmt.Fprintf(w, "  Set %s or run: orchat key set\n", config.DefaultKeyEnv)
	}
}
