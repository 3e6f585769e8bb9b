// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package credential

// WinCredProvider reads generic credentials from Windows Credential Manager.
// On this platform it always reports ErrUnsupported.
type WinCredProvider struct{}

// Lookup implements Provider.
func (WinCredProvider) Lookup(string) (string, error) {
	return "", ErrUnsupported
}
