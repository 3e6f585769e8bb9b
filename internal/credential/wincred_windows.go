// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package credential

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// =============================================================================
// WINDOWS CREDENTIAL MANAGER
// =============================================================================

const credTypeGeneric = 1

// credentialW mirrors CREDENTIALW.
type credentialW struct {
	Flags              uint32
	Type               uint32
	TargetName         *uint16
	Comment            *uint16
	LastWritten        windows.Filetime
	CredentialBlobSize uint32
	CredentialBlob     *byte
	Persist            uint32
	AttributeCount     uint32
	Attributes         uintptr
	TargetAlias        *uint16
	UserName           *uint16
}

var (
	advapi32      = windows.NewLazySystemDLL("advapi32.dll")
	procCredReadW = advapi32.NewProc("CredReadW")
	procCredFree  = advapi32.NewProc("CredFree")
)

// WinCredProvider reads generic credentials from Windows Credential Manager.
type WinCredProvider struct{}

// Lookup implements Provider.
func (WinCredProvider) Lookup(name string) (string, error) {
	target, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	var cred *credentialW
	ret, _, callErr := procCredReadW.Call(
		uintptr(unsafe.Pointer(target)),
		credTypeGeneric,
		0,
		uintptr(unsafe.Pointer(&cred)),
	)
	if ret == 0 {
		if errors.Is(callErr, windows.ERROR_NOT_FOUND) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("CredReadW failed: %w", callErr)
	}
	defer procCredFree.Call(uintptr(unsafe.Pointer(cred)))

	blob := make([]byte, cred.CredentialBlobSize)
	if cred.CredentialBlobSize > 0 {
		copy(blob, unsafe.Slice(cred.CredentialBlob, cred.CredentialBlobSize))
	}
	return decodeBlob(blob)
}
