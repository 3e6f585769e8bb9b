// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/jeranaias/orchat/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound means the provider has no secret for the name.
	ErrNotFound = errors.New("credential not found")

	// ErrUnsupported means the provider cannot work on this platform.
	ErrUnsupported = errors.New("credential store not supported on this platform")

	// ErrInvalidName rejects names that could escape the key directory.
	ErrInvalidName = errors.New("invalid credential name")
)

// CredentialError is returned when a credential cannot be obtained.
type CredentialError struct {
	Name string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential %q: %v", e.Name, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// Provider maps a credential name to a secret.
type Provider interface {
	Lookup(name string) (string, error)
}

// Lookup asks p for name and wraps any failure, including an empty secret,
// in a *CredentialError.
func Lookup(p Provider, name string) (string, error) {
	secret, err := p.Lookup(name)
	if err != nil {
		var cerr *CredentialError
		if errors.As(err, &cerr) {
			return "", err
		}
		return "", &CredentialError{Name: name, Err: err}
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", &CredentialError{Name: name, Err: ErrNotFound}
	}
	return secret, nil
}

// =============================================================================
// ENVIRONMENT PROVIDER
// =============================================================================

// EnvProvider reads the secret from one environment variable regardless of
// the requested name.
type EnvProvider struct {
	Var string
}

// Lookup implements Provider.
func (p EnvProvider) Lookup(string) (string, error) {
	if p.Var == "" {
		return "", ErrNotFound
	}
	v, ok := os.LookupEnv(p.Var)
	if !ok || strings.TrimSpace(v) == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// =============================================================================
// FILE PROVIDER
// =============================================================================

// FileProvider stores one secret per name in <Dir>/<name>.key.
type FileProvider struct {
	Dir string
}

// NewFileProvider returns a FileProvider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

func (p *FileProvider) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(p.Dir, name+".key"), nil
}

// Lookup implements Provider.
func (p *FileProvider) Lookup(name string) (string, error) {
	path, err := p.path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Store writes secret for name with owner-only permissions.
func (p *FileProvider) Store(name, secret string) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("refusing to store an empty secret")
	}
	if err := util.AtomicWriteFile(path, []byte(secret+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Delete removes the stored secret. Deleting a missing secret is not an error.
func (p *FileProvider) Delete(name string) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}

// Exists reports whether a secret is stored for name.
func (p *FileProvider) Exists(name string) bool {
	path, err := p.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// =============================================================================
// CHAIN
// =============================================================================

// Chain tries each provider in order. Providers reporting ErrNotFound or
// ErrUnsupported are skipped; any other error is kept and reported if no
// later provider succeeds.
type Chain []Provider

// Lookup implements Provider.
func (c Chain) Lookup(name string) (string, error) {
	var errs []error
	for _, p := range c {
		secret, err := p.Lookup(name)
		if err == nil && strings.TrimSpace(secret) != "" {
			return secret, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrUnsupported) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", ErrNotFound
}

// =============================================================================
// HELPERS
// =============================================================================

// Mask returns a display-safe form of secret.
func Mask(secret string) string {
	if len(secret) <= 12 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:6] + "..." + secret[len(secret)-4:]
}

// decodeBlob converts a Credential Manager blob to a string. Blobs written
// by the Windows UI are UTF-16LE; blobs written by other tools are often
// plain UTF-8.
func decodeBlob(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", ErrNotFound
	}
	if len(blob)%2 == 0 && looksUTF16(blob) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(blob)
		if err != nil {
			return "", fmt.Errorf("failed to decode credential blob: %w", err)
		}
		return strings.TrimRight(string(out), "\x00"), nil
	}
	if !utf8.Valid(blob) {
		return "", errors.New("credential blob is neither UTF-16 nor UTF-8")
	}
	return string(blob), nil
}

// looksUTF16 reports whether blob has a BOM or zero high bytes in ASCII range.
func looksUTF16(blob []byte) bool {
	if blob[0] == 0xFF && blob[1] == 0xFE {
		return true
	}
	for i := 1; i < len(blob); i += 2 {
		if blob[i] != 0 {
			return false
		}
	}
	return true
}
