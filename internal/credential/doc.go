// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential looks up the API key orchat sends to the completion
// endpoint.
//
// A lookup is a one-shot name to secret mapping performed before a session
// starts. Failure is fatal: the caller reports the *CredentialError and exits.
//
// # Providers
//
//   - EnvProvider: an environment variable such as OPENROUTER_API_KEY
//   - FileProvider: <config dir>/<name>.key, owner-only permissions
//   - WinCredProvider: a generic credential in Windows Credential Manager
//   - Chain: the first provider that has the secret wins
package credential
