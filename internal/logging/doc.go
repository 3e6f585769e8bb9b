// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by orchat components.
//
// Components never reach for a global logger; they accept a zerolog.Logger
// through an option and default to zerolog.Nop(). The CLI builds one logger
// at startup from the [log] config section and hands it down.
package logging
