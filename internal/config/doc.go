// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the orchat configuration.
//
// Configuration is read once into an immutable Config value and passed
// explicitly to the components that need it. There is no package-level
// configuration state; a reload produces a new value.
//
// Sources, later ones winning:
//   - Built-in defaults
//   - ~/.orchat/config.toml (ORCHAT_HOME relocates the directory)
//   - .env in the working directory (via godotenv, never overriding the real environment)
//   - ORCHAT_* environment variables
//
// # Example config.toml
//
//	[api]
//	base_url = "https://openrouter.ai/api/v1"
//	timeout = "60s"
//
//	[chat]
//	model = "openai/gpt-4o-mini"
//	candidates = 3
//	temperature = 0.5
//	reasoning_effort = "low"
package config
