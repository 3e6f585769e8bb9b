// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the orchat command line.
//
// Commands:
//
//	orchat chat                  Interactive chat (default)
//	orchat ask "question"        One-shot question
//	orchat models list|refresh|show
//	orchat key set|show|delete   Manage the stored API key
//	orchat config show|path|reset
//
// Global flags override the configuration file for one invocation:
//
//	-c, --config FILE       Configuration file (default ~/.orchat/config.toml)
//	    --log-level LEVEL   debug, info, warn, error or off
//	-m, --model ID          Model id
//	-n, --candidates N      Replies to request per turn (1-6)
//	-t, --temperature T     Temperature for single-reply turns
//	    --parallel          Request candidates concurrently
//	    --no-stream         Wait for whole replies instead of streaming
//
// Interactive commands (during chat):
//
//	/help               Show available commands
//	/clear              Clear the conversation (asks first)
//	/edit N text        Replace message N and rerun from there
//	/history            List the conversation
//	/model [id]         Show or switch the model
//	/n K                Request K replies per turn
//	/temp T             Set the single-reply temperature
//	/export FILE.html   Save the conversation as HTML
//	/quit               Exit
//	Ctrl+C              Cancel the replies in flight
package cli
