// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the companion command line.
//
// Commands:
//
//	companion chat                     Talk to the companion (TUI on a terminal, line REPL otherwise)
//	companion config show|path|get|set Inspect or edit the configuration file
//	companion transcripts list|show|export|delete
//	companion version                  Print build information
//
// Global flags select the config file and extra .env files. Configuration is
// loaded once in the app's Before hook and shared by every command.
package cli
