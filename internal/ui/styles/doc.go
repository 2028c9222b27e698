// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the palette, theme and highlighting used by the
// companion TUI and the plain-terminal commands.
package styles
