// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the companion client.
//
//   - AtomicWriteFile: crash-safe file writing with fsync, used for the
//     config file and saved transcripts
//   - TruncateWidth, PadRight, StringWidth: terminal-width aware text helpers
//     used by the TUI and the transcript listing
package util
