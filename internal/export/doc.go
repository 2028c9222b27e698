// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved transcripts to shareable files.
//
// # Supported Formats
//
//   - markdown: Human-readable with an optional front matter header
//   - json: The transcript as stored, indented
//   - html: A self-contained page with light and dark themes
//
// # Usage
//
//	exp, err := export.ForFormat("html", opts)
//	path, err := export.ExportToFile(transcript, exp, opts)
package export
