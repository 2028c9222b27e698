// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage saves conversations as transcripts.
//
// Each transcript is one JSON file under the transcripts directory
// (~/.companion/transcripts by default), written atomically. Transcripts can
// be listed newest first, loaded by id or list position, and rendered as
// Markdown.
//
//	store, err := storage.NewTranscriptStore(cfg.Transcripts.Dir)
//	id, err := store.Save(storage.NewTranscript(cfg.Server.URL, snap.Messages))
//	t, err := store.Resolve("0")
package storage
