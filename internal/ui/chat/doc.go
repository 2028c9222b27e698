// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea chat screen.
//
// The screen never mutates the conversation itself. It renders snapshots
// pushed by the synchronizer through a Bridge, sends user input back through
// the Conversation interface, and shows notifications as toasts.
//
// # Key bindings
//
//   - Enter: send
//   - Ctrl+R: retry the last message that failed to send
//   - Ctrl+S: save the conversation as a transcript
//   - Ctrl+L: clear the conversation
//   - PgUp/PgDn: scroll
//   - Ctrl+X: dismiss the newest toast
//   - Esc/Ctrl+C: quit
package chat
