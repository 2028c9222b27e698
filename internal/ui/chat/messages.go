// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/notify"
)

// SnapshotMsg carries a new view of the conversation.
type SnapshotMsg struct {
	Snapshot chatsync.Snapshot
}

// NotifyMsg asks the screen to show a toast.
type NotifyMsg struct {
	Kind    notify.Kind
	Message string
}

// ClosedMsg reports that the connection loop ended for good.
type ClosedMsg struct {
	Err error
}

// sendResultMsg is the outcome of a send or resend.
type sendResultMsg struct {
	id  string
	err error
}

// saveResultMsg is the outcome of saving a transcript.
type saveResultMsg struct {
	id  string
	err error
}
