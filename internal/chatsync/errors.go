// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatsync

import (
	"errors"
	"fmt"

	"github.com/jeranaias/companion-tui/internal/events"
)

var (
	// ErrNotConnected is returned by Send while the channel is not connected.
	// The conversation is left untouched.
	ErrNotConnected = errors.New("not connected")
	// ErrEmptyMessage is returned by Send for blank text.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotResendable is returned by Resend for anything but a failed user message.
	ErrNotResendable = errors.New("only failed messages can be resent")
)

// TransmitError reports a user message the channel failed to deliver. The
// message stays in the conversation with status error.
type TransmitError struct {
	MessageID string
	Err       error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("send %s: %v", e.MessageID, e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }

// RemoteError is a failure surfaced to the user as an error notification:
// either an error event pushed by the server or an event that could not be
// handled.
type RemoteError struct {
	Kind    events.Kind
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Err != nil && e.Kind != "":
		return fmt.Sprintf("%s event: %v", e.Kind, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Message != "":
		return e.Message
	default:
		return "server reported an error"
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }
