// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation messages.
//
// # Key Types
//
//   - Message: one conversational turn with sender, text, status and metadata
//   - Sender: user, ai or system
//   - Status: delivery status with an explicit transition table
//   - Metadata: optional response details attached to AI turns
//
// # Status transitions
//
// User messages are created as StatusSending and move to StatusSent or
// StatusError exactly once. StatusError is terminal; retrying a failed send
// creates a new message.
//
//	sending -> sent | error
//	sent -> delivered | read
//	delivered -> read
//
// # Usage
//
//	msg := model.NewUserMessage("hi")
//	if err := msg.Status.Transition(model.StatusSent); err != nil {
//	    // not reachable for a fresh message
//	}
package model
