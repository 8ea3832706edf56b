// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the client-side records for Chimera Protocol.
//
// Every record here is a cache of server-side state. The backend owns
// workspaces, conversations, messages, memories and integrations; the client
// keeps copies of them in its stores and renders them.
//
// # Key Types
//
//   - Conversation: A chat session with messages and injected memory references
//   - Message: A single message with a MessageID that is either Pending or Confirmed
//   - MessageID: Tagged union separating client-local identifiers from server identifiers
//   - Workspace: A collaboration container with members and usage statistics
//   - Memory: A unit of stored knowledge that can be injected into conversations
//   - Integration: A stored provider credential (OpenAI, Anthropic, ...)
//   - Invitation: A pending request to join a workspace
//
// # Usage
//
// Optimistic placeholders use pending identifiers:
//
//	msg := model.Message{
//	    ID:      model.NewPendingID(),
//	    Role:    model.RoleUser,
//	    Content: "Hello!",
//	}
//	if msg.ID.IsPending() {
//	    // not yet confirmed by the server
//	}
package model
