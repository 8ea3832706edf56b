// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// TypingContent is the content shown by the assistant placeholder while a
// reply is being generated.
const TypingContent = "..."

// metaTyping marks the assistant placeholder in Message.Metadata.
const metaTyping = "isTyping"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID             MessageID      `json:"id"`
	ConversationID string         `json:"conversationId"`
	Role           Role           `json:"role"`
	Content        string         `json:"content"`
	Timestamp      time.Time      `json:"timestamp"`
	IsPinned       bool           `json:"isPinned"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewPendingUserMessage builds the optimistic copy of a message the user just sent.
func NewPendingUserMessage(conversationID, content string) Message {
	return Message{
		ID:             NewPendingID(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        content,
		Timestamp:      time.Now(),
	}
}

// NewTypingPlaceholder builds the assistant placeholder shown until the reply arrives.
func NewTypingPlaceholder(conversationID string) Message {
	return Message{
		ID:             NewPendingID(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        TypingContent,
		Timestamp:      time.Now(),
		Metadata:       map[string]any{metaTyping: true},
	}
}

// IsTyping reports whether the message is the assistant typing placeholder.
func (m Message) IsTyping() bool {
	v, ok := m.Metadata[metaTyping].(bool)
	return ok && v
}

// IsPending reports whether the message is an unconfirmed local placeholder.
func (m Message) IsPending() bool {
	return m.ID.IsPending()
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	if m.Metadata != nil {
		meta := make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			meta[k] = v
		}
		m.Metadata = meta
	}
	return m
}

// SendResult is the server's answer to a message send.
type SendResult struct {
	UserMessage      Message  `json:"userMessage"`
	AssistantMessage *Message `json:"assistantMessage,omitempty"`
}
