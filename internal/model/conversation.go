// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// CONVERSATION STATUS
// =============================================================================

// ConversationStatus is the lifecycle state of a conversation.
//
// Transitions: active -> completed (close), completed -> active (reopen).
// Archived conversations are read-only on the client.
type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusArchived  ConversationStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// InjectedMemory references a memory whose content is supplied as context to
// the conversation's model while IsActive is true.
type InjectedMemory struct {
	ID       string `json:"id"`
	IsActive bool   `json:"isActive"`
}

// Conversation holds a chat session and its local copy of messages.
type Conversation struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Title       string `json:"title"`
	ModelID     string `json:"modelId"`

	// Messages is chronological. The list endpoint usually omits it.
	Messages         []Message          `json:"messages,omitempty"`
	InjectedMemories []InjectedMemory   `json:"injectedMemories,omitempty"`
	Status           ConversationStatus `json:"status"`
	MessageCount     int                `json:"messageCount,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	if c.Messages != nil {
		msgs := make([]Message, len(c.Messages))
		for i, m := range c.Messages {
			msgs[i] = m.Clone()
		}
		c.Messages = msgs
	}
	if c.InjectedMemories != nil {
		c.InjectedMemories = append([]InjectedMemory(nil), c.InjectedMemories...)
	}
	return c
}

// ConfirmedMessages returns the messages that carry server identifiers.
func (c *Conversation) ConfirmedMessages() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.IsPending() {
			out = append(out, m)
		}
	}
	return out
}

// HasPending reports whether any optimistic placeholder is present.
func (c *Conversation) HasPending() bool {
	for _, m := range c.Messages {
		if m.IsPending() {
			return true
		}
	}
	return false
}

// FindMessage returns the index of the message with id, or -1.
func (c *Conversation) FindMessage(id MessageID) int {
	for i, m := range c.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// FindInjected returns the index of the injected memory reference, or -1.
func (c *Conversation) FindInjected(memoryID string) int {
	for i, im := range c.InjectedMemories {
		if im.ID == memoryID {
			return i
		}
	}
	return -1
}

// ActiveMemoryCount returns how many injected memories are currently active.
func (c *Conversation) ActiveMemoryCount() int {
	n := 0
	for _, im := range c.InjectedMemories {
		if im.IsActive {
			n++
		}
	}
	return n
}

// IsActive reports whether the conversation accepts polling and sends without reopening.
func (c *Conversation) IsActive() bool {
	return c.Status == StatusActive
}

// CloseResult is the server's answer to closing a conversation. Memory is set
// when the server produced a summarization memory.
type CloseResult struct {
	Conversation Conversation `json:"conversation"`
	Memory       *Memory      `json:"memory,omitempty"`
}
