// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// ConversationUpdate carries the editable fields of a conversation.
type ConversationUpdate struct {
	Title  *string                   `json:"title,omitempty"`
	Status *model.ConversationStatus `json:"status,omitempty"`
}

// ToggleResult is the server's new activation state for an injected memory.
type ToggleResult struct {
	MemoryID string `json:"memoryId"`
	IsActive bool   `json:"isActive"`
}

func conversationPath(id string) string {
	return "/conversations/" + escape(id)
}

func messagePath(conversationID string, messageID model.MessageID) string {
	return conversationPath(conversationID) + "/messages/" + escape(messageID.Value())
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations returns the workspace's conversations. The list endpoint
// may omit messages and injected memories.
func (c *Client) ListConversations(ctx context.Context, workspaceID string) ([]model.Conversation, error) {
	var out struct {
		Conversations []model.Conversation `json:"conversations"`
		Total         int                  `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/workspaces/"+escape(workspaceID)+"/conversations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// CreateConversation starts a conversation with the given model.
func (c *Client) CreateConversation(ctx context.Context, workspaceID, title, modelID string) (*model.Conversation, error) {
	req := map[string]string{"title": title, "modelId": modelID}
	var out model.Conversation
	if err := c.do(ctx, http.MethodPost, "/workspaces/"+escape(workspaceID)+"/conversations", nil, req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, missingDataError(http.StatusOK, "conversation")
	}
	return &out, nil
}

// GetConversation fetches a conversation with its full message list.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, missingDataError(http.StatusOK, "conversation")
	}
	return &out, nil
}

// UpdateConversation changes a conversation's title or status.
func (c *Client) UpdateConversation(ctx context.Context, id string, upd ConversationUpdate) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.do(ctx, http.MethodPut, conversationPath(id), nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(id), nil, nil, nil)
}

// =============================================================================
// MESSAGES
// =============================================================================

// SendMessage posts a user message. When getAIResponse is set the server also
// generates and returns the assistant's reply. Never retried.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string, getAIResponse bool) (*model.SendResult, error) {
	req := struct {
		Content       string `json:"content"`
		GetAIResponse bool   `json:"getAiResponse"`
	}{content, getAIResponse}

	var out model.SendResult
	if err := c.do(ctx, http.MethodPost, conversationPath(conversationID)+"/messages", nil, req, &out); err != nil {
		return nil, err
	}
	if out.UserMessage.ID.IsZero() {
		return nil, missingDataError(http.StatusOK, "user message")
	}
	if out.AssistantMessage != nil && out.AssistantMessage.ID.IsZero() {
		out.AssistantMessage = nil
	}
	return &out, nil
}

// SetMessagePinned pins or unpins a message.
func (c *Client) SetMessagePinned(ctx context.Context, conversationID string, messageID model.MessageID, pinned bool) (*model.Message, error) {
	if messageID.IsPending() {
		return nil, model.ErrPendingID
	}
	req := map[string]bool{"isPinned": pinned}
	var out model.Message
	if err := c.do(ctx, http.MethodPut, messagePath(conversationID, messageID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, conversationID string, messageID model.MessageID) error {
	if messageID.IsPending() {
		return model.ErrPendingID
	}
	return c.do(ctx, http.MethodDelete, messagePath(conversationID, messageID), nil, nil, nil)
}

// =============================================================================
// MEMORY INJECTION
// =============================================================================

// InjectMemory attaches a memory to the conversation's context.
func (c *Client) InjectMemory(ctx context.Context, conversationID, memoryID string) error {
	req := map[string]string{"memoryId": memoryID}
	return c.do(ctx, http.MethodPost, conversationPath(conversationID)+"/inject-memory", nil, req, nil)
}

// RemoveInjectedMemory detaches a memory from the conversation.
func (c *Client) RemoveInjectedMemory(ctx context.Context, conversationID, memoryID string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(conversationID)+"/inject-memory/"+escape(memoryID), nil, nil, nil)
}

// ToggleInjectedMemory flips whether an injected memory is active.
func (c *Client) ToggleInjectedMemory(ctx context.Context, conversationID, memoryID string) (*ToggleResult, error) {
	var out ToggleResult
	path := conversationPath(conversationID) + "/inject-memory/" + escape(memoryID) + "/toggle"
	if err := c.do(ctx, http.MethodPut, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// CloseConversation completes a conversation. The server may summarize it into a memory.
func (c *Client) CloseConversation(ctx context.Context, id string) (*model.CloseResult, error) {
	var out model.CloseResult
	if err := c.do(ctx, http.MethodPost, conversationPath(id)+"/close", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReopenConversation returns a completed conversation to active.
func (c *Client) ReopenConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var out struct {
		Conversation model.Conversation `json:"conversation"`
	}
	if err := c.do(ctx, http.MethodPost, conversationPath(id)+"/reopen", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}
