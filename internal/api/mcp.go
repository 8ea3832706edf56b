// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// =============================================================================
// MCP (Model Context Protocol)
// =============================================================================

// The MCP endpoints return free-form payloads, so results are left as raw JSON.

// MCPRememberRequest stores text as a memory bound to a conversation.
type MCPRememberRequest struct {
	Text           string         `json:"text"`
	ConversationID string         `json:"conversation_id"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// MCPSearchRequest searches memories, optionally scoped to a conversation.
type MCPSearchRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// MCPInjectRequest injects the most relevant memories into a conversation.
type MCPInjectRequest struct {
	ConversationID string `json:"conversation_id"`
	MaxMemories    int    `json:"max_memories,omitempty"`
}

// MCPRemember calls /mcp/remember.
func (c *Client) MCPRemember(ctx context.Context, req MCPRememberRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/mcp/remember", nil, req, &out)
	return out, err
}

// MCPSearch calls /mcp/search.
func (c *Client) MCPSearch(ctx context.Context, req MCPSearchRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/mcp/search", nil, req, &out)
	return out, err
}

// MCPInject calls /mcp/inject.
func (c *Client) MCPInject(ctx context.Context, req MCPInjectRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/mcp/inject", nil, req, &out)
	return out, err
}

// MCPListMemories pages through the memories bound to a conversation.
func (c *Client) MCPListMemories(ctx context.Context, conversationID string, limit, offset int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("conversation_id", conversationID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/mcp/listMemories", q, nil, &out)
	return out, err
}
