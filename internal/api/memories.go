// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// DefaultTopK is the number of results a memory search returns by default.
const DefaultTopK = 5

// MemoryInput carries the fields of a memory create or update. For updates,
// zero-valued fields are omitted and left unchanged.
type MemoryInput struct {
	Title    string         `json:"title,omitempty"`
	Content  string         `json:"content,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func memoryPath(id string) string {
	return "/memories/" + escape(id)
}

// =============================================================================
// MEMORIES
// =============================================================================

// ListMemories returns the workspace's memories, optionally filtered by a
// server-side search term and ordered by sortBy.
func (c *Client) ListMemories(ctx context.Context, workspaceID, search, sortBy string) ([]model.Memory, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if sortBy != "" {
		q.Set("sortBy", sortBy)
	}
	var out struct {
		Memories []model.Memory `json:"memories"`
		Total    int            `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/workspaces/"+escape(workspaceID)+"/memories", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

// CreateMemory stores a new memory. The backend generates its embedding.
func (c *Client) CreateMemory(ctx context.Context, workspaceID string, in MemoryInput) (*model.Memory, error) {
	var out model.Memory
	if err := c.do(ctx, http.MethodPost, "/workspaces/"+escape(workspaceID)+"/memories", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMemory fetches a memory.
func (c *Client) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	var out model.Memory
	if err := c.do(ctx, http.MethodGet, memoryPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMemory edits a memory.
func (c *Client) UpdateMemory(ctx context.Context, id string, in MemoryInput) (*model.Memory, error) {
	var out model.Memory
	if err := c.do(ctx, http.MethodPut, memoryPath(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMemory removes a memory.
func (c *Client) DeleteMemory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, memoryPath(id), nil, nil, nil)
}

// ReEmbedMemory asks the backend to regenerate a memory's embedding.
func (c *Client) ReEmbedMemory(ctx context.Context, id string) (*model.Memory, error) {
	var out model.Memory
	if err := c.do(ctx, http.MethodPost, memoryPath(id)+"/re-embed", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchMemories runs a semantic search over the workspace's memories.
func (c *Client) SearchMemories(ctx context.Context, query, workspaceID string, topK int) ([]model.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	req := struct {
		Query       string `json:"query"`
		WorkspaceID string `json:"workspaceId"`
		TopK        int    `json:"top_k"`
	}{query, workspaceID, topK}

	var out struct {
		Results []model.SearchHit `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/memories/search", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ImportMemoryFromURL has the backend fetch a page and store it as a memory,
// optionally summarized.
func (c *Client) ImportMemoryFromURL(ctx context.Context, workspaceID, pageURL string, summarize bool) (*model.ImportResult, error) {
	req := struct {
		URL       string `json:"url"`
		Summarize bool   `json:"summarize"`
	}{pageURL, summarize}

	var out model.ImportResult
	if err := c.do(ctx, http.MethodPost, "/workspaces/"+escape(workspaceID)+"/memories/import-url", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportMemoryFromFile uploads a document as a multipart form. Never retried.
func (c *Client) ImportMemoryFromFile(ctx context.Context, workspaceID, filename string, r io.Reader, summarize bool) (*model.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(r, MaxResponseSize)); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.WriteField("summarize", strconv.FormatBool(summarize)); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	payload := buf.Bytes()
	body := func() io.Reader { return bytes.NewReader(payload) }
	path := "/workspaces/" + escape(workspaceID) + "/memories/import-file"

	status, respBody, err := c.roundTrip(ctx, http.MethodPost, path, nil, body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var out model.ImportResult
	if err := decodeEnvelope(status, respBody, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
