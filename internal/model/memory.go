// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// Memory is a unit of stored knowledge. The backend generates Embedding.
type Memory struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspaceId"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Snippet     string         `json:"snippet,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Embedding   []float64      `json:"embedding,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Version     int            `json:"version,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// HasEmbedding reports whether the server has generated an embedding yet.
func (m *Memory) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// SearchHit is one result of a semantic memory search.
type SearchHit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// ImportResult describes a memory created from a URL or an uploaded file.
type ImportResult struct {
	Memory           Memory `json:"memory"`
	SourceType       string `json:"source_type,omitempty"`
	FileType         string `json:"file_type,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	WasSummarized    bool   `json:"was_summarized,omitempty"`
}
