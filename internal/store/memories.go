// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
)

// MemoryStore holds the active workspace's memories.
type MemoryStore struct {
	notifier

	api MemoryAPI
	log *logrus.Entry

	mu         sync.Mutex
	memories   []model.Memory
	selectedID string
	loading    bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(client MemoryAPI, opts ...Option) *MemoryStore {
	o := buildOptions("memories", opts)
	return &MemoryStore{api: client, log: o.log}
}

func (s *MemoryStore) indexLocked(id string) int {
	for i := range s.memories {
		if s.memories[i].ID == id {
			return i
		}
	}
	return -1
}

// upsert replaces or appends mem and notifies.
func (s *MemoryStore) upsert(mem model.Memory) {
	s.mu.Lock()
	if i := s.indexLocked(mem.ID); i >= 0 {
		s.memories[i] = mem
	} else {
		s.memories = append(s.memories, mem)
	}
	s.mu.Unlock()
	s.changed()
}

// Load replaces the memory list. search and sortBy are passed to the server.
func (s *MemoryStore) Load(ctx context.Context, workspaceID, search, sortBy string) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	list, err := s.api.ListMemories(ctx, workspaceID, search, sortBy)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("workspace", workspaceID).Warn("failed to load memories")
		s.changed()
		return err
	}
	s.memories = list
	if s.indexLocked(s.selectedID) < 0 {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// Create creates a memory in the workspace.
func (s *MemoryStore) Create(ctx context.Context, workspaceID string, in api.MemoryInput) (*model.Memory, error) {
	mem, err := s.api.CreateMemory(ctx, workspaceID, in)
	if err != nil {
		s.log.WithError(err).Warn("failed to create memory")
		return nil, err
	}
	s.upsert(*mem)
	return mem, nil
}

// Fetch loads one memory by ID and stores it.
func (s *MemoryStore) Fetch(ctx context.Context, id string) (*model.Memory, error) {
	mem, err := s.api.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}
	s.upsert(*mem)
	return mem, nil
}

// Update replaces a memory's content.
func (s *MemoryStore) Update(ctx context.Context, id string, in api.MemoryInput) (*model.Memory, error) {
	mem, err := s.api.UpdateMemory(ctx, id, in)
	if err != nil {
		s.log.WithError(err).WithField("memory", id).Warn("failed to update memory")
		return nil, err
	}
	s.upsert(*mem)
	return mem, nil
}

// Delete deletes a memory.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteMemory(ctx, id); err != nil {
		s.log.WithError(err).WithField("memory", id).Warn("failed to delete memory")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.memories = append(s.memories[:i], s.memories[i+1:]...)
	}
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// ReEmbed asks the server to recompute the memory's embedding.
func (s *MemoryStore) ReEmbed(ctx context.Context, id string) (*model.Memory, error) {
	mem, err := s.api.ReEmbedMemory(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("memory", id).Warn("failed to re-embed memory")
		return nil, err
	}
	s.upsert(*mem)
	return mem, nil
}

// Search runs a semantic search. Results are not stored.
func (s *MemoryStore) Search(ctx context.Context, query, workspaceID string, topK int) ([]model.SearchHit, error) {
	return s.api.SearchMemories(ctx, query, workspaceID, topK)
}

// ImportURL imports a web page as a memory.
func (s *MemoryStore) ImportURL(ctx context.Context, workspaceID, pageURL string, summarize bool) (*model.ImportResult, error) {
	res, err := s.api.ImportMemoryFromURL(ctx, workspaceID, pageURL, summarize)
	if err != nil {
		s.log.WithError(err).WithField("url", pageURL).Warn("failed to import URL")
		return nil, err
	}
	s.upsert(res.Memory)
	return res, nil
}

// ImportFile uploads a document as a memory.
func (s *MemoryStore) ImportFile(ctx context.Context, workspaceID, filename string, r io.Reader, summarize bool) (*model.ImportResult, error) {
	res, err := s.api.ImportMemoryFromFile(ctx, workspaceID, filename, r, summarize)
	if err != nil {
		s.log.WithError(err).WithField("file", filename).Warn("failed to import file")
		return nil, err
	}
	s.upsert(res.Memory)
	return res, nil
}

// Select marks a memory as selected. An empty id clears the selection.
func (s *MemoryStore) Select(id string) error {
	s.mu.Lock()
	if id != "" && s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return ErrMemoryNotFound
	}
	s.selectedID = id
	s.mu.Unlock()
	s.changed()
	return nil
}

// Selected returns the selected memory.
func (s *MemoryStore) Selected() (model.Memory, bool) {
	s.mu.Lock()
	id := s.selectedID
	s.mu.Unlock()
	if id == "" {
		return model.Memory{}, false
	}
	return s.Get(id)
}

// Get returns the memory with id.
func (s *MemoryStore) Get(id string) (model.Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.memories[i], true
	}
	return model.Memory{}, false
}

// Memories returns every memory held.
func (s *MemoryStore) Memories() []model.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Memory(nil), s.memories...)
}

// Filter matches query against title, content and tags without a server
// round trip. Matching ignores case and Unicode normalization form.
func (s *MemoryStore) Filter(query string) []model.Memory {
	q := foldText(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()
	if q == "" {
		return append([]model.Memory(nil), s.memories...)
	}
	var out []model.Memory
	for _, m := range s.memories {
		if memoryMatches(m, q) {
			out = append(out, m)
		}
	}
	return out
}

func memoryMatches(m model.Memory, folded string) bool {
	if strings.Contains(foldText(m.Title), folded) || strings.Contains(foldText(m.Content), folded) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(foldText(tag), folded) {
			return true
		}
	}
	return false
}

// foldText applies NFKC normalization and Unicode case folding.
func foldText(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// IsLoading reports whether Load is in progress.
func (s *MemoryStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Reset clears all state.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	s.memories = nil
	s.selectedID = ""
	s.loading = false
	s.mu.Unlock()
	s.changed()
}
