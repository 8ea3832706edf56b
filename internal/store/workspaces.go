// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/storage"
)

// WorkspaceStore holds the user's workspaces and the active selection.
type WorkspaceStore struct {
	notifier

	api WorkspaceAPI
	log *logrus.Entry
	kv  storage.Store

	mu         sync.Mutex
	workspaces []model.Workspace
	activeID   string
	previousID string
	loading    bool
}

// NewWorkspaceStore creates an empty store. With WithKV the active workspace
// survives restarts.
func NewWorkspaceStore(client WorkspaceAPI, opts ...Option) *WorkspaceStore {
	o := buildOptions("workspaces", opts)
	s := &WorkspaceStore{api: client, log: o.log, kv: o.kv}
	if s.kv != nil {
		if id, err := storage.GetString(s.kv, storage.KeyActiveWorkspace); err == nil {
			s.activeID = id
		}
	}
	return s
}

func (s *WorkspaceStore) indexLocked(id string) int {
	for i := range s.workspaces {
		if s.workspaces[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *WorkspaceStore) persistActive(id string) {
	if s.kv == nil {
		return
	}
	var err error
	if id == "" {
		err = s.kv.Delete(storage.KeyActiveWorkspace)
	} else {
		err = s.kv.Put(storage.KeyActiveWorkspace, []byte(id))
	}
	if err != nil {
		s.log.WithError(err).Warn("failed to persist active workspace")
	}
}

// Load replaces the workspace list. The active workspace is kept when it still
// exists; otherwise the first workspace becomes active.
func (s *WorkspaceStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	list, err := s.api.ListWorkspaces(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Warn("failed to load workspaces")
		s.changed()
		return err
	}
	s.workspaces = list
	if s.indexLocked(s.activeID) < 0 {
		s.activeID = ""
		if len(list) > 0 {
			s.activeID = list[0].ID
		}
	}
	active := s.activeID
	s.mu.Unlock()

	s.persistActive(active)
	s.changed()
	return nil
}

// SetActive selects a workspace and remembers the previous one.
func (s *WorkspaceStore) SetActive(id string) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return ErrWorkspaceNotFound
	}
	if s.activeID == id {
		s.mu.Unlock()
		return nil
	}
	s.previousID = s.activeID
	s.activeID = id
	s.mu.Unlock()

	s.persistActive(id)
	s.changed()
	return nil
}

// Create creates a workspace and makes it active.
func (s *WorkspaceStore) Create(ctx context.Context, name, description string) (*model.Workspace, error) {
	ws, err := s.api.CreateWorkspace(ctx, name, description)
	if err != nil {
		s.log.WithError(err).Warn("failed to create workspace")
		return nil, err
	}

	s.mu.Lock()
	s.workspaces = append(s.workspaces, ws.Clone())
	s.previousID = s.activeID
	s.activeID = ws.ID
	s.mu.Unlock()

	s.persistActive(ws.ID)
	s.changed()
	return ws, nil
}

// Update applies upd and stores the server's record.
func (s *WorkspaceStore) Update(ctx context.Context, id string, upd api.WorkspaceUpdate) (*model.Workspace, error) {
	ws, err := s.api.UpdateWorkspace(ctx, id, upd)
	if err != nil {
		s.log.WithError(err).WithField("workspace", id).Warn("failed to update workspace")
		return nil, err
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.workspaces[i] = ws.Clone()
	}
	s.mu.Unlock()

	s.changed()
	return ws, nil
}

// Delete deletes a workspace. When it was active, the first remaining
// workspace becomes active.
func (s *WorkspaceStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteWorkspace(ctx, id); err != nil {
		s.log.WithError(err).WithField("workspace", id).Warn("failed to delete workspace")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.workspaces = append(s.workspaces[:i], s.workspaces[i+1:]...)
	}
	if s.activeID == id {
		s.activeID = ""
		if len(s.workspaces) > 0 {
			s.activeID = s.workspaces[0].ID
		}
	}
	active := s.activeID
	s.mu.Unlock()

	s.persistActive(active)
	s.changed()
	return nil
}

// UpdateStats applies fn to the workspace's stats locally.
func (s *WorkspaceStore) UpdateStats(id string, fn func(*model.WorkspaceStats)) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	fn(&s.workspaces[i].Stats)
	s.mu.Unlock()
	s.changed()
}

// Dashboard fetches the workspace dashboard and refreshes the local stats from it.
func (s *WorkspaceStore) Dashboard(ctx context.Context, id string) (*model.Dashboard, error) {
	dash, err := s.api.WorkspaceDashboard(ctx, id)
	if err != nil {
		return nil, err
	}
	s.UpdateStats(id, func(st *model.WorkspaceStats) { *st = dash.Stats })
	return dash, nil
}

// RecordLoad asks the server to sample the workspace load and stores it.
func (s *WorkspaceStore) RecordLoad(ctx context.Context, id string) (float64, error) {
	load, err := s.api.RecordWorkspaceLoad(ctx, id)
	if err != nil {
		return 0, err
	}
	s.UpdateStats(id, func(st *model.WorkspaceStats) { st.SystemLoad = load })
	return load, nil
}

// Reset clears all state, including the persisted selection.
func (s *WorkspaceStore) Reset() {
	s.mu.Lock()
	s.workspaces = nil
	s.activeID = ""
	s.previousID = ""
	s.loading = false
	s.mu.Unlock()

	s.persistActive("")
	s.changed()
}

// Workspaces returns copies of every workspace.
func (s *WorkspaceStore) Workspaces() []model.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Workspace, len(s.workspaces))
	for i, w := range s.workspaces {
		out[i] = w.Clone()
	}
	return out
}

// Get returns a copy of the workspace.
func (s *WorkspaceStore) Get(id string) (model.Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.workspaces[i].Clone(), true
	}
	return model.Workspace{}, false
}

// Active returns the active workspace.
func (s *WorkspaceStore) Active() (model.Workspace, bool) {
	return s.Get(s.ActiveID())
}

// ActiveID returns the active workspace ID, or "".
func (s *WorkspaceStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// PreviousID returns the workspace active before the last switch.
func (s *WorkspaceStore) PreviousID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previousID
}

// IsLoading reports whether Load is in progress.
func (s *WorkspaceStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
