// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// WorkspaceUpdate carries the editable fields of a workspace. Nil fields are left unchanged.
type WorkspaceUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// =============================================================================
// WORKSPACES
// =============================================================================

// ListWorkspaces returns every workspace the user belongs to.
func (c *Client) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	var out struct {
		Workspaces []model.Workspace `json:"workspaces"`
		Total      int               `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/workspaces", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Workspaces, nil
}

// CreateWorkspace creates a workspace owned by the current user.
func (c *Client) CreateWorkspace(ctx context.Context, name, description string) (*model.Workspace, error) {
	req := map[string]string{"name": name, "description": description}
	var out model.Workspace
	if err := c.do(ctx, http.MethodPost, "/workspaces", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWorkspace fetches a single workspace.
func (c *Client) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var out model.Workspace
	if err := c.do(ctx, http.MethodGet, "/workspaces/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWorkspace changes a workspace's name or description.
func (c *Client) UpdateWorkspace(ctx context.Context, id string, upd WorkspaceUpdate) (*model.Workspace, error) {
	var out model.Workspace
	if err := c.do(ctx, http.MethodPut, "/workspaces/"+escape(id), nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWorkspace removes a workspace.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workspaces/"+escape(id), nil, nil, nil)
}

// WorkspaceDashboard fetches the workspace overview.
func (c *Client) WorkspaceDashboard(ctx context.Context, id string) (*model.Dashboard, error) {
	var out model.Dashboard
	if err := c.do(ctx, http.MethodGet, "/workspaces/"+escape(id)+"/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordWorkspaceLoad samples the workspace's current load and returns it.
func (c *Client) RecordWorkspaceLoad(ctx context.Context, id string) (float64, error) {
	var out struct {
		CurrentLoad float64 `json:"currentLoad"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspaces/"+escape(id)+"/record-load", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.CurrentLoad, nil
}
