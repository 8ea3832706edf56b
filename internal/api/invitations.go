// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// JoinedWorkspace identifies the workspace an accepted invitation joined.
type JoinedWorkspace struct {
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
}

// ListInvitations returns the invitations addressed to the current user.
func (c *Client) ListInvitations(ctx context.Context) ([]model.Invitation, error) {
	var out struct {
		Invitations []model.Invitation `json:"invitations"`
		Total       int                `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/invitations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Invitations, nil
}

// AcceptInvitation joins the invitation's workspace.
func (c *Client) AcceptInvitation(ctx context.Context, id string) (*JoinedWorkspace, error) {
	var out JoinedWorkspace
	if err := c.do(ctx, http.MethodPost, "/invitations/"+escape(id)+"/accept", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeclineInvitation rejects an invitation.
func (c *Client) DeclineInvitation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/invitations/"+escape(id)+"/decline", nil, nil, nil)
}
