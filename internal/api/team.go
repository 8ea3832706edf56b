// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

func teamPath(workspaceID string) string {
	return "/workspaces/" + escape(workspaceID) + "/team"
}

// =============================================================================
// TEAM
// =============================================================================

// ListTeam returns the members of a workspace.
func (c *Client) ListTeam(ctx context.Context, workspaceID string) ([]model.TeamMember, error) {
	var out struct {
		Members []model.TeamMember `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, teamPath(workspaceID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// InviteMember sends a workspace invitation to an email address.
func (c *Client) InviteMember(ctx context.Context, workspaceID, email string) error {
	return c.do(ctx, http.MethodPost, teamPath(workspaceID)+"/invite", nil, map[string]string{"email": email}, nil)
}

// UpdateMemberRole changes a member's role.
func (c *Client) UpdateMemberRole(ctx context.Context, workspaceID, userID string, role model.MemberRole) error {
	req := map[string]model.MemberRole{"role": role}
	return c.do(ctx, http.MethodPut, teamPath(workspaceID)+"/"+escape(userID)+"/role", nil, req, nil)
}

// UpdateMemberStatus changes a member's presence status.
func (c *Client) UpdateMemberStatus(ctx context.Context, workspaceID, userID string, status model.MemberStatus) error {
	req := map[string]model.MemberStatus{"status": status}
	return c.do(ctx, http.MethodPut, teamPath(workspaceID)+"/"+escape(userID)+"/status", nil, req, nil)
}

// RemoveMember removes a member from the workspace.
func (c *Client) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	return c.do(ctx, http.MethodDelete, teamPath(workspaceID)+"/"+escape(userID), nil, nil, nil)
}
