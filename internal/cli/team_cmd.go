// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// team_cmd.go - Workspace members and the invitation inbox.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/model"
)

const teamUsage = `chimera team [list]
chimera team invite <email>
chimera team role <member> <admin|member|viewer>
chimera team status <member> <online|away|offline>
chimera team remove <member> [--yes]`

const invitationsUsage = `chimera invitations [list]
chimera invitations accept <id>
chimera invitations decline <id>`

// =============================================================================
// TEAM
// =============================================================================

func runTeam(ctx context.Context, e *Env) error {
	sub := e.sub("list")
	switch sub {
	case "list", "ls", "invite", "role", "status", "remove", "rm":
	default:
		return ErrUnknownSubcommand("team", sub, teamUsage)
	}

	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	if err := e.App.Team.Load(ctx, ws.ID); err != nil {
		return err
	}

	switch sub {
	case "invite":
		return teamInvite(ctx, e, ws)
	case "role":
		return teamRole(ctx, e)
	case "status":
		return teamStatus(ctx, e)
	case "remove", "rm":
		return teamRemove(ctx, e, ws)
	default:
		return teamList(e, ws)
	}
}

func teamList(e *Env, ws model.Workspace) error {
	members := e.App.Team.Members()
	return e.emit(map[string]any{"workspaceId": ws.ID, "members": members}, func() {
		fmt.Fprintln(e.Out, TitleStyle.Render(ws.Name))
		t := NewTable("USER", "NAME", "EMAIL", "ROLE", "STATUS", "JOINED")
		for _, m := range members {
			t.Add(memberID(m), m.Name, m.Email, string(m.Role), RenderStatus(string(m.Status)), formatTime(m.JoinedAt))
		}
		t.Render(e.Out, "No members.")
	})
}

func memberID(m model.TeamMember) string {
	if m.UserID != "" {
		return m.UserID
	}
	return m.ID
}

// memberArg matches a member by user ID, membership ID or email.
func (e *Env) memberArg() (model.TeamMember, error) {
	ref, err := e.Params.Require(1, "member", teamUsage)
	if err != nil {
		return model.TeamMember{}, err
	}
	for _, m := range e.App.Team.Members() {
		if m.UserID == ref || m.ID == ref || strings.EqualFold(m.Email, ref) {
			return m, nil
		}
	}
	return model.TeamMember{}, ErrNotFound("member", ref)
}

func teamInvite(ctx context.Context, e *Env, ws model.Workspace) error {
	email, err := e.Params.Require(1, "email", "chimera team invite <email>")
	if err != nil {
		return err
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Value: email, Reason: "not an email address"}
	}
	if err := e.App.Team.Invite(ctx, email); err != nil {
		return err
	}
	return e.done(map[string]string{"workspaceId": ws.ID, "email": email}, fmt.Sprintf("Invited %s to %s", email, ws.Name))
}

func teamRole(ctx context.Context, e *Env) error {
	m, err := e.memberArg()
	if err != nil {
		return err
	}
	raw, err := e.Params.Require(2, "role", "chimera team role <member> <admin|member|viewer>")
	if err != nil {
		return err
	}
	role := model.MemberRole(strings.ToLower(raw))
	if !role.Valid() {
		return ErrInvalidChoice("role", raw, []string{"admin", "member", "viewer"})
	}
	if err := e.App.Team.UpdateRole(ctx, memberID(m), role); err != nil {
		return err
	}
	return e.done(map[string]string{"userId": memberID(m), "role": string(role)}, fmt.Sprintf("%s is now %s", m.Name, role))
}

func teamStatus(ctx context.Context, e *Env) error {
	m, err := e.memberArg()
	if err != nil {
		return err
	}
	raw, err := e.Params.Require(2, "status", "chimera team status <member> <online|away|offline>")
	if err != nil {
		return err
	}
	status := model.MemberStatus(strings.ToLower(raw))
	switch status {
	case model.MemberOnline, model.MemberAway, model.MemberOffline:
	default:
		return ErrInvalidChoice("status", raw, []string{"online", "away", "offline"})
	}
	if err := e.App.Team.UpdateStatus(ctx, memberID(m), status); err != nil {
		return err
	}
	return e.done(map[string]string{"userId": memberID(m), "status": string(status)}, fmt.Sprintf("%s is now %s", m.Name, status))
}

func teamRemove(ctx context.Context, e *Env, ws model.Workspace) error {
	m, err := e.memberArg()
	if err != nil {
		return err
	}
	ok, err := e.confirm(fmt.Sprintf("remove %s from %s", m.Email, ws.Name), "")
	if err != nil || !ok {
		return err
	}
	if err := e.App.Team.Remove(ctx, memberID(m)); err != nil {
		return err
	}
	return e.done(map[string]string{"userId": memberID(m)}, fmt.Sprintf("Removed %s from %s", m.Name, ws.Name))
}

// =============================================================================
// INVITATIONS
// =============================================================================

func runInvitations(ctx context.Context, e *Env) error {
	sub := e.sub("list")
	switch sub {
	case "list", "ls", "accept", "decline":
	default:
		return ErrUnknownSubcommand("invitations", sub, invitationsUsage)
	}
	if err := e.App.Invitations.Load(ctx); err != nil {
		return err
	}

	if sub == "list" || sub == "ls" {
		list := e.App.Invitations.Invitations()
		return e.emit(map[string]any{"invitations": list, "pending": e.App.Invitations.PendingCount()}, func() {
			t := NewTable("ID", "WORKSPACE", "FROM", "STATUS", "SENT")
			for _, inv := range list {
				from := inv.InviterName
				if inv.InviterEmail != "" {
					from += " <" + inv.InviterEmail + ">"
				}
				t.Add(inv.ID, inv.WorkspaceName, from, RenderStatus(string(inv.Status)), formatTime(inv.CreatedAt))
			}
			t.Render(e.Out, "No invitations.")
		})
	}

	id, err := e.Params.Require(1, "invitation", invitationsUsage)
	if err != nil {
		return err
	}
	if sub == "decline" {
		if err := e.App.Invitations.Decline(ctx, id); err != nil {
			return err
		}
		return e.done(map[string]string{"id": id}, "Declined invitation "+id)
	}

	joined, err := e.App.Invitations.Accept(ctx, id)
	if err != nil {
		return err
	}
	if err := e.App.Workspaces.Load(ctx); err != nil {
		e.notef("Joined, but the workspace list could not be refreshed: %v", err)
	} else if err := e.App.Workspaces.SetActive(joined.WorkspaceID); err != nil {
		e.notef("Joined, but could not switch to the workspace: %v", err)
	}
	return e.done(joined, fmt.Sprintf("Joined %s", joined.WorkspaceName))
}
