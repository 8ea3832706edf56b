// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// errNoTeam is returned by team mutations before Load picked a workspace.
var errNoTeam = errors.New("team not loaded")

// TeamStore holds the members of one workspace.
type TeamStore struct {
	notifier

	api TeamAPI
	log *logrus.Entry

	mu          sync.Mutex
	workspaceID string
	members     []model.TeamMember
}

// NewTeamStore creates an empty store.
func NewTeamStore(client TeamAPI, opts ...Option) *TeamStore {
	o := buildOptions("team", opts)
	return &TeamStore{api: client, log: o.log}
}

// memberKey is the ID the team endpoints address a member by.
func memberKey(m model.TeamMember) string {
	if m.UserID != "" {
		return m.UserID
	}
	return m.ID
}

func (s *TeamStore) indexLocked(userID string) int {
	for i := range s.members {
		if memberKey(s.members[i]) == userID {
			return i
		}
	}
	return -1
}

// Load fetches the workspace's members. The revision only moves when the
// membership or a member's role or status changed.
func (s *TeamStore) Load(ctx context.Context, workspaceID string) error {
	list, err := s.api.ListTeam(ctx, workspaceID)
	if err != nil {
		s.log.WithError(err).WithField("workspace", workspaceID).Debug("failed to load team")
		return err
	}

	s.mu.Lock()
	same := s.workspaceID == workspaceID && sameMembers(s.members, list)
	s.workspaceID = workspaceID
	if !same {
		s.members = list
	}
	s.mu.Unlock()

	if !same {
		s.changed()
	}
	return nil
}

func sameMembers(a, b []model.TeamMember) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if memberKey(a[i]) != memberKey(b[i]) || a[i].Role != b[i].Role || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}

func (s *TeamStore) workspace() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspaceID == "" {
		return "", errNoTeam
	}
	return s.workspaceID, nil
}

// Invite sends an invitation. The member list is unchanged until it is accepted.
func (s *TeamStore) Invite(ctx context.Context, email string) error {
	ws, err := s.workspace()
	if err != nil {
		return err
	}
	if err := s.api.InviteMember(ctx, ws, email); err != nil {
		s.log.WithError(err).Warn("failed to invite member")
		return err
	}
	return nil
}

// UpdateRole changes a member's role.
func (s *TeamStore) UpdateRole(ctx context.Context, userID string, role model.MemberRole) error {
	ws, err := s.workspace()
	if err != nil {
		return err
	}
	if err := s.api.UpdateMemberRole(ctx, ws, userID, role); err != nil {
		s.log.WithError(err).WithField("member", userID).Warn("failed to update role")
		return err
	}
	s.update(userID, func(m *model.TeamMember) { m.Role = role })
	return nil
}

// UpdateStatus changes a member's presence.
func (s *TeamStore) UpdateStatus(ctx context.Context, userID string, status model.MemberStatus) error {
	ws, err := s.workspace()
	if err != nil {
		return err
	}
	if err := s.api.UpdateMemberStatus(ctx, ws, userID, status); err != nil {
		s.log.WithError(err).WithField("member", userID).Warn("failed to update status")
		return err
	}
	s.update(userID, func(m *model.TeamMember) { m.Status = status })
	return nil
}

// Remove removes a member from the workspace.
func (s *TeamStore) Remove(ctx context.Context, userID string) error {
	ws, err := s.workspace()
	if err != nil {
		return err
	}
	if err := s.api.RemoveMember(ctx, ws, userID); err != nil {
		s.log.WithError(err).WithField("member", userID).Warn("failed to remove member")
		return err
	}
	s.mu.Lock()
	if i := s.indexLocked(userID); i >= 0 {
		s.members = append(s.members[:i], s.members[i+1:]...)
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *TeamStore) update(userID string, fn func(*model.TeamMember)) {
	s.mu.Lock()
	if i := s.indexLocked(userID); i >= 0 {
		fn(&s.members[i])
	}
	s.mu.Unlock()
	s.changed()
}

// Members returns every member held.
func (s *TeamStore) Members() []model.TeamMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TeamMember(nil), s.members...)
}

// WorkspaceID returns the workspace the members belong to.
func (s *TeamStore) WorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID
}

// Reset clears all state.
func (s *TeamStore) Reset() {
	s.mu.Lock()
	s.workspaceID = ""
	s.members = nil
	s.mu.Unlock()
	s.changed()
}
