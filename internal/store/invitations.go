// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
)

// InvitationStore holds invitations addressed to the current user.
type InvitationStore struct {
	notifier

	api InvitationAPI
	log *logrus.Entry

	mu          sync.Mutex
	invitations []model.Invitation
}

// NewInvitationStore creates an empty store.
func NewInvitationStore(client InvitationAPI, opts ...Option) *InvitationStore {
	o := buildOptions("invitations", opts)
	return &InvitationStore{api: client, log: o.log}
}

// Load replaces the invitation list. The revision only moves when the set of
// invitations changed, so a background poll does not cause redraws.
func (s *InvitationStore) Load(ctx context.Context) error {
	list, err := s.api.ListInvitations(ctx)
	if err != nil {
		s.log.WithError(err).Debug("failed to load invitations")
		return err
	}

	s.mu.Lock()
	same := sameInvitations(s.invitations, list)
	if !same {
		s.invitations = list
	}
	s.mu.Unlock()

	if !same {
		s.changed()
	}
	return nil
}

func sameInvitations(a, b []model.Invitation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}

// Accept joins the invitation's workspace and removes the invitation.
func (s *InvitationStore) Accept(ctx context.Context, id string) (*api.JoinedWorkspace, error) {
	joined, err := s.api.AcceptInvitation(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("invitation", id).Warn("failed to accept invitation")
		return nil, err
	}
	s.remove(id)
	return joined, nil
}

// Decline declines and removes the invitation.
func (s *InvitationStore) Decline(ctx context.Context, id string) error {
	if err := s.api.DeclineInvitation(ctx, id); err != nil {
		s.log.WithError(err).WithField("invitation", id).Warn("failed to decline invitation")
		return err
	}
	s.remove(id)
	return nil
}

func (s *InvitationStore) remove(id string) {
	s.mu.Lock()
	for i := range s.invitations {
		if s.invitations[i].ID == id {
			s.invitations = append(s.invitations[:i], s.invitations[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.changed()
}

// Invitations returns every invitation held.
func (s *InvitationStore) Invitations() []model.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Invitation(nil), s.invitations...)
}

// PendingCount returns the number of pending invitations.
func (s *InvitationStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, inv := range s.invitations {
		if inv.Status == model.InvitationPending || inv.Status == "" {
			n++
		}
	}
	return n
}

// Reset clears all state.
func (s *InvitationStore) Reset() {
	s.mu.Lock()
	s.invitations = nil
	s.mu.Unlock()
	s.changed()
}
