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

// IntegrationStore holds the user's provider credentials and the model catalog.
type IntegrationStore struct {
	notifier

	api IntegrationAPI
	log *logrus.Entry

	mu           sync.Mutex
	integrations []model.Integration
	models       []model.AvailableModel
	loading      bool
}

// NewIntegrationStore creates an empty store.
func NewIntegrationStore(client IntegrationAPI, opts ...Option) *IntegrationStore {
	o := buildOptions("integrations", opts)
	return &IntegrationStore{api: client, log: o.log}
}

func (s *IntegrationStore) indexLocked(id string) int {
	for i := range s.integrations {
		if s.integrations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *IntegrationStore) put(in model.Integration) {
	s.mu.Lock()
	if i := s.indexLocked(in.ID); i >= 0 {
		s.integrations[i] = in
	} else {
		s.integrations = append(s.integrations, in)
	}
	s.mu.Unlock()
	s.changed()
}

// Load fetches integrations and the model catalog.
func (s *IntegrationStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	list, err := s.api.ListIntegrations(ctx)
	var models []model.AvailableModel
	if err == nil {
		models, err = s.api.AvailableModels(ctx)
	}

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).Warn("failed to load integrations")
		s.changed()
		return err
	}
	s.integrations = list
	s.models = models
	s.mu.Unlock()

	s.changed()
	return nil
}

// Create stores a new provider key.
func (s *IntegrationStore) Create(ctx context.Context, provider model.Provider, apiKey string) (*model.Integration, error) {
	in, err := s.api.CreateIntegration(ctx, provider, apiKey)
	if err != nil {
		s.log.WithError(err).WithField("provider", provider).Warn("failed to create integration")
		return nil, err
	}
	s.put(*in)
	return in, nil
}

// Update replaces a provider key.
func (s *IntegrationStore) Update(ctx context.Context, id, apiKey string) (*model.Integration, error) {
	in, err := s.api.UpdateIntegration(ctx, id, apiKey)
	if err != nil {
		s.log.WithError(err).WithField("integration", id).Warn("failed to update integration")
		return nil, err
	}
	s.put(*in)
	return in, nil
}

// Delete removes a provider key.
func (s *IntegrationStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteIntegration(ctx, id); err != nil {
		s.log.WithError(err).WithField("integration", id).Warn("failed to delete integration")
		return err
	}
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.integrations = append(s.integrations[:i], s.integrations[i+1:]...)
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// Test checks a key against its provider and stores the updated record.
func (s *IntegrationStore) Test(ctx context.Context, id string) (*api.TestResult, error) {
	res, err := s.api.TestIntegration(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("integration", id).Warn("integration test failed")
		return nil, err
	}
	s.put(res.Integration)
	return res, nil
}

// Integrations returns every integration held.
func (s *IntegrationStore) Integrations() []model.Integration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Integration(nil), s.integrations...)
}

// Models returns the full model catalog.
func (s *IntegrationStore) Models() []model.AvailableModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AvailableModel(nil), s.models...)
}

// ConnectedModels returns the catalog entries whose provider has a connected key.
func (s *IntegrationStore) ConnectedModels() []model.AvailableModel {
	s.mu.Lock()
	defer s.mu.Unlock()

	connected := make(map[model.Provider]bool)
	for _, in := range s.integrations {
		if in.Status == model.IntegrationConnected {
			connected[in.Provider] = true
		}
	}
	var out []model.AvailableModel
	for _, m := range s.models {
		if connected[m.Provider] {
			out = append(out, m)
		}
	}
	return out
}

// IsLoading reports whether Load is in progress.
func (s *IntegrationStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Reset clears all state.
func (s *IntegrationStore) Reset() {
	s.mu.Lock()
	s.integrations = nil
	s.models = nil
	s.loading = false
	s.mu.Unlock()
	s.changed()
}
