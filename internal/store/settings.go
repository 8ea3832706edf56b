// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
)

// SettingsStore holds account settings and the last error of a settings call.
type SettingsStore struct {
	notifier

	api SettingsAPI
	log *logrus.Entry

	mu       sync.Mutex
	settings *model.Settings
	cleanup  *model.CleanupInfo
	loading  bool
	lastErr  error
}

// NewSettingsStore creates an empty store.
func NewSettingsStore(client SettingsAPI, opts ...Option) *SettingsStore {
	o := buildOptions("settings", opts)
	return &SettingsStore{api: client, log: o.log}
}

// record stores the outcome of a call and notifies.
func (s *SettingsStore) record(settings *model.Settings, err error) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err
	if err == nil && settings != nil {
		cp := *settings
		s.settings = &cp
	}
	s.mu.Unlock()
	s.changed()
}

// Fetch loads the current settings.
func (s *SettingsStore) Fetch(ctx context.Context) (*model.Settings, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	settings, err := s.api.GetSettings(ctx)
	s.record(settings, err)
	if err != nil {
		s.log.WithError(err).Warn("failed to fetch settings")
		return nil, err
	}
	return settings, nil
}

// UpdateProfile changes the user's name or email.
func (s *SettingsStore) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*model.Settings, error) {
	settings, err := s.api.UpdateProfile(ctx, upd)
	s.record(settings, err)
	if err != nil {
		s.log.WithError(err).Warn("failed to update profile")
		return nil, err
	}
	return settings, nil
}

// UpdateMemoryRetention changes auto-store and the retention period.
func (s *SettingsStore) UpdateMemoryRetention(ctx context.Context, upd api.RetentionUpdate) (*model.Settings, error) {
	settings, err := s.api.UpdateMemoryRetention(ctx, upd)
	s.record(settings, err)
	if err != nil {
		s.log.WithError(err).Warn("failed to update memory retention")
		return nil, err
	}
	return settings, nil
}

// CleanupInfo fetches when the next retention cleanup runs.
func (s *SettingsStore) CleanupInfo(ctx context.Context) (*model.CleanupInfo, error) {
	info, err := s.api.CleanupInfo(ctx)
	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		cp := *info
		s.cleanup = &cp
	}
	s.mu.Unlock()
	s.changed()
	return info, err
}

// TriggerCleanup runs retention cleanup now.
func (s *SettingsStore) TriggerCleanup(ctx context.Context) (*model.CleanupResult, error) {
	res, err := s.api.TriggerCleanup(ctx)
	s.setErr(err)
	if err != nil {
		s.log.WithError(err).Warn("cleanup failed")
		return nil, err
	}
	return res, nil
}

// Export streams the account export into w.
func (s *SettingsStore) Export(ctx context.Context, w io.Writer) (int64, error) {
	n, err := s.api.ExportData(ctx, w)
	s.setErr(err)
	return n, err
}

// DeleteAccount permanently deletes the account.
func (s *SettingsStore) DeleteAccount(ctx context.Context) error {
	err := s.api.DeleteAccount(ctx)
	s.setErr(err)
	if err != nil {
		s.log.WithError(err).Warn("failed to delete account")
	}
	return err
}

func (s *SettingsStore) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.changed()
}

// Settings returns the last fetched settings.
func (s *SettingsStore) Settings() (model.Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return model.Settings{}, false
	}
	return *s.settings, true
}

// Cleanup returns the last fetched cleanup info.
func (s *SettingsStore) Cleanup() (model.CleanupInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleanup == nil {
		return model.CleanupInfo{}, false
	}
	return *s.cleanup, true
}

// Err returns the error of the last call, or nil.
func (s *SettingsStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError forgets the last error.
func (s *SettingsStore) ClearError() {
	s.setErr(nil)
}

// IsLoading reports whether Fetch is in progress.
func (s *SettingsStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Reset clears all state.
func (s *SettingsStore) Reset() {
	s.mu.Lock()
	s.settings = nil
	s.cleanup = nil
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	s.changed()
}
