// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// RetentionUpdate carries the editable retention fields. Nil fields are left unchanged.
type RetentionUpdate struct {
	AutoStore       *bool   `json:"autoStore,omitempty"`
	RetentionPeriod *string `json:"retentionPeriod,omitempty"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings returns the user's account settings.
func (c *Client) GetSettings(ctx context.Context) (*model.Settings, error) {
	var out model.Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the user's name or email.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*model.Settings, error) {
	var out model.Settings
	if err := c.do(ctx, http.MethodPut, "/settings/profile", nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMemoryRetention changes auto-store and the retention period.
func (c *Client) UpdateMemoryRetention(ctx context.Context, upd RetentionUpdate) (*model.Settings, error) {
	var out model.Settings
	if err := c.do(ctx, http.MethodPut, "/settings/memory-retention", nil, upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CleanupInfo previews the next retention cleanup.
func (c *Client) CleanupInfo(ctx context.Context) (*model.CleanupInfo, error) {
	var out model.CleanupInfo
	if err := c.do(ctx, http.MethodGet, "/settings/cleanup-info", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerCleanup runs the retention cleanup now.
func (c *Client) TriggerCleanup(ctx context.Context) (*model.CleanupResult, error) {
	var out model.CleanupResult
	if err := c.do(ctx, http.MethodPost, "/settings/cleanup", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportData streams the user's full data export (raw JSON, no envelope) to w.
// It returns the number of bytes written.
func (c *Client) ExportData(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, http.MethodGet, "/export", nil, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := readResponse(resp)
		return 0, statusError(resp.StatusCode, body)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write export: %w", err)
	}
	return n, nil
}

// DeleteAccount permanently deletes the user's account and data.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/account", nil, nil, nil)
}
