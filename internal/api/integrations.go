// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// TestResult is the outcome of checking a stored credential against its provider.
type TestResult struct {
	Integration model.Integration `json:"integration"`
	Message     string            `json:"message"`
}

// ListIntegrations returns the user's provider credentials.
func (c *Client) ListIntegrations(ctx context.Context) ([]model.Integration, error) {
	var out struct {
		Integrations []model.Integration `json:"integrations"`
		Total        int                 `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/integrations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Integrations, nil
}

// CreateIntegration stores a provider API key.
func (c *Client) CreateIntegration(ctx context.Context, provider model.Provider, apiKey string) (*model.Integration, error) {
	req := struct {
		Provider model.Provider `json:"provider"`
		APIKey   string         `json:"apiKey"`
	}{provider, apiKey}

	var out model.Integration
	if err := c.do(ctx, http.MethodPost, "/integrations", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIntegration replaces a stored API key.
func (c *Client) UpdateIntegration(ctx context.Context, id, apiKey string) (*model.Integration, error) {
	var out model.Integration
	if err := c.do(ctx, http.MethodPut, "/integrations/"+escape(id), nil, map[string]string{"apiKey": apiKey}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIntegration removes a stored credential.
func (c *Client) DeleteIntegration(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/integrations/"+escape(id), nil, nil, nil)
}

// TestIntegration checks a credential against its provider.
func (c *Client) TestIntegration(ctx context.Context, id string) (*TestResult, error) {
	var out TestResult
	if err := c.do(ctx, http.MethodPost, "/integrations/"+escape(id)+"/test", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailableModels lists the models reachable through connected providers.
func (c *Client) AvailableModels(ctx context.Context) ([]model.AvailableModel, error) {
	var out struct {
		Models []model.AvailableModel `json:"models"`
		Total  int                    `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/models/available", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}
