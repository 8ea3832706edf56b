// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// =============================================================================
// AUTH
// =============================================================================

// Register creates an account and returns its first token pair.
func (c *Client) Register(ctx context.Context, name, email, password string) (*model.AuthResult, error) {
	req := map[string]string{"name": name, "email": email, "password": password}
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	req := map[string]string{"email": email, "password": password}
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{"refresh": refresh}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Logout ends the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}
