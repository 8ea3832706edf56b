// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the signed-in user's credentials and idle state.
//
// A Manager keeps the access token, refresh token and user record, persists
// them through a storage.Store (sealed when a cache key is configured), and
// tracks user activity so an idle session can be ended.
//
// # Usage
//
//	mgr := session.NewManager(store, session.Config{IdleTimeout: 30 * time.Minute})
//	if ok, _ := mgr.Restore(); !ok {
//	    // prompt for login, then
//	    mgr.Begin(authResult)
//	}
//	if mgr.NeedsRefresh(time.Minute) {
//	    // call the refresh endpoint and SetToken
//	}
//
// Access tokens are inspected for their exp claim without verifying the
// signature. The backend verifies every request.
package session
