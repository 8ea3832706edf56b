// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/config"
	"github.com/jeranaias/chimera-cli/internal/storage"
)

func envelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": data, "error": nil})
}

// fakeBackend serves just enough of the API for a sign-in and a send.
func fakeBackend(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var logouts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]any{
			"token":   "tok-1",
			"refresh": "ref-1",
			"user":    map[string]any{"id": "u1", "name": "Ada", "email": "ada@example.com"},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		logouts.Add(1)
		envelope(w, nil)
	})
	mux.HandleFunc("GET /workspaces", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		envelope(w, map[string]any{
			"workspaces": []map[string]any{
				{"id": "w1", "name": "Lab"},
				{"id": "w2", "name": "Garage"},
			},
			"total": 2,
		})
	})
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]any{
			"id": "c1", "workspaceId": "w1", "title": "Notes", "status": "active",
			"messages": []map[string]any{
				{"id": "m1", "conversationId": "c1", "role": "user", "content": "hi", "timestamp": "2025-01-01T00:00:00Z"},
			},
		})
	})
	mux.HandleFunc("POST /conversations/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]any{
			"userMessage":      map[string]any{"id": "m2", "conversationId": "c1", "role": "user", "content": "hello", "timestamp": "2025-01-01T00:00:01Z"},
			"assistantMessage": map[string]any{"id": "m3", "conversationId": "c1", "role": "assistant", "content": "hey", "timestamp": "2025-01-01T00:00:02Z"},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &logouts
}

func newTestApp(t *testing.T, baseURL string, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(cfg, Options{Version: "test", HTTPClientOptions: []api.Option{api.WithRetryBackoff(time.Millisecond)}})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApp_LoginRestoreLogout(t *testing.T) {
	t.Setenv("CHIMERA_HOME", t.TempDir())
	server, logouts := fakeBackend(t)
	ctx := context.Background()

	first := newTestApp(t, server.URL, nil)
	require.ErrorIs(t, first.RequireAuth(ctx), ErrNotSignedIn)

	_, err := first.Auth.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestApp(t, server.URL, nil)
	require.NoError(t, second.RequireAuth(ctx))
	require.Equal(t, "tok-1", second.API.Token())

	ws, err := second.ResolveWorkspace(ctx, "Garage")
	require.NoError(t, err)
	require.Equal(t, "w2", ws.ID)

	require.NoError(t, second.Conversations.Refresh(ctx, "c1"))
	res, err := second.Conversations.Send(ctx, "c1", "hello", true)
	require.NoError(t, err)
	require.Equal(t, "m3", res.AssistantMessage.ID.String())

	require.NoError(t, second.Auth.Logout(ctx))
	require.EqualValues(t, 1, logouts.Load())
	require.Empty(t, second.Conversations.Conversations())
	require.Empty(t, second.Workspaces.ActiveID())

	ok, err := second.Restore(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestApp_ResolveWorkspaceUnknown(t *testing.T) {
	t.Setenv("CHIMERA_HOME", t.TempDir())
	server, _ := fakeBackend(t)
	a := newTestApp(t, server.URL, nil)
	ctx := context.Background()
	_, err := a.Auth.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = a.ResolveWorkspace(ctx, "missing")
	require.Error(t, err)

	ws, err := a.ResolveWorkspace(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "w1", ws.ID)
}

func TestApp_EncryptedStorage(t *testing.T) {
	t.Setenv("CHIMERA_HOME", t.TempDir())
	server, _ := fakeBackend(t)

	cfg := config.Default()
	cfg.Storage.Encrypt = true
	_, err := New(cfg, Options{})
	require.ErrorIs(t, err, ErrMissingCacheKey)

	a := newTestApp(t, server.URL, func(c *config.Config) {
		c.Storage.Encrypt = true
		c.Storage.CacheKey = "correct horse battery staple"
		c.Storage.Driver = storage.DriverBolt
	})
	_, err = a.Auth.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	_, ok := a.KV.(*storage.SealedStore)
	require.True(t, ok)
}

func TestApp_PollerCondition(t *testing.T) {
	t.Setenv("CHIMERA_HOME", t.TempDir())
	server, _ := fakeBackend(t)
	a := newTestApp(t, server.URL, func(c *config.Config) { c.Sync.PollIntervalMs = 5 })
	ctx := context.Background()

	p := a.NewPoller()
	require.Equal(t, 5*time.Millisecond, p.Interval())

	// Signed out: the condition does not hold.
	require.Error(t, p.Run(ctx, "c1"))

	_, err := a.Auth.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, a.Conversations.Refresh(ctx, "c1"))

	stop := p.Start(ctx, "c1")
	time.Sleep(30 * time.Millisecond)
	stop()
}

func TestApp_PollerResumesAfterReopen(t *testing.T) {
	t.Setenv("CHIMERA_HOME", t.TempDir())

	var (
		status  atomic.Value
		fetches atomic.Int32
	)
	status.Store("completed")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, map[string]any{"token": "tok-1", "user": map[string]any{"id": "u1", "email": "ada@example.com"}})
	})
	conversation := func() map[string]any {
		return map[string]any{
			"id": "c1", "workspaceId": "w1", "title": "Notes", "status": status.Load(),
			"messages": []map[string]any{
				{"id": "m1", "conversationId": "c1", "role": "user", "content": "hi", "timestamp": "2025-01-01T00:00:00Z"},
			},
		}
	}
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		envelope(w, conversation())
	})
	mux.HandleFunc("POST /conversations/c1/reopen", func(w http.ResponseWriter, r *http.Request) {
		status.Store("active")
		envelope(w, map[string]any{"conversation": conversation()})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	a := newTestApp(t, server.URL, func(c *config.Config) { c.Sync.PollIntervalMs = 5 })
	ctx := context.Background()
	_, err := a.Auth.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, a.Conversations.Refresh(ctx, "c1"))

	stop := a.NewPoller().Start(ctx, "c1")
	defer stop()

	// A completed conversation is not polled.
	time.Sleep(30 * time.Millisecond)
	require.EqualValues(t, 1, fetches.Load())

	require.NoError(t, a.Conversations.Reopen(ctx, "c1"))
	require.Eventually(t, func() bool { return fetches.Load() >= 3 }, time.Second, time.Millisecond,
		"polling resumes once the conversation is active again")
}

func TestApp_StartBackground(t *testing.T) {
	t.Setenv("CHIMERA_HOME", t.TempDir())
	server, _ := fakeBackend(t)
	a := newTestApp(t, server.URL, func(c *config.Config) { c.Sync.LoadIntervalSecs = 0 })

	require.NoError(t, a.StartBackground())
	require.Equal(t, []string{JobInvitations, JobTeam, JobTokenRefresh}, a.Scheduler.Names())
}
