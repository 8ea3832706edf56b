// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/store"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func envelope(w http.ResponseWriter, status int, data any, errMsg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"ok": errMsg == "", "data": data}
	if errMsg != "" {
		body["error"] = errMsg
	}
	json.NewEncoder(w).Encode(body)
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]any{
			"id": "c1", "workspaceId": "w1", "title": "Lab notes", "modelId": "gpt-4o", "status": "active",
			"messages": []map[string]any{
				{"id": "m1", "conversationId": "c1", "role": "user", "content": "hi there", "timestamp": "2025-01-01T00:00:00Z"},
			},
		}, "")
	})
	mux.HandleFunc("POST /conversations/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Content == "fail" {
			envelope(w, http.StatusInternalServerError, nil, "model unavailable")
			return
		}
		envelope(w, http.StatusOK, map[string]any{
			"userMessage":      map[string]any{"id": "m2", "conversationId": "c1", "role": "user", "content": req.Content, "timestamp": "2025-01-01T00:00:01Z"},
			"assistantMessage": map[string]any{"id": "m3", "conversationId": "c1", "role": "assistant", "content": "general kenobi", "timestamp": "2025-01-01T00:00:02Z"},
		}, "")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newModel(t *testing.T) (Model, Deps) {
	t.Helper()
	server := fakeBackend(t)
	client := api.New(server.URL, api.WithHTTPClient(server.Client()), api.WithRateLimit(0, 0), api.WithRetryBackoff(time.Millisecond))

	deps := Deps{
		Conversations: store.NewConversationStore(client),
		Memories:      store.NewMemoryStore(client),
		Toasts:        store.NewToastStore(0),
		Theme:         styles.NewTheme(styles.ModeDark),
		AIResponse:    true,
		WorkspaceName: "Lab",
	}
	m := New(deps, "c1")
	t.Cleanup(m.Close)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	next, _ = m.Update(m.loadCmd()())
	return next.(Model), deps
}

func typeText(m Model, s string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_LoadRendersConversation(t *testing.T) {
	m, _ := newModel(t)

	view := m.View()
	require.Contains(t, view, "Lab notes")
	require.Contains(t, view, "hi there")
	require.Contains(t, view, "Lab")
	require.False(t, m.IsSending())
}

func TestModel_SendDisablesInputUntilDone(t *testing.T) {
	m, deps := newModel(t)

	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	require.True(t, m.IsSending())
	require.Contains(t, m.View(), "sending...")

	// Typing and submitting are ignored while the send is in flight.
	m = typeText(m, "more")
	require.Empty(t, m.input.Value())
	_, cmd = press(m, tea.KeyEnter)
	require.Nil(t, cmd)

	next, _ := m.Update(m.sendCmd("hello")())
	m = next.(Model)
	require.False(t, m.IsSending())
	require.NoError(t, m.Err())

	conv, ok := deps.Conversations.Get("c1")
	require.True(t, ok)
	require.Len(t, conv.Messages, 3)
	require.Contains(t, m.View(), "general kenobi")
}

func TestModel_SendFailureRestoresAndReports(t *testing.T) {
	m, deps := newModel(t)

	m = typeText(m, "fail")
	m, _ = press(m, tea.KeyEnter)
	next, _ := m.Update(m.sendCmd("fail")())
	m = next.(Model)

	require.False(t, m.IsSending())
	require.Error(t, m.Err())
	require.Contains(t, m.View(), "model unavailable")

	conv, _ := deps.Conversations.Get("c1")
	require.Len(t, conv.Messages, 1)

	toasts := deps.Toasts.List()
	require.Len(t, toasts, 1)
	require.Equal(t, store.ToastError, toasts[0].Kind)

	m, _ = press(m, tea.KeyEsc)
	require.NoError(t, m.Err())
}

func TestModel_SlashCommands(t *testing.T) {
	m, _ := newModel(t)

	m = typeText(m, "/help")
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	require.False(t, m.IsSending())

	next, _ := m.Update(m.commandCmd("/help")())
	m = next.(Model)
	view := m.View()
	require.Contains(t, view, "/close")
	require.Contains(t, view, "more")

	next, _ = m.Update(m.commandCmd("/nope")())
	m = next.(Model)
	require.Contains(t, m.View(), "unknown command")

	next, cmd = m.Update(m.commandCmd("/quit")())
	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
	_ = next
}

func TestModel_TabCompletesCommands(t *testing.T) {
	m, _ := newModel(t)

	m = typeText(m, "/tog")
	m, _ = press(m, tea.KeyTab)
	require.Equal(t, "/toggle ", m.input.Value())

	m.input.SetValue("/r")
	m, _ = press(m, tea.KeyTab)
	require.Equal(t, "/r", m.input.Value())
	require.True(t, strings.Contains(m.notice, "/reopen") && strings.Contains(m.notice, "/refresh"))
}

func TestModel_StoreChangesWakeTheView(t *testing.T) {
	m, deps := newModel(t)

	// Drain anything queued by the initial load.
	select {
	case <-m.bridge.changes:
	default:
	}

	deps.Conversations.SetAutoStore(true)
	msg := m.bridge.waitForChange()()
	require.Equal(t, storeChangedMsg{}, msg)

	next, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	_ = next

	m.Close()
	m.Close()
	require.Nil(t, m.bridge.waitForChange()())
}

func TestModel_PrefsMsgSwapsTheme(t *testing.T) {
	m, _ := newModel(t)
	require.True(t, m.deps.AIResponse)

	next, cmd := m.Update(PrefsMsg{Theme: styles.ModeLight, AIResponse: false})
	m = next.(Model)
	require.Nil(t, cmd)
	require.Equal(t, styles.ModeLight, m.deps.Theme.Mode)
	require.False(t, m.deps.AIResponse)
	require.Contains(t, m.View(), "hi there")
}
