// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// newTestClient starts a server for handler and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL,
		WithHTTPClient(server.Client()),
		WithRetryBackoff(time.Millisecond),
		WithRateLimit(0, 0),
	)
}

// writeEnvelope writes {ok:true, data}.
func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": data, "error": nil})
}

// =============================================================================
// ENVELOPE TESTS
// =============================================================================

func TestClient_DecodesEnvelopeData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/workspaces/w1/conversations", r.URL.Path)
		writeEnvelope(w, map[string]any{
			"conversations": []map[string]any{
				{"id": "c1", "workspaceId": "w1", "title": "First", "status": "active"},
				{"id": "c2", "workspaceId": "w1", "title": "Second", "status": "completed"},
			},
			"total": 2,
		})
	})

	convs, err := client.ListConversations(context.Background(), "w1")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	require.Equal(t, "Second", convs[1].Title)
	require.Equal(t, model.StatusCompleted, convs[1].Status)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeEnvelope(w, map[string]any{"workspaces": []any{}, "total": 0})
	})

	_, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Equal(t, "", gotAuth.Load())

	client.SetToken("tok-123")
	_, err = client.ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth.Load())
}

func TestClient_EmptyBodySucceeds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, client.DeleteConversation(context.Background(), "c1"))
}

// =============================================================================
// ERROR NORMALIZATION TESTS
// =============================================================================

func TestClient_ErrorNormalization(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name:     "status with string error",
			status:   http.StatusBadRequest,
			body:     `{"ok":false,"data":null,"error":"Title is required"}`,
			wantKind: KindStatus,
			wantMsg:  "Title is required",
		},
		{
			name:     "status with validation object",
			status:   http.StatusBadRequest,
			body:     `{"ok":false,"error":{"title":["This field is required."],"email":["Enter a valid email.","Too long."]}}`,
			wantKind: KindValidation,
			wantMsg:  "email: Enter a valid email., Too long.; title: This field is required.",
		},
		{
			name:     "status with scalar validation value",
			status:   http.StatusBadRequest,
			body:     `{"error":{"name":"taken"}}`,
			wantKind: KindValidation,
			wantMsg:  "name: taken",
		},
		{
			name:     "status with empty validation object",
			status:   http.StatusBadRequest,
			body:     `{"error":{}}`,
			wantKind: KindValidation,
			wantMsg:  "Validation failed",
		},
		{
			name:     "status without error field",
			status:   http.StatusNotFound,
			body:     `{"detail":"nope"}`,
			wantKind: KindStatus,
			wantMsg:  "HTTP 404: Not Found",
		},
		{
			name:     "status with non-json body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantKind: KindStatus,
			wantMsg:  "Request failed",
		},
		{
			name:     "ok false with message",
			status:   http.StatusOK,
			body:     `{"ok":false,"data":null,"error":"Conversation is archived"}`,
			wantKind: KindEnvelope,
			wantMsg:  "Conversation is archived",
		},
		{
			name:     "ok false without message",
			status:   http.StatusOK,
			body:     `{"ok":false,"data":null,"error":null}`,
			wantKind: KindEnvelope,
			wantMsg:  "API request failed",
		},
		{
			name:     "ok false with validation object",
			status:   http.StatusOK,
			body:     `{"ok":false,"error":{"content":["Too long."]}}`,
			wantKind: KindValidation,
			wantMsg:  "content: Too long.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})

			_, err := client.CreateConversation(context.Background(), "w1", "t", "m")
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr), "want *Error, got %T", err)
			require.Equal(t, tc.wantKind, apiErr.Kind)
			require.Equal(t, tc.wantMsg, err.Error())
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(url, WithMaxRetries(1), WithRateLimit(0, 0))
	_, err := client.GetConversation(context.Background(), "c1")
	require.Error(t, err)
	require.True(t, IsKind(err, KindTransport))
}

func TestError_IsSentinels(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range tests {
		err := error(&Error{Kind: KindStatus, Status: tc.status, Message: "x"})
		require.ErrorIs(t, err, tc.target)
	}
	require.False(t, errors.Is(&Error{Status: 500}, ErrNotFound))
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestClient_RetriesIdempotentRequests(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeEnvelope(w, map[string]any{"id": "c1", "title": "ok", "status": "active"})
	})

	conv, err := client.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "ok", conv.Title)
	require.Equal(t, int32(2), calls.Load())
}

func TestClient_NeverRetriesPost(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.SendMessage(context.Background(), "c1", "hello", true)
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetConversation(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, int32(1), calls.Load())
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.GetConversation(ctx, "c1")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("request did not abort after cancellation")
	}
}

// =============================================================================
// ENDPOINT TESTS
// =============================================================================

func TestClient_SendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/conversations/c1/messages", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hello", body["content"])
		require.Equal(t, true, body["getAiResponse"])

		writeEnvelope(w, map[string]any{
			"userMessage":      map[string]any{"id": "m3", "role": "user", "content": "hello"},
			"assistantMessage": map[string]any{"id": "m4", "role": "assistant", "content": "hi"},
		})
	})

	res, err := client.SendMessage(context.Background(), "c1", "hello", true)
	require.NoError(t, err)
	require.Equal(t, model.ConfirmedID("m3"), res.UserMessage.ID)
	require.NotNil(t, res.AssistantMessage)
	require.Equal(t, model.ConfirmedID("m4"), res.AssistantMessage.ID)
}

func TestClient_EmptyDataIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations/c1":
			writeEnvelope(w, nil)
		case "/conversations/c1/messages":
			writeEnvelope(w, map[string]any{"userMessage": map[string]any{}, "assistantMessage": nil})
		default:
			writeEnvelope(w, map[string]any{})
		}
	})
	ctx := context.Background()

	conv, err := client.GetConversation(ctx, "c1")
	require.Nil(t, conv)
	require.True(t, IsKind(err, KindEnvelope))
	require.Equal(t, "API response missing conversation", err.Error())

	res, err := client.SendMessage(ctx, "c1", "hello", true)
	require.Nil(t, res)
	require.True(t, IsKind(err, KindEnvelope))

	_, err = client.CreateConversation(ctx, "w1", "Notes", "gpt-4o")
	require.True(t, IsKind(err, KindEnvelope))
}

func TestClient_EmptyAssistantMessageDropped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, map[string]any{
			"userMessage":      map[string]any{"id": "m3", "role": "user", "content": "hello"},
			"assistantMessage": map[string]any{},
		})
	})

	res, err := client.SendMessage(context.Background(), "c1", "hello", true)
	require.NoError(t, err)
	require.Nil(t, res.AssistantMessage)
}

func TestClient_ToggleInjectedMemory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/conversations/c1/inject-memory/mem1/toggle", r.URL.Path)
		writeEnvelope(w, map[string]any{"memoryId": "mem1", "isActive": false})
	})

	res, err := client.ToggleInjectedMemory(context.Background(), "c1", "mem1")
	require.NoError(t, err)
	require.False(t, res.IsActive)
}

func TestClient_PendingMessageIDRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a pending id")
	})
	err := client.DeleteMessage(context.Background(), "c1", model.NewPendingID())
	require.ErrorIs(t, err, model.ErrPendingID)
}

func TestClient_ListMemoriesQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "neural net", r.URL.Query().Get("search"))
		require.Equal(t, "recent", r.URL.Query().Get("sortBy"))
		writeEnvelope(w, map[string]any{"memories": []map[string]any{{"id": "mem1", "title": "T"}}, "total": 1})
	})

	mems, err := client.ListMemories(context.Background(), "w1", "neural net", "recent")
	require.NoError(t, err)
	require.Len(t, mems, 1)
}

func TestClient_ImportMemoryFromFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "true", r.FormValue("summarize"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "notes.md", hdr.Filename)
		require.Equal(t, "# Notes", string(data))

		writeEnvelope(w, map[string]any{
			"memory":            map[string]any{"id": "mem9", "title": "Notes"},
			"file_type":         "md",
			"original_filename": "notes.md",
			"was_summarized":    true,
		})
	})

	res, err := client.ImportMemoryFromFile(context.Background(), "w1", "notes.md", strings.NewReader("# Notes"), true)
	require.NoError(t, err)
	require.Equal(t, "mem9", res.Memory.ID)
	require.True(t, res.WasSummarized)
}

func TestClient_ExportData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/export", r.URL.Path)
		io.WriteString(w, `{"workspaces":[]}`)
	})

	var buf bytes.Buffer
	n, err := client.ExportData(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.JSONEq(t, `{"workspaces":[]}`, buf.String())
}

func TestClient_ExportDataError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"Authentication credentials were not provided."}`)
	})

	_, err := client.ExportData(context.Background(), io.Discard)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, "Authentication credentials were not provided.", err.Error())
}
