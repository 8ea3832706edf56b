// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/app"
)

// =============================================================================
// ARG PARSING
// =============================================================================

func TestParseArgs_GlobalFlagsAnywhere(t *testing.T) {
	args, err := ParseArgs([]string{"--json", "Memories", "list", "-w", "Lab", "--sort", "title", "-q"})
	require.NoError(t, err)

	assert.True(t, args.JSON)
	assert.True(t, args.Quiet)
	assert.Equal(t, "Lab", args.Workspace)
	assert.Equal(t, "memories", args.Command)
	assert.Equal(t, []string{"list", "--sort", "title"}, args.Rest)
}

func TestParseArgs_HelpAndVersion(t *testing.T) {
	args, err := ParseArgs([]string{"--help"})
	require.NoError(t, err)
	assert.Equal(t, "help", args.Command)

	args, err = ParseArgs([]string{"send", "--help"})
	require.NoError(t, err)
	assert.Equal(t, "send", args.Command)
	assert.Equal(t, []string{"--help"}, args.Rest)

	args, err = ParseArgs([]string{"--version"})
	require.NoError(t, err)
	assert.Equal(t, "version", args.Command)
}

func TestParseArgs_DoubleDashStopsGlobalParsing(t *testing.T) {
	args, err := ParseArgs([]string{"send", "c1", "--", "--json", "is", "text"})
	require.NoError(t, err)
	assert.False(t, args.JSON)

	p := NewArgParser(args.Rest)
	assert.Equal(t, []string{"c1", "--json", "is", "text"}, p.PositionalFrom(0))
}

func TestParseArgs_MissingValue(t *testing.T) {
	_, err := ParseArgs([]string{"--workspace"})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestArgParser(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		switches []string
		check    func(t *testing.T, p *ArgParser)
	}{
		{
			name: "flag with value and equals form",
			raw:  []string{"list", "--sort", "title", "--search=go lang"},
			check: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "list", p.Subcommand())
				assert.Equal(t, "title", p.Flag("sort"))
				assert.Equal(t, "go lang", p.Flag("search"))
			},
		},
		{
			name:     "switch does not swallow the next argument",
			raw:      []string{"c1", "--no-ai", "hello", "there"},
			switches: []string{"no-ai"},
			check: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("no-ai"))
				assert.Equal(t, "hello there", JoinPositionalArgs(p, 1))
			},
		},
		{
			name: "unknown flag at the end is boolean",
			raw:  []string{"delete", "c1", "--yes"},
			check: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("yes"))
				assert.Equal(t, 2, p.PositionalCount())
			},
		},
		{
			name: "negative numbers are values",
			raw:  []string{"search", "--top-k", "-3"},
			check: func(t *testing.T, p *ArgParser) {
				_, err := p.FlagInt("top-k")
				require.NoError(t, err)
				assert.Equal(t, -3, p.FlagIntOrDefault("top-k", 5))
			},
		},
		{
			name: "bad integer is a validation error",
			raw:  []string{"show", "--limit", "ten"},
			check: func(t *testing.T, p *ArgParser) {
				_, err := p.FlagInt("limit")
				var valErr *ValidationError
				require.ErrorAs(t, err, &valErr)
				assert.Equal(t, "limit", strings.TrimLeft(valErr.Field, "-"))
			},
		},
		{
			name: "require reports the missing argument",
			raw:  []string{"rename"},
			check: func(t *testing.T, p *ArgParser) {
				_, err := p.Require(1, "conversation", "chimera conversations rename <conversation> <title>")
				require.Error(t, err)
				assert.Contains(t, err.Error(), "conversation")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, NewArgParser(tt.raw, tt.switches...))
		})
	}
}

func TestParseBoolStringAndSplitList(t *testing.T) {
	for _, s := range []string{"on", "YES", "true", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	v, err := ParseBoolString("off")
	require.NoError(t, err)
	assert.False(t, v)
	_, err = ParseBoolString("maybe")
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b c"}, SplitList(" a, ,b c "))
	assert.Empty(t, SplitList(""))
}

// =============================================================================
// OUTPUT
// =============================================================================

func TestTable_AlignsWideCharacters(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("ID", "TITLE", "N")
	tbl.Add("c1", "日本語", "1")
	tbl.Add("c22", "abc", "2")
	tbl.Render(&buf, "empty")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	// "日本語" is six cells wide, so the last column starts at the same cell
	// offset on both rows.
	assert.Equal(t, "c1   日本語  1", lines[1])
	assert.Equal(t, "c22  abc     2", lines[2])
}

func TestTable_TruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("TEXT")
	tbl.Add(strings.Repeat("x", 100))
	tbl.Render(&buf, "")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, maxCellWidth, len(lines[1]))
	assert.True(t, strings.HasSuffix(lines[1], "..."))
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewTable("A").Render(&buf, "Nothing here.")
	assert.Equal(t, "Nothing here.\n", buf.String())
}

func TestJSONErrorResponse(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "memories", &ValidationError{Field: "--sort", Value: "size", Reason: "unknown"}, true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "memories", resp.Command)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Details["error_type"])
	assert.Equal(t, "--sort", resp.Details["field"])
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{&UsageError{Message: "x"}, ExitUsageError},
		{ErrMissingArgument("id", "usage"), ExitUsageError},
		{app.ErrNotSignedIn, ExitAuthError},
		{fmt.Errorf("wrapped: %w", api.ErrUnauthorized), ExitAuthError},
		{ErrNotFound("memory", "m1"), ExitNotFoundError},
		{api.ErrNotFound, ExitNotFoundError},
		{context.DeadlineExceeded, ExitTimeoutError},
		{&api.Error{Kind: api.KindTransport, Message: "down"}, ExitNetworkError},
		{errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetExitCode(tt.err), "%v", tt.err)
	}
}

func TestMatchRef(t *testing.T) {
	ids := []string{"c-alpha", "c-beta", "d-gamma"}
	titles := []string{"Standup", "Retro", "Standup notes"}

	id, err := matchRef("conversation", "c-beta", ids, titles)
	require.NoError(t, err)
	assert.Equal(t, "c-beta", id)

	id, err = matchRef("conversation", "d-", ids, titles)
	require.NoError(t, err)
	assert.Equal(t, "d-gamma", id)

	id, err = matchRef("conversation", "retro", ids, titles)
	require.NoError(t, err)
	assert.Equal(t, "c-beta", id)

	_, err = matchRef("conversation", "c-", ids, titles)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)

	id, err = matchRef("conversation", "zzz", ids, titles)
	require.NoError(t, err)
	assert.Equal(t, "zzz", id)
}

func TestMessageRef_RejectsPending(t *testing.T) {
	_, err := messageRef("temp-123")
	assert.Error(t, err)
	id, err := messageRef("m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", id.Value())
}

func TestMarkdownTitle(t *testing.T) {
	assert.Equal(t, "Field Notes", markdownTitle("intro\n\n## Field Notes\n\ntext"))
	assert.Equal(t, "", markdownTitle("no headings"))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "due now", formatRemaining(0))
	assert.Equal(t, "5m", formatRemaining(5*time.Minute))
	assert.Equal(t, "2h 1m", formatRemaining(2*time.Hour+time.Minute))
	assert.Equal(t, "3d 4h 0m", formatRemaining(76*time.Hour))
}

// =============================================================================
// END TO END
// =============================================================================

// backend is a fake Chimera server that records the requests it sees.
type backend struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	calls   []string
	bodies  map[string]map[string]any
	deletes int
}

func envelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": data, "error": nil})
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{t: t, bodies: make(map[string]map[string]any)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		body := b.record(r)
		if body["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "data": nil, "error": "Invalid credentials"})
			return
		}
		envelope(w, map[string]any{
			"token":   "tok-1",
			"refresh": "ref-1",
			"user":    map[string]any{"id": "u1", "name": "Ada", "email": "ada@example.com"},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		envelope(w, nil)
	})
	mux.HandleFunc("GET /workspaces", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		envelope(w, map[string]any{
			"workspaces": []map[string]any{{"id": "w1", "name": "Lab"}, {"id": "w2", "name": "Garage"}},
			"total":      2,
		})
	})
	mux.HandleFunc("GET /workspaces/w1/conversations", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		envelope(w, map[string]any{
			"conversations": []map[string]any{{"id": "c1", "workspaceId": "w1", "title": "Notes", "status": "active", "modelId": "gpt-4o"}},
			"total":         1,
		})
	})
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		envelope(w, map[string]any{
			"id": "c1", "workspaceId": "w1", "title": "Notes", "status": "active", "modelId": "gpt-4o",
			"messages": []map[string]any{
				{"id": "m1", "conversationId": "c1", "role": "user", "content": "hi", "timestamp": "2025-01-01T00:00:00Z"},
			},
		})
	})
	mux.HandleFunc("DELETE /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		b.mu.Lock()
		b.deletes++
		b.mu.Unlock()
		envelope(w, nil)
	})
	mux.HandleFunc("POST /conversations/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		body := b.record(r)
		envelope(w, map[string]any{
			"userMessage":      map[string]any{"id": "m2", "conversationId": "c1", "role": "user", "content": body["content"], "timestamp": "2025-01-01T00:00:01Z"},
			"assistantMessage": map[string]any{"id": "m3", "conversationId": "c1", "role": "assistant", "content": "hey there", "timestamp": "2025-01-01T00:00:02Z"},
		})
	})
	mux.HandleFunc("POST /workspaces/w1/memories", func(w http.ResponseWriter, r *http.Request) {
		body := b.record(r)
		envelope(w, map[string]any{
			"id": "mem-1", "workspaceId": "w1", "title": body["title"], "content": body["content"],
			"metadata": body["metadata"], "createdAt": "2025-01-01T00:00:00Z", "updatedAt": "2025-01-01T00:00:00Z",
		})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) record(r *http.Request) map[string]any {
	key := r.Method + " " + r.URL.Path
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, key)
	b.bodies[key] = body
	return body
}

func (b *backend) body(key string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

func (b *backend) called(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == key {
			return true
		}
	}
	return false
}

// harness runs chimera against the fake backend with an isolated home.
type harness struct {
	t       *testing.T
	backend *backend
	home    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := newBackend(t)
	home := t.TempDir()
	t.Setenv("CHIMERA_HOME", home)
	t.Setenv("CHIMERA_API_URL", b.server.URL)
	t.Setenv("CHIMERA_PASSWORD", "")
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, backend: b, home: home}
}

func (h *harness) run(stdin string, argv ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	r := &Runner{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: &errOut,
		ClientOptions: []api.Option{
			api.WithRetryBackoff(time.Millisecond),
			api.WithRateLimit(0, 0),
		},
	}
	code = r.Run(context.Background(), argv)
	return code, out.String(), errOut.String()
}

func (h *harness) login() {
	h.t.Helper()
	code, out, errOut := h.run("", "login", "--email", "ada@example.com", "--password", "hunter2")
	require.Equal(h.t, ExitSuccess, code, errOut)
	require.Contains(h.t, out, "Signed in as Ada <ada@example.com>")
}

func TestRun_HelpAndUnknownCommand(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "conversations")
	assert.Contains(t, out, "Global flags:")

	code, _, errOut := h.run("", "frobnicate")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "frobnicate")
}

func TestRun_CommandsRequireSignIn(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("", "--json", "workspaces", "list")
	assert.Equal(t, ExitAuthError, code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Success)
}

func TestRun_LoginRejectsBadPassword(t *testing.T) {
	h := newHarness(t)
	code, _, errOut := h.run("", "login", "--email", "ada@example.com", "--password", "nope")
	assert.Equal(t, ExitAuthError, code)
	assert.Contains(t, errOut, "Invalid credentials")
}

func TestRun_SessionPersistsBetweenInvocations(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, out, errOut := h.run("", "--json", "workspaces", "list")
	require.Equal(t, ExitSuccess, code, errOut)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Workspaces []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"workspaces"`
			ActiveID string `json:"activeId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Workspaces, 2)
	assert.Equal(t, "w1", resp.Data.ActiveID)

	code, _, errOut = h.run("", "logout")
	require.Equal(t, ExitSuccess, code, errOut)
	code, _, _ = h.run("", "workspaces")
	assert.Equal(t, ExitAuthError, code)
}

func TestRun_WhoamiReportsSession(t *testing.T) {
	h := newHarness(t)
	h.login()

	whoami := func() UserData {
		t.Helper()
		code, out, errOut := h.run("", "--json", "whoami")
		require.Equal(t, ExitSuccess, code, errOut)
		var resp struct {
			Data UserData `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data
	}

	data := whoami()
	require.NotNil(t, data.User)
	assert.Equal(t, "ada@example.com", data.User.Email)
	assert.True(t, strings.HasPrefix(data.SessionID, "sess_"))
	assert.Nil(t, data.IdleTimeoutIn, "no idle timeout configured")

	code, _, errOut := h.run("", "config", "set", "session.idle_timeout_mins", "30")
	require.Equal(t, ExitSuccess, code, errOut)

	data = whoami()
	require.NotNil(t, data.IdleTimeoutIn)
	assert.InDelta(t, 1800, *data.IdleTimeoutIn, 5)
}

func TestRun_SendByTitlePrintsReply(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, out, errOut := h.run("", "-q", "send", "notes", "--no-ai=false", "what's", "new?")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "hey there\n", out)

	body := h.backend.body("POST /conversations/c1/messages")
	require.NotNil(t, body)
	assert.Equal(t, "what's new?", body["content"])
	assert.Equal(t, true, body["getAiResponse"])
}

func TestRun_SendNoAI(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, _, errOut := h.run("", "send", "c1", "--no-ai", "ping")
	require.Equal(t, ExitSuccess, code, errOut)
	body := h.backend.body("POST /conversations/c1/messages")
	assert.Equal(t, "ping", body["content"])
	assert.Equal(t, false, body["getAiResponse"])
}

func TestRun_SendRejectsEmptyMessage(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, _, errOut := h.run("", "send", "c1", "   ")
	assert.NotEqual(t, ExitSuccess, code)
	assert.NotEmpty(t, errOut)
	assert.False(t, h.backend.called("POST /conversations/c1/messages"))
}

func TestRun_DestructiveCommandNeedsYesWithoutTTY(t *testing.T) {
	h := newHarness(t)
	h.login()

	code, _, errOut := h.run("y\n", "conversations", "delete", "c1")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "--yes")
	assert.False(t, h.backend.called("DELETE /conversations/c1"))

	code, _, errOut = h.run("", "conversations", "delete", "c1", "--yes")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.True(t, h.backend.called("DELETE /conversations/c1"))
}

func TestRun_ImportHTMLConvertsToMarkdown(t *testing.T) {
	h := newHarness(t)
	h.login()

	page := filepath.Join(t.TempDir(), "notes.html")
	html := `<html><body><h1>Field Notes</h1><p>Hello <strong>world</strong></p></body></html>`
	require.NoError(t, os.WriteFile(page, []byte(html), 0o600))

	code, out, errOut := h.run("", "--json", "memories", "import-file", page)
	require.Equal(t, ExitSuccess, code, errOut)

	body := h.backend.body("POST /workspaces/w1/memories")
	require.NotNil(t, body)
	assert.Equal(t, "Field Notes", body["title"])
	assert.Contains(t, body["content"], "**world**")
	assert.NotContains(t, body["content"], "<strong>")
	meta, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "html", meta["file_type"])
	assert.Equal(t, "notes.html", meta["original_filename"])

	var resp JSONResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
}

func TestRun_ConfigSetAndGet(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.run("", "config", "set", "ui.theme", "light")
	require.Equal(t, ExitSuccess, code, errOut)

	code, out, errOut := h.run("", "config", "get", "ui.theme")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Equal(t, "light\n", out)

	code, _, _ = h.run("", "config", "set", "no.such.key", "1")
	assert.Equal(t, ExitUsageError, code)

	_, err := os.Stat(filepath.Join(h.home, "config.toml"))
	assert.NoError(t, err)
}
