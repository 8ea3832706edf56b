// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Lookups, input files and highlighting shared by commands.

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/chimera-cli/internal/model"
)

func goVersion() string { return runtime.Version() }

func platform() string { return runtime.GOOS + "/" + runtime.GOARCH }

// formatBytes formats a byte count for display.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// =============================================================================
// LOOKUPS
// =============================================================================

// resolveConversation turns a reference into a conversation ID. The
// reference may be an ID, a unique ID prefix or a title (case-insensitive)
// in the current workspace. Unmatched references are returned as given so
// the server decides.
func (e *Env) resolveConversation(ctx context.Context, ref string) (string, error) {
	if _, ok := e.App.Conversations.Get(ref); ok {
		return ref, nil
	}
	ws, err := e.workspace(ctx)
	if err != nil {
		return "", err
	}
	if err := e.App.Conversations.Load(ctx, ws.ID); err != nil {
		return "", err
	}

	convs := e.App.Conversations.ByWorkspace(ws.ID)
	ids := make([]string, len(convs))
	titles := make([]string, len(convs))
	for i, c := range convs {
		ids[i], titles[i] = c.ID, c.Title
	}
	return matchRef("conversation", ref, ids, titles)
}

// resolveMemory is resolveConversation for memories.
func (e *Env) resolveMemory(ctx context.Context, ref string) (string, error) {
	if _, ok := e.App.Memories.Get(ref); ok {
		return ref, nil
	}
	ws, err := e.workspace(ctx)
	if err != nil {
		return "", err
	}
	if err := e.App.Memories.Load(ctx, ws.ID, "", ""); err != nil {
		return "", err
	}

	mems := e.App.Memories.Memories()
	ids := make([]string, len(mems))
	titles := make([]string, len(mems))
	for i, m := range mems {
		ids[i], titles[i] = m.ID, m.Title
	}
	return matchRef("memory", ref, ids, titles)
}

// matchRef finds ref among ids (exact, then unique prefix) and titles.
func matchRef(resource, ref string, ids, titles []string) (string, error) {
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
	}

	var hits []string
	for i, id := range ids {
		if strings.HasPrefix(id, ref) || strings.EqualFold(titles[i], ref) {
			hits = append(hits, id)
		}
	}
	switch len(hits) {
	case 0:
		return ref, nil
	case 1:
		return hits[0], nil
	}
	return "", &ValidationError{
		Field:  resource,
		Value:  ref,
		Reason: fmt.Sprintf("matches %d %s records (%s)", len(hits), resource, strings.Join(hits, ", ")),
	}
}

// messageRef parses a message ID typed by the user.
func messageRef(s string) (model.MessageID, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, model.PendingPrefix) {
		return model.MessageID{}, &ValidationError{Field: "message", Value: s, Reason: "must be a server message ID"}
	}
	return model.ConfirmedID(s), nil
}

// =============================================================================
// INPUT
// =============================================================================

// readContent returns --content, or the contents of --file ("-" is stdin).
func (e *Env) readContent() (string, error) {
	if c := e.Params.Flag("content"); c != "" {
		return c, nil
	}
	path := e.Params.Flag("file")
	if path == "" {
		return "", nil
	}
	if path == "-" {
		data, err := io.ReadAll(e.runner.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// =============================================================================
// HIGHLIGHTING
// =============================================================================

// highlight colors code for the terminal. It returns code unchanged when
// colors are off or highlighting fails.
func highlight(code, language string) string {
	if !ColorsEnabled() {
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
