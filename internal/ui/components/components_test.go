// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/store"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

func TestRenderMessage(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	md := NewMarkdown("notty", false)

	out := RenderMessage(theme, md, model.Message{
		ID:       model.ConfirmedID("m7"),
		Role:     model.RoleUser,
		Content:  "hello world",
		IsPinned: true,
	}, 60)
	require.Contains(t, out, "m7")
	require.Contains(t, out, "hello world")
	require.Contains(t, out, styles.Indicators.Pinned)

	pending := model.NewPendingUserMessage("c1", "on its way")
	out = RenderMessage(theme, md, pending, 60)
	require.Contains(t, out, "sending")
	require.NotContains(t, out, pending.ID.String())

	out = RenderMessage(theme, md, model.NewTypingPlaceholder("c1"), 60)
	require.Contains(t, out, "thinking...")
}

func TestRenderConversation_Order(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	md := NewMarkdown("notty", true)
	out := RenderConversation(theme, md, []model.Message{
		{ID: model.ConfirmedID("a"), Role: model.RoleUser, Content: "first"},
		{ID: model.ConfirmedID("b"), Role: model.RoleAssistant, Content: "second"},
	}, 60)
	require.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))
}

func TestMarkdown_PassThrough(t *testing.T) {
	var nilMD *Markdown
	require.Equal(t, "**x**", nilMD.Render("**x**", 40))
	require.Equal(t, "**x**", NewMarkdown("dark", false).Render("**x**", 40))

	out := NewMarkdown("notty", true).Render("# Title\n\nbody", 40)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "body")
}

func TestRenderToastStack(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	require.Empty(t, RenderToastStack(theme, nil, 80))

	kinds := []store.ToastKind{store.ToastSuccess, store.ToastError, store.ToastWarning, store.ToastInfo}
	var toasts []store.Toast
	for i, title := range []string{"one", "two", "three", "four"} {
		toasts = append(toasts, store.Toast{ID: title, Kind: kinds[i], Title: title})
	}
	out := RenderToastStack(theme, toasts, 80)
	require.NotContains(t, out, "one")
	require.Contains(t, out, "four")
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 80)
	}
}

func TestStatusBar_Render(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	bar := StatusBar{
		Workspace:      "Lab",
		Status:         model.StatusActive,
		Polling:        true,
		ActiveMemories: 2,
		IdleRemaining:  -1,
		Hint:           "ctrl+c quit",
	}
	out := bar.Render(theme, 80)
	require.Equal(t, 80, lipgloss.Width(out))
	require.Contains(t, out, "Lab")
	require.Contains(t, out, "live")
	require.Contains(t, out, "2 memories")
	require.NotContains(t, out, "idle")

	bar.Sending = true
	bar.IdleRemaining = 5 * time.Minute
	out = bar.Render(theme, 80)
	require.Contains(t, out, "sending")
	require.NotContains(t, out, "live")
	require.Contains(t, out, "idle")
	require.Contains(t, out, "5m")

	// Too narrow for the hint: it is dropped rather than wrapped.
	out = bar.Render(theme, 30)
	require.NotContains(t, out, "ctrl+c")
}
