// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/ui/components"
	"github.com/jeranaias/chimera-cli/internal/util"
)

// maxNoticeLines caps command output shown above the input.
const maxNoticeLines = 10

// View renders the screen: header, messages, notice line, input box and
// status bar, with toasts overlaid above the input.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	conv, _ := m.deps.Conversations.Get(m.conversationID)
	notice := m.renderNotice()

	vp := m.viewport
	atBottom := vp.AtBottom()
	vp.Height = m.height - 5 - lipgloss.Height(notice)
	if vp.Height < 1 {
		vp.Height = 1
	}
	if atBottom {
		vp.GotoBottom()
	}
	body := vp.View()
	if m.deps.Toasts != nil {
		if stack := components.RenderToastStack(m.deps.Theme, m.deps.Toasts.List(), m.width); stack != "" {
			body = overlayBottom(body, stack)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(conv),
		body,
		notice,
		m.renderInput(),
		m.renderStatus(conv),
	)
}

func (m Model) renderHeader(conv model.Conversation) string {
	t := m.deps.Theme
	title := conv.Title
	if title == "" {
		title = m.conversationID
	}
	line := t.HeaderTitle.Render(util.TruncateWidth(title, m.width/2))
	if m.deps.WorkspaceName != "" {
		line += " " + t.HeaderSubtitle.Render("in "+m.deps.WorkspaceName)
	}
	if conv.ModelID != "" {
		line += " " + t.HeaderSubtitle.Render("("+conv.ModelID+")")
	}
	return t.Header.Width(m.width).MaxWidth(m.width).Render(line)
}

func (m Model) renderNotice() string {
	t := m.deps.Theme
	var s string
	switch {
	case m.lastErr != nil:
		s = t.ErrorText.Render("error: " + errText(m.lastErr))
	case m.notice != "":
		s = t.CommandReply.Render(m.notice)
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxNoticeLines {
		more := len(lines) - maxNoticeLines + 1
		lines = append(lines[:maxNoticeLines-1], t.MessageMeta.Render("  ... "+util.IntToString(more)+" more"))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderInput() string {
	t := m.deps.Theme
	if m.sending {
		return t.InputDisabled.Width(m.width - 2).Render(m.spinner.View() + " sending...")
	}
	return t.InputBox.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderStatus(conv model.Conversation) string {
	remaining := time.Duration(-1)
	if m.deps.Session != nil {
		remaining = m.deps.Session.RemainingTime()
	}
	bar := components.StatusBar{
		Workspace:      m.deps.WorkspaceName,
		Status:         conv.Status,
		Sending:        m.sending,
		Polling:        m.deps.Poller != nil && conv.IsActive(),
		ActiveMemories: conv.ActiveMemoryCount(),
		IdleRemaining:  remaining,
		Hint:           m.keys.hint(),
	}
	return bar.Render(m.deps.Theme, m.width)
}

// overlayBottom replaces the last lines of base with overlay.
func overlayBottom(base, overlay string) string {
	baseLines := strings.Split(base, "\n")
	overLines := strings.Split(overlay, "\n")
	if len(overLines) >= len(baseLines) {
		return overlay
	}
	copy(baseLines[len(baseLines)-len(overLines):], overLines)
	return strings.Join(baseLines, "\n")
}
