// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/session"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// StatusBar is the bottom line of the chat view.
type StatusBar struct {
	Workspace      string
	Status         model.ConversationStatus
	Sending        bool
	Polling        bool
	ActiveMemories int
	// IdleRemaining is negative when no idle timeout is configured.
	IdleRemaining time.Duration
	Hint          string
}

// Render draws the bar at exactly width columns.
func (s StatusBar) Render(theme *styles.Theme, width int) string {
	var left []string
	if s.Workspace != "" {
		left = append(left, theme.StatusKey.Render("ws ")+theme.StatusValue.Render(s.Workspace))
	}
	if s.Status != "" {
		st := theme.StatusInactive
		if s.Status == model.StatusActive {
			st = theme.StatusActive
		}
		left = append(left, st.Render(string(s.Status)))
	}
	if s.Sending {
		left = append(left, theme.Pending.Render("sending"))
	} else if s.Polling {
		left = append(left, theme.StatusKey.Render("live"))
	}
	if s.ActiveMemories > 0 {
		left = append(left, theme.StatusKey.Render(fmt.Sprintf("%d memories", s.ActiveMemories)))
	}
	if s.IdleRemaining >= 0 {
		left = append(left, theme.StatusKey.Render("idle ")+theme.StatusValue.Render(session.FormatDuration(s.IdleRemaining)))
	}

	l := strings.Join(left, theme.StatusKey.Render(" | "))
	r := theme.StatusKey.Render(s.Hint)

	inner := width - theme.StatusBar.GetHorizontalFrameSize()
	gap := inner - lipgloss.Width(l) - lipgloss.Width(r)
	if gap < 1 {
		r = ""
		gap = inner - lipgloss.Width(l)
		if gap < 0 {
			gap = 0
		}
	}
	return theme.StatusBar.Width(width).MaxWidth(width).Render(l + strings.Repeat(" ", gap) + r)
}
