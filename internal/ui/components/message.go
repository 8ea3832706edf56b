// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// RenderMessage renders one message: a label line followed by the body.
// Assistant bodies go through md; the typing placeholder renders as a
// single italic line.
func RenderMessage(theme *styles.Theme, md *Markdown, msg model.Message, width int) string {
	if msg.IsTyping() {
		return theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()) + "\n" +
			theme.Typing.Render("thinking...")
	}

	var label string
	switch msg.Role {
	case model.RoleUser:
		label = theme.UserLabel.Render(msg.Role.DisplayName())
	case model.RoleAssistant:
		label = theme.AssistantLabel.Render(msg.Role.DisplayName())
	default:
		label = theme.SystemLabel.Render(msg.Role.DisplayName())
	}

	meta := []string{}
	if msg.IsPinned {
		meta = append(meta, theme.Pinned.Render(styles.Indicators.Pinned))
	}
	if msg.IsPending() {
		meta = append(meta, theme.Pending.Render(styles.Indicators.Pending+" sending"))
	} else {
		meta = append(meta, theme.MessageMeta.Render(msg.ID.String()))
		if !msg.Timestamp.IsZero() {
			meta = append(meta, theme.MessageMeta.Render(msg.Timestamp.Local().Format("15:04")))
		}
	}
	header := label + " " + strings.Join(meta, " ")

	bodyWidth := width - 2
	if bodyWidth < 10 {
		bodyWidth = 10
	}
	body := msg.Content
	if msg.Role == model.RoleAssistant {
		body = md.Render(body, bodyWidth)
	} else {
		body = lipgloss.NewStyle().Width(bodyWidth).Render(body)
	}
	style := theme.MessageBody
	if msg.IsPending() {
		style = style.Inherit(theme.Pending)
	}
	return header + "\n" + style.Render(body)
}

// RenderConversation renders every message separated by blank lines.
func RenderConversation(theme *styles.Theme, md *Markdown, msgs []model.Message, width int) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, RenderMessage(theme, md, msg, width))
	}
	return strings.Join(parts, "\n\n")
}
