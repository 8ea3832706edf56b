// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chimera-cli/internal/session"
	"github.com/jeranaias/chimera-cli/internal/ui/components"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case storeChangedMsg:
		m.syncViewport()
		return m, m.bridge.waitForChange()

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.lastErr = msg.err
			m.notice = ""
			m.syncViewport()
			return m, nil
		}
		m.syncViewport()
		m.viewport.GotoBottom()
		return m, m.startPollerCmd()

	case sendDoneMsg:
		m.sending = false
		m.input.Focus()
		if msg.err != nil {
			m.lastErr = msg.err
			if m.deps.Toasts != nil {
				m.deps.Toasts.Error("Message not sent", errText(msg.err))
			}
		}
		m.syncViewport()
		m.viewport.GotoBottom()
		return m, textinput.Blink

	case commandDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.notice = ""
			return m, nil
		}
		if msg.result.Quit {
			return m.quit()
		}
		m.lastErr = nil
		m.notice = msg.result.Output
		m.syncViewport()
		return m, nil

	case PrefsMsg:
		m.deps.Theme = styles.NewTheme(msg.Theme)
		m.deps.Markdown = msg.Markdown
		m.deps.AIResponse = msg.AIResponse
		m.md = components.NewMarkdown(m.deps.Theme.GlamourStyle(), msg.Markdown)
		m.spinner.Style = m.deps.Theme.Spinner
		m.syncViewport()
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		}
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case session.TickMsg:
		if m.deps.Session == nil {
			return m, nil
		}
		return m, m.deps.Session.HandleTick()

	case session.TimeoutWarningMsg:
		if m.deps.Toasts != nil {
			m.deps.Toasts.Warning("Session idle", "Signing out in "+session.FormatDuration(msg.Remaining))
		}
		return m, nil

	case session.TimeoutMsg:
		m.notice = "Session expired after inactivity"
		return m.quit()
	}

	var cmd tea.Cmd
	if !m.sending {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.bridge.close()
	return m, tea.Quit
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.input.Width = msg.Width - 6
	m.viewport.Width = msg.Width
	m.viewport.Height = m.viewportHeight()
	m.ready = true
	m.syncViewport()
	return m, nil
}

// viewportHeight is what is left after the fixed rows: header (1), input
// box (3) and status bar (1). View shrinks it further for notices.
func (m Model) viewportHeight() int {
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}

// syncViewport re-renders the conversation, following the bottom when the
// view was already there.
func (m *Model) syncViewport() {
	atBottom := m.viewport.AtBottom()
	conv, ok := m.deps.Conversations.Get(m.conversationID)
	var content string
	switch {
	case ok && len(conv.Messages) > 0:
		content = components.RenderConversation(m.deps.Theme, m.md, conv.Messages, m.viewport.Width)
	case m.loading:
		content = m.deps.Theme.MessageMeta.Render("Loading conversation...")
	default:
		content = m.deps.Theme.MessageMeta.Render("No messages yet. Say hello.")
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(content))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.deps.Session != nil {
		m.deps.Session.RecordActivity()
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Dismiss):
		m.lastErr = nil
		m.notice = ""
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Complete):
		return m.complete()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if m.sending {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) complete() (tea.Model, tea.Cmd) {
	if m.sending {
		return m, nil
	}
	lines := m.completer.Line(m.input.Value())
	switch len(lines) {
	case 0:
	case 1:
		m.input.SetValue(lines[0] + " ")
		m.input.CursorEnd()
	default:
		comps := m.completer.Complete(m.input.Value())
		names := make([]string, len(comps))
		for i, c := range comps {
			names[i] = c.Value
		}
		m.notice = strings.Join(names, "  ")
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.sending {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.lastErr = nil

	if strings.HasPrefix(text, "/") {
		m.notice = ""
		return m, m.commandCmd(text)
	}

	m.sending = true
	m.notice = ""
	m.input.Blur()
	m.viewport.GotoBottom()
	return m, tea.Batch(m.sendCmd(text), m.spinner.Tick)
}
