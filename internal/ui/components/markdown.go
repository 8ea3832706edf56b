// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant content with glamour. It rebuilds the
// underlying renderer when the wrap width changes and falls back to the raw
// text when rendering fails.
type Markdown struct {
	mu       sync.Mutex
	style    string
	width    int
	renderer *glamour.TermRenderer
	disabled bool
}

// NewMarkdown returns a renderer using a glamour standard style ("dark",
// "light" or "notty"). enabled=false passes text through.
func NewMarkdown(style string, enabled bool) *Markdown {
	return &Markdown{style: style, disabled: !enabled}
}

// Render renders content wrapped at width columns.
func (m *Markdown) Render(content string, width int) string {
	if m == nil || m.disabled || strings.TrimSpace(content) == "" {
		return content
	}
	if width < 20 {
		width = 20
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		m.renderer = r
		m.width = width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
