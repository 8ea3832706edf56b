// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds every style the chat view renders with.
type Theme struct {
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	MessageMeta    lipgloss.Style
	Pending        lipgloss.Style
	Pinned         lipgloss.Style
	Typing         lipgloss.Style

	// Input
	InputBox      lipgloss.Style
	InputDisabled lipgloss.Style
	InputPrompt   lipgloss.Style

	// Status bar
	StatusBar      lipgloss.Style
	StatusKey      lipgloss.Style
	StatusValue    lipgloss.Style
	StatusActive   lipgloss.Style
	StatusInactive lipgloss.Style

	// Notices
	Toast        lipgloss.Style
	ErrorText    lipgloss.Style
	CommandReply lipgloss.Style
	Spinner      lipgloss.Style
}

// NewTheme builds a theme. mode is "auto", "dark" or "light"; anything else
// is treated as auto.
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))
	t := &Theme{Mode: mode, ColorProfile: termenv.ColorProfile()}

	switch mode {
	case ModeDark:
		t.IsDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		t.IsDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		t.Mode = ModeAuto
		t.IsDark = termenv.HasDarkBackground()
	}

	t.initStyles()
	return t
}

// GlamourStyle names the glamour style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	t.SystemLabel = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.MessageMeta = lipgloss.NewStyle().Foreground(TextMuted)
	t.Pending = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.Pinned = lipgloss.NewStyle().Foreground(Amber)
	t.Typing = lipgloss.NewStyle().Foreground(Violet).Italic(true).PaddingLeft(2)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Teal).
		Padding(0, 1)
	t.InputDisabled = t.InputBox.BorderForeground(Border)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Teal).Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Foreground(TextMuted)
	t.StatusValue = lipgloss.NewStyle().Foreground(TextPrimary)
	t.StatusActive = lipgloss.NewStyle().Foreground(Green).Bold(true)
	t.StatusInactive = lipgloss.NewStyle().Foreground(TextMuted)

	t.Toast = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1)
	t.ErrorText = lipgloss.NewStyle().Foreground(Red)
	t.CommandReply = lipgloss.NewStyle().Foreground(TextSecondary).PaddingLeft(2)
	t.Spinner = lipgloss.NewStyle().Foreground(Violet)
}
