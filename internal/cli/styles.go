// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// init picks the lipgloss color profile from the terminal. NO_COLOR,
// FORCE_COLOR and piped output are respected.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Violet)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextPrimary).
			MarginTop(1)

	// LabelStyle is 20 cells wide; use Width(0) for tight labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(20)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Green).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Red).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Border)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(styles.Teal)

	InfoStyle = lipgloss.NewStyle().
			Foreground(styles.Blue)
)

// RenderSeparator renders a horizontal rule, 70 cells unless width is given.
func RenderSeparator(width ...int) string {
	w := 70
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("=", w))
}

// RenderStatus renders a bracketed, colored status word.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "connected", "active", "online", "accepted":
		return SuccessStyle.Render("[" + strings.ToUpper(status) + "]")
	case "error", "fail", "failed", "declined":
		return ErrorStyle.Render("[" + strings.ToUpper(status) + "]")
	case "warning", "pending", "away", "completed":
		return WarningStyle.Render("[" + strings.ToUpper(status) + "]")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}

// Success renders a green "[OK] msg" line.
func Success(msg string) string {
	return SuccessStyle.Render(styles.Indicators.Success) + " " + msg
}

// Warning renders an amber "[!] msg" line.
func Warning(msg string) string {
	return WarningStyle.Render(styles.Indicators.Warning) + " " + msg
}
