// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chimera-cli/internal/store"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// maxToasts caps how many toasts stack at once; older ones are hidden.
const maxToasts = 3

func toastLook(kind store.ToastKind) (lipgloss.AdaptiveColor, string) {
	switch kind {
	case store.ToastSuccess:
		return styles.Green, styles.Indicators.Success
	case store.ToastError:
		return styles.Red, styles.Indicators.Error
	case store.ToastWarning:
		return styles.Amber, styles.Indicators.Warning
	default:
		return styles.Blue, styles.Indicators.Info
	}
}

// RenderToast renders one toast box at most width columns wide.
func RenderToast(theme *styles.Theme, t store.Toast, width int) string {
	color, mark := toastLook(t.Kind)
	title := lipgloss.NewStyle().Foreground(color).Bold(true).Render(mark + " " + t.Title)
	content := title
	if t.Message != "" {
		content += "\n" + t.Message
	}
	if width > 4 {
		content = lipgloss.NewStyle().MaxWidth(width - 4).Render(content)
	}
	return theme.Toast.BorderForeground(color).Render(content)
}

// RenderToastStack renders the newest toasts right-aligned, newest last.
func RenderToastStack(theme *styles.Theme, toasts []store.Toast, width int) string {
	if len(toasts) == 0 {
		return ""
	}
	if len(toasts) > maxToasts {
		toasts = toasts[len(toasts)-maxToasts:]
	}
	boxWidth := width / 2
	if boxWidth < 30 {
		boxWidth = width
	}
	rendered := make([]string, len(toasts))
	for i, t := range toasts {
		rendered[i] = RenderToast(theme, t, boxWidth)
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}
