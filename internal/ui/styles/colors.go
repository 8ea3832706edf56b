// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND
// =============================================================================

// Violet is the brand accent: header, assistant label, selections.
var Violet = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}

// Teal marks the user and interactive elements.
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// =============================================================================
// SEMANTIC
// =============================================================================

var (
	Green = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	Red   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	Blue  = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}
)

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var (
	SurfaceDim = lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#18181B"}
	Border     = lipgloss.AdaptiveColor{Light: "#D4D4D8", Dark: "#3F3F46"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#18181B", Dark: "#E4E4E7"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#52525B", Dark: "#A1A1AA"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#A1A1AA", Dark: "#71717A"}
)

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// Indicators pair every status color with an ASCII shape so the UI reads
// without color.
var Indicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
	Pinned  string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[..]",
	Pinned:  "[^]",
}

func indicator(color lipgloss.AdaptiveColor, mark, message string) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(mark + " " + message)
}

// RenderSuccess renders message with the success mark.
func RenderSuccess(message string) string { return indicator(Green, Indicators.Success, message) }

// RenderError renders message with the error mark.
func RenderError(message string) string { return indicator(Red, Indicators.Error, message) }

// RenderWarning renders message with the warning mark.
func RenderWarning(message string) string { return indicator(Amber, Indicators.Warning, message) }

// RenderInfo renders message with the info mark.
func RenderInfo(message string) string { return indicator(Blue, Indicators.Info, message) }
