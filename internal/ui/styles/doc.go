// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the colors and Lip Gloss styles of the terminal UI.
//
// Colors are lipgloss.AdaptiveColor values so they follow the terminal's
// background. A Theme can force light or dark rendering when detection gets
// it wrong (for example inside tmux).
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.UserLabel.Render("You"))
package styles
