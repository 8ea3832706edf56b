// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_Modes(t *testing.T) {
	tests := []struct {
		in       string
		wantMode string
		wantDark *bool
	}{
		{"dark", ModeDark, ptr(true)},
		{" LIGHT ", ModeLight, ptr(false)},
		{"auto", ModeAuto, nil},
		{"neon", ModeAuto, nil},
	}
	for _, tt := range tests {
		theme := NewTheme(tt.in)
		if theme.Mode != tt.wantMode {
			t.Errorf("NewTheme(%q).Mode = %q, want %q", tt.in, theme.Mode, tt.wantMode)
		}
		if tt.wantDark != nil && theme.IsDark != *tt.wantDark {
			t.Errorf("NewTheme(%q).IsDark = %v", tt.in, theme.IsDark)
		}
	}
}

func TestTheme_GlamourStyle(t *testing.T) {
	theme := NewTheme(ModeDark)
	got := theme.GlamourStyle()
	if got != "dark" && got != "notty" {
		t.Errorf("GlamourStyle = %q", got)
	}
	theme = NewTheme(ModeLight)
	if got := theme.GlamourStyle(); got != "light" && got != "notty" {
		t.Errorf("GlamourStyle = %q", got)
	}
}

func TestRenderHelpers_KeepIndicators(t *testing.T) {
	tests := []struct {
		fn   func(string) string
		mark string
	}{
		{RenderSuccess, Indicators.Success},
		{RenderError, Indicators.Error},
		{RenderWarning, Indicators.Warning},
		{RenderInfo, Indicators.Info},
	}
	for _, tt := range tests {
		out := tt.fn("saved")
		if !strings.Contains(out, tt.mark) || !strings.Contains(out, "saved") {
			t.Errorf("rendered %q, want mark %q and message", out, tt.mark)
		}
	}
}

func ptr(b bool) *bool { return &b }
