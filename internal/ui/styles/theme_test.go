// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserLabel", theme.UserLabel},
		{"AssistantLabel", theme.AssistantLabel},
		{"Chip", theme.Chip},
		{"ChipError", theme.ChipError},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
		{"PickerBox", theme.PickerBox},
	}
	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style dropped its content", s.name)
		}
	}
}

func TestNewThemeWithMode(t *testing.T) {
	defer lipgloss.SetHasDarkBackground(true)

	if got := NewThemeWithMode("dark").GlamourStyle(); got != "dark" {
		t.Errorf("dark theme glamour style = %q", got)
	}
	if got := NewThemeWithMode("light").GlamourStyle(); got != "light" {
		t.Errorf("light theme glamour style = %q", got)
	}
}

func TestThemeLayoutMode(t *testing.T) {
	theme := NewTheme()
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestStatusRenderersIncludeIndicators(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		prefix string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
	}
	for _, tt := range tests {
		got := tt.render("manifest loaded")
		if !strings.Contains(got, tt.prefix) || !strings.Contains(got, "manifest loaded") {
			t.Errorf("%s: %q missing indicator or message", tt.name, got)
		}
	}
}
