// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the SAGE TUI.

All colors use Lip Gloss AdaptiveColor so the palette follows the terminal's
light or dark background. The theme mode can be pinned with the [ui] theme
config key ("auto", "dark", "light").

# Colors (colors.go)

  - Sage - brand color, header and assistant label
  - Cyan - user label and key hints
  - Purple - manifest attachment chips
  - Rose - errors and failed attachments
  - Amber - warnings

Status helpers (RenderSuccess, RenderError) always prefix an ASCII
indicator so state is readable without color.

# Theme (theme.go)

Theme groups the lipgloss styles used by the chat and picker views:

	theme := styles.NewThemeWithMode(cfg.UI.Theme)
	theme.SetSize(width, height)
	chip := theme.Chip.Render("manifest.pdf")
*/
package styles
