// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sage-tui/sage/internal/model"
	"github.com/sage-tui/sage/internal/ui/styles"
	"github.com/sage-tui/sage/internal/util"
)

const (
	headerHeight = 1
	inputHeight  = 3 // bordered single line
	statusHeight = 1
	chipHeight   = 1
)

// =============================================================================
// LAYOUT
// =============================================================================

// SetSize updates the chat dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.layout()
}

func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	vh := m.height - headerHeight - inputHeight - statusHeight
	if m.pending != nil {
		vh -= chipHeight
	}
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vh
	m.input.Width = m.width - 6
	m.updateViewport()
}

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat view.
func (m Model) View() string {
	parts := []string{m.renderHeader(), m.viewport.View()}
	if m.pending != nil {
		parts = append(parts, m.renderPending())
	}
	parts = append(parts,
		m.theme.InputContainer.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.renderStatus(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	left := m.theme.HeaderBrand.Render("SAGE")
	if m.sessionName != "" {
		left += m.theme.HeaderMeta.Render("  " + m.sessionName)
	}
	if m.sessionMeta != "" {
		left += m.theme.HeaderMeta.Render("  " + m.sessionMeta)
	}
	right := m.theme.HeaderMeta.Render(m.modelName)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderPending() string {
	name := util.TruncateWidth(m.pending.Filename, max(m.width/2, 12))
	if !m.pending.OK() {
		return m.theme.ChipError.Render("manifest failed: " + name)
	}
	label := "manifest: " + name
	if m.pending.Truncated {
		label += " (truncated)"
	}
	return m.theme.Chip.Render(label) + m.theme.Pending.Render("  sent with your next message, Esc to drop")
}

func (m Model) renderStatus() string {
	var left string
	switch {
	case m.state == StateStreaming:
		left = m.spinner.View() + " generating..."
	case m.status != "" && m.statusErr:
		left = styles.RenderError(m.status)
	case m.status != "":
		left = styles.RenderSuccess(m.status)
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	hints = append(hints, m.theme.ShortcutKey.Render("C-o")+" "+m.theme.ShortcutDesc.Render("attach"))
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m *Model) renderTranscript() string {
	var sb strings.Builder
	for i, msg := range m.conversation.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(msg))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderMessage(msg *model.Message) string {
	width := max(m.width-4, 20)

	if msg.Role == model.RoleSystem {
		return m.theme.Notice.Width(width).Render(msg.GetDisplayContent())
	}

	var sb strings.Builder
	if msg.Role == model.RoleUser {
		sb.WriteString(m.theme.UserLabel.Render(msg.Role.DisplayName()))
		sb.WriteString("\n")
		if content := msg.GetDisplayContent(); content != "" {
			sb.WriteString(m.theme.UserText.Width(width).Render(content))
			sb.WriteString("\n")
		}
		if msg.Attachment != nil {
			chip := m.theme.Chip
			if msg.Attachment.Failed {
				chip = m.theme.ChipError
			}
			sb.WriteString(chip.Render("manifest: " + msg.Attachment.Filename))
			sb.WriteString("\n")
		}
		return strings.TrimRight(sb.String(), "\n")
	}

	sb.WriteString(m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
	sb.WriteString("\n")
	content := msg.GetDisplayContent()
	if msg.IsStreaming || !m.markdown {
		sb.WriteString(m.theme.AssistantText.Width(width).Render(content))
	} else {
		sb.WriteString(m.renderMarkdown(content, width))
	}
	if stats := msg.FormatStats(); stats != "" {
		sb.WriteString("\n")
		sb.WriteString(m.theme.Stats.Render(stats))
	}
	return sb.String()
}

// renderMarkdown renders finished assistant text with glamour, falling back
// to plain wrapped text when the renderer cannot be built.
func (m *Model) renderMarkdown(content string, width int) string {
	if m.renderer == nil || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			m.renderer = nil
			return m.theme.AssistantText.Width(width).Render(content)
		}
		m.renderer = r
		m.rendererWidth = width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return m.theme.AssistantText.Width(width).Render(content)
	}
	return strings.Trim(out, "\n")
}
