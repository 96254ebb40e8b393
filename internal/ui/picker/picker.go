// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package picker

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sage-tui/sage/internal/logging"
	"github.com/sage-tui/sage/internal/manifest"
	"github.com/sage-tui/sage/internal/ui/styles"
)

// Options configures a picker Model.
type Options struct {
	// Root is the configured browse root. Invalid values fall back to the
	// default root under Home.
	Root string

	// Home overrides the user's home directory.
	Home string

	// Watch enables refreshing the listing when the directory changes.
	Watch bool

	Logger *zap.Logger
}

// KeyMap defines the picker's own bindings. Navigation keys belong to the
// embedded filepicker.
type KeyMap struct {
	Cancel     key.Binding
	ToggleRoot key.Binding
}

// DefaultKeyMap returns the default picker bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close"),
		),
		ToggleRoot: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "edit root"),
		),
	}
}

// =============================================================================
// PICKER MODEL
// =============================================================================

// Model is the manifest picker: a directory browser plus an editable root.
type Model struct {
	theme    *styles.Theme
	ingester *manifest.Ingester
	logger   *zap.Logger
	keys     KeyMap

	files     filepicker.Model
	rootInput textinput.Model
	editRoot  bool
	root      string

	watcher *Watcher

	width  int
	height int
}

// New creates a picker rooted at opts.Root, or at manifest.DefaultRoot for
// the home directory when no valid root is configured.
func New(theme *styles.Theme, ingester *manifest.Ingester, opts Options) Model {
	if theme == nil {
		theme = styles.NewTheme()
	}
	if ingester == nil {
		ingester = manifest.NewIngester(nil, 0, opts.Logger)
	}

	root, ok := manifest.ResolveRoot(opts.Root)
	if !ok {
		if opts.Home != "" {
			root = manifest.DefaultRoot(opts.Home)
		} else {
			root = manifest.UserDefaultRoot()
		}
	}

	fp := filepicker.New()
	fp.CurrentDirectory = root
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.Height = 15
	// Esc closes the picker instead of walking up.
	fp.KeyMap.Back = key.NewBinding(
		key.WithKeys("h", "backspace", "left"),
		key.WithHelp("h", "back"),
	)

	ti := textinput.New()
	ti.Prompt = "Root: "
	ti.CharLimit = 1024
	ti.SetValue(root)

	m := Model{
		theme:     theme,
		ingester:  ingester,
		logger:    logging.OrNop(opts.Logger),
		keys:      DefaultKeyMap(),
		files:     fp,
		rootInput: ti,
		root:      root,
	}

	if opts.Watch {
		w, err := NewWatcher(DefaultDebounce, opts.Logger)
		if err != nil {
			m.logger.Warn("directory watch unavailable", zap.Error(err))
		} else {
			m.watcher = w
			if err := w.Watch(root); err != nil {
				m.logger.Warn("watch root failed", zap.String("root", root), zap.Error(err))
			}
		}
	}
	return m
}

// Root returns the current browse root.
func (m Model) Root() string { return m.root }

// CurrentDirectory returns the directory being listed.
func (m Model) CurrentDirectory() string { return m.files.CurrentDirectory }

// EditingRoot reports whether the root input has focus.
func (m Model) EditingRoot() bool { return m.editRoot }

// SetSize updates the picker dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	h := height - 6
	if h < 3 {
		h = 3
	}
	m.files.Height = h
	m.rootInput.Width = width - 12
}

// Close releases the directory watcher.
func (m *Model) Close() error {
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Close()
	m.watcher = nil
	return err
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init reads the root directory and starts listening for changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.files.Init()}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Next())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case FileSelectedMsg:
		// Ingest runs inline: extraction is local file I/O only.
		res := m.ingester.Ingest(msg.Path)
		return m, func() tea.Msg {
			return IngestedMsg{Path: msg.Path, Result: res}
		}

	case DirChangedMsg:
		var cmds []tea.Cmd
		if filepath.Clean(msg.Dir) == filepath.Clean(m.files.CurrentDirectory) {
			cmds = append(cmds, m.files.Init())
		}
		if m.watcher != nil {
			cmds = append(cmds, m.watcher.Next())
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.editRoot {
			m.editRoot = false
			m.rootInput.Blur()
			m.rootInput.SetValue(m.root)
			return m, nil
		}
		return m, func() tea.Msg { return CancelledMsg{} }

	case key.Matches(msg, m.keys.ToggleRoot):
		m.editRoot = !m.editRoot
		if m.editRoot {
			return m, m.rootInput.Focus()
		}
		m.rootInput.Blur()
		return m, nil
	}

	if m.editRoot {
		if msg.Type == tea.KeyEnter {
			return m.submitRoot()
		}
		var cmd tea.Cmd
		m.rootInput, cmd = m.rootInput.Update(msg)
		return m, cmd
	}

	prevDir := m.files.CurrentDirectory
	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)

	if ok, path := m.files.DidSelectFile(msg); ok {
		return m, tea.Batch(cmd, func() tea.Msg { return FileSelectedMsg{Path: path} })
	}
	if m.files.CurrentDirectory != prevDir {
		m.watch(m.files.CurrentDirectory)
	}
	return m, cmd
}

// submitRoot applies the typed root. Invalid candidates are ignored.
func (m Model) submitRoot() (Model, tea.Cmd) {
	root, ok := manifest.ResolveRoot(m.rootInput.Value())
	if !ok {
		return m, nil
	}
	m.root = root
	m.rootInput.SetValue(root)
	m.rootInput.Blur()
	m.editRoot = false
	m.files.CurrentDirectory = root
	m.watch(root)
	m.logger.Debug("browse root changed", zap.String("root", root))
	return m, tea.Batch(
		m.files.Init(),
		func() tea.Msg { return RootChangedMsg{Root: root} },
	)
}

func (m *Model) watch(dir string) {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.Watch(dir); err != nil {
		m.logger.Debug("watch failed", zap.String("dir", dir), zap.Error(err))
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the picker.
func (m Model) View() string {
	title := m.theme.PickerTitle.Render("Attach a manifest")
	root := m.theme.PickerRoot.Render(m.rootInput.View())
	hint := m.theme.PickerHint.Render("Enter select  h/Backspace up  Tab edit root  Esc close")

	body := lipgloss.JoinVertical(lipgloss.Left, title, root, "", m.files.View(), hint)
	if m.width > 0 {
		return m.theme.PickerBox.Width(m.width - 2).Render(body)
	}
	return m.theme.PickerBox.Render(body)
}
