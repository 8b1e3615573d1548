package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/shipr/internal/errors"
)

// TargetInfo describes a configured target for display in the picker.
type TargetInfo struct {
	Name    string // Target name from config (e.g., "prod")
	Address string // user@host:port
	Key     string // Key name
}

// targetItem implements list.Item for the Bubbles list component.
type targetItem struct {
	target TargetInfo
}

func (i targetItem) Title() string {
	return i.target.Name
}

func (i targetItem) Description() string {
	parts := []string{i.target.Address}
	if i.target.Key != "" {
		parts = append(parts, "key "+i.target.Key)
	}
	return strings.Join(parts, " | ")
}

func (i targetItem) FilterValue() string {
	return i.target.Name + " " + i.target.Address
}

// TargetPickerModel is a Bubble Tea model for selecting a target.
type TargetPickerModel struct {
	list     list.Model
	selected *TargetInfo
	quitting bool
}

type targetPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var targetPickerKeys = targetPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewTargetPickerModel creates a new target picker model.
func NewTargetPickerModel(targets []TargetInfo) TargetPickerModel {
	items := make([]list.Item, len(targets))
	for i, t := range targets {
		items[i] = targetItem{target: t}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Select a target"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = MutedStyle()

	return TargetPickerModel{list: l}
}

// Init implements tea.Model.
func (m TargetPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TargetPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let the list handle keys while the user is typing a filter.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, targetPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(targetItem); ok {
				m.selected = &item.target
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, targetPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m TargetPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the selected target, or nil if cancelled.
func (m TargetPickerModel) Selected() *TargetInfo {
	return m.selected
}

// PickTarget displays an interactive picker on the terminal.
// Returns nil if the user cancels (ESC/q/Ctrl+C).
func PickTarget(targets []TargetInfo) (*TargetInfo, error) {
	return PickTargetWithIO(targets, os.Stdout, os.Stdin)
}

// PickTargetWithIO displays the target picker using custom I/O.
func PickTargetWithIO(targets []TargetInfo, output io.Writer, input io.Reader) (*TargetInfo, error) {
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No targets to pick from",
			"Add a target under 'targets:' in .shipr.yaml, or pass user@host with --key.")
	}
	if len(targets) == 1 {
		return &targets[0], nil
	}

	p := tea.NewProgram(NewTargetPickerModel(targets), tea.WithOutput(output), tea.WithInput(input))
	finalModel, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Target picker failed",
			"Pass the target name as an argument instead.")
	}

	if m, ok := finalModel.(TargetPickerModel); ok {
		return m.Selected(), nil
	}
	return nil, nil
}
