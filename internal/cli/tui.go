package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// ModuleListModel is the bubbletea model for interactive top-module
// selection, used when --top is omitted and the source declares more
// than one module.
type ModuleListModel struct {
	Modules  []string
	Cursor   int
	Selected string
	Height   int
	Offset   int
}

// NewModuleListModel creates a module list model.
func NewModuleListModel(modules []string) ModuleListModel {
	return ModuleListModel{
		Modules: modules,
		Height:  15,
	}
}

func (m ModuleListModel) Init() tea.Cmd {
	return nil
}

func (m ModuleListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Modules)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Modules[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ModuleListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Top Module"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Modules) {
		end = len(m.Modules)
	}
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(cursor + style.Render(m.Modules[i]) + "\n")
	}
	return b.String()
}

// selectModule runs the interactive selection and returns the chosen
// module name, or empty when the user quits.
func selectModule(modules []string) (string, error) {
	model := NewModuleListModel(modules)
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(ModuleListModel); ok {
		return m.Selected, nil
	}
	return "", nil
}
