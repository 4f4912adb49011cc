package watch

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mabhi256/jdiag/internal/diag"
)

type targetItem struct {
	target diag.DiscoveredTarget
}

func (i targetItem) FilterValue() string {
	return fmt.Sprintf("%d %s", i.target.ID, i.target.MainLabel)
}

func (i targetItem) Title() string {
	title := fmt.Sprintf("PID %d: %s", i.target.ID, i.target.MainLabel)
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}

func (i targetItem) Description() string { return i.target.DisplayName }

// selectorModel is a standalone bubbletea program run before attach, when
// the watch command is invoked with no target argument: it lists locally
// discovered JVMs and returns the chosen one's target ID.
type selectorModel struct {
	list   list.Model
	chosen *diag.DiscoveredTarget
}

func newSelectorModel(targets []diag.DiscoveredTarget, width, height int) selectorModel {
	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })

	items := make([]list.Item, len(targets))
	for i, t := range targets {
		items[i] = targetItem{target: t}
	}

	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Select a JVM to watch"
	l.SetShowHelp(true)

	return selectorModel{list: l}
}

func (m selectorModel) Init() tea.Cmd { return nil }

func (m selectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if it, ok := m.list.SelectedItem().(targetItem); ok {
				m.chosen = &it.target
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m selectorModel) View() string {
	return lipgloss.NewStyle().Margin(1, 2).Render(m.list.View())
}

// SelectLocalTarget runs an interactive list over the given targets and
// returns the chosen target's ID. Returns an error if the user quit
// without choosing one.
func SelectLocalTarget(targets []diag.DiscoveredTarget) (int, error) {
	if len(targets) == 1 {
		return targets[0].ID, nil
	}

	model := newSelectorModel(targets, 80, 24)
	program := tea.NewProgram(model, tea.WithAltScreen())
	result, err := program.Run()
	if err != nil {
		return 0, fmt.Errorf("selection TUI error: %w", err)
	}

	final, ok := result.(selectorModel)
	if !ok || final.chosen == nil {
		return 0, fmt.Errorf("no target selected")
	}
	return final.chosen.ID, nil
}
