package watch

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mabhi256/jdiag/internal/diag"
	"github.com/mabhi256/jdiag/utils"
)

// Model is the live-watch dashboard's bubbletea model, driven entirely by
// a *diag.Session instead of the polling logic it owns internally: the
// session's PollingEngine already runs on its own goroutine, Model only
// ever reads from Session.Store() and drains Session.Events().
type Model struct {
	session *diag.Session

	width, height int
	activeTab     TabType
	scrollPositions map[TabType]int

	help help.Model
	keys KeyMap

	lastEvent    diag.Event
	hasEvent     bool
	disconnected bool

	done chan struct{}
}

type eventMsg diag.Event

// NewModel builds a dashboard model attached to an already-running
// session (built via diag.Attach).
func NewModel(session *diag.Session) *Model {
	return &Model{
		session:         session,
		activeTab:       TabMemory,
		scrollPositions: make(map[TabType]int),
		help:            help.New(),
		keys:            keys,
		done:            make(chan struct{}),
	}
}

// StartTUI runs the dashboard to completion (until the user quits or the
// session disconnects and the user acknowledges it).
func StartTUI(session *diag.Session) error {
	model := NewModel(session)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return waitForEvent(m.session.Events(), m.done)
}

func waitForEvent(events *diag.EventChannel, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		events.Wait(done)
		ev, ok := events.Recv()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.applyEvent(diag.Event(msg))
		return m, waitForEvent(m.session.Events(), m.done)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyEvent(ev diag.Event) {
	m.lastEvent = ev
	m.hasEvent = true
	switch ev.Kind {
	case diag.EventDisconnected:
		m.disconnected = true
	case diag.EventUpdated:
		m.disconnected = false
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		close(m.done)
		m.session.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Detach):
		close(m.done)
		m.session.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab), key.Matches(msg, m.keys.Right):
		m.activeTab = nextTab(m.activeTab)
		return m, nil
	case key.Matches(msg, m.keys.Left):
		m.activeTab = prevTab(m.activeTab)
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.scrollUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.scrollDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.scrollUp(10)
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.scrollDown(10)
		return m, nil
	}
	return m, nil
}

func nextTab(t TabType) TabType {
	return utils.GetNextEnum(t, TabSystem)
}

func prevTab(t TabType) TabType {
	return utils.GetPrevEnum(t, TabSystem)
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	header := m.renderHeader()
	tabBar := m.renderTabBar()
	helpView := m.help.View(m.keys)

	headerHeight := lipgloss.Height(header)
	tabBarHeight := lipgloss.Height(tabBar)
	helpHeight := lipgloss.Height(helpView)

	contentHeight := max(m.height-headerHeight-tabBarHeight-helpHeight, 1)

	fullContent := m.renderActiveTab()
	scrolledContent := m.applyScrolling(fullContent, contentHeight)
	content := lipgloss.NewStyle().Height(contentHeight).Render(scrolledContent)

	return lipgloss.JoinVertical(lipgloss.Left, header, tabBar, content, helpView)
}

func (m *Model) renderActiveTab() string {
	snap := m.session.Store().Snapshot()
	switch m.activeTab {
	case TabMemory:
		return RenderMemoryTab(snap, m.session.Store(), m.width)
	case TabGC:
		return RenderGCTab(snap, m.session.Store(), m.width)
	case TabThreads:
		return RenderThreadsTab(snap, m.width)
	case TabSystem:
		return RenderSystemTab(snap, m.session, m.width)
	default:
		return CriticalStyle.Render("Unknown tab")
	}
}

func (m *Model) renderHeader() string {
	profile := m.session.Profile()
	title := fmt.Sprintf("jdiag watch — %s", profileLabel(profile))

	status := GoodStyle.Render("● attached")
	if m.disconnected {
		status = CriticalStyle.Render("● disconnected")
	} else if m.hasEvent && m.lastEvent.Kind == diag.EventError {
		status = WarningStyle.Render(fmt.Sprintf("● warning: %s", m.lastEvent.Message))
	}

	line := HeaderStyle.Render(title) + "  " + status
	return lipgloss.NewStyle().Width(m.width).Render(line)
}

func profileLabel(p diag.Profile) string {
	switch p.Kind {
	case diag.ProfileLocal:
		return fmt.Sprintf("local:%d", p.TargetID)
	case diag.ProfileRemoteShell:
		return fmt.Sprintf("%s@%s:%d (pid %d)", p.User, p.Host, p.Port, p.TargetID)
	case diag.ProfileRemoteHTTP:
		return p.URL
	default:
		return "unknown target"
	}
}

func (m *Model) renderTabBar() string {
	var rendered []string
	for _, tab := range GetAllTabs() {
		if tab == m.activeTab {
			rendered = append(rendered, TabActiveStyle.Render(tab.String()))
		} else {
			rendered = append(rendered, TabInactiveStyle.Render(tab.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
