package statusbar

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFFFFF"))

	activeTabStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF6600")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#555555")).
				Foreground(lipgloss.Color("#CCCCCC")).
				Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	anonStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FFD700")).
			Padding(0, 1)

	statusTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)

	errorTextStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333333")).
			Foreground(lipgloss.Color("#FF5555")).
			Padding(0, 1)

	offlineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#8B0000")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)
)

// Tabs are the view names shown on the left, in order.
var Tabs = []string{"Login", "Register", "Example"}

// Model is the status bar at the bottom of the screen.
type Model struct {
	width      int
	activeTab  string
	username   string
	authed     bool
	statusText string
	isError    bool
	offline    bool
}

// New creates a new status bar.
func New() Model {
	return Model{activeTab: Tabs[0]}
}

// SetSize sets the width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetActiveTab highlights the named view.
func (m *Model) SetActiveTab(name string) {
	m.activeTab = name
}

// SetUser sets the logged-in username.
func (m *Model) SetUser(username string) {
	m.username = username
}

// SetAuthenticated sets the result of the last session check.
func (m *Model) SetAuthenticated(authed bool) {
	m.authed = authed
}

// Authenticated reports the last known session state.
func (m Model) Authenticated() bool {
	return m.authed
}

// SetStatus sets a temporary status message.
func (m *Model) SetStatus(text string, isError bool) {
	m.statusText = text
	m.isError = isError
}

// SetOffline sets the offline indicator.
func (m *Model) SetOffline(offline bool) {
	m.offline = offline
}

// Update is a no-op for the status bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	var tabsStr string
	for _, t := range Tabs {
		if t == m.activeTab {
			tabsStr += activeTabStyle.Render(t)
		} else {
			tabsStr += inactiveTabStyle.Render(t)
		}
	}

	var right string
	if m.offline {
		right += offlineStyle.Render("OFFLINE")
	}
	switch {
	case m.authed && m.username != "":
		right += userStyle.Render(m.username)
	case m.authed:
		right += userStyle.Render("signed in")
	default:
		right += anonStyle.Render("signed out")
	}
	if m.statusText != "" {
		if m.isError {
			right += errorTextStyle.Render(m.statusText)
		} else {
			right += statusTextStyle.Render(m.statusText)
		}
	}

	tabsWidth := lipgloss.Width(tabsStr)
	rightWidth := lipgloss.Width(right)
	gap := m.width - tabsWidth - rightWidth
	if gap < 0 {
		gap = 0
	}
	mid := barStyle.Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, tabsStr, mid, right)
}
