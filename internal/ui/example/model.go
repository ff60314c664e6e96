package example

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/cache"
	"github.com/fragmede/authdesk/internal/render"
	"github.com/fragmede/authdesk/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true).Padding(1, 0)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// ProfileCache is the read side of the profile cache. *cache.DB implements
// it.
type ProfileCache interface {
	GetProfile(username string, ttl time.Duration) (*cache.Profile, bool, error)
	LatestProfile(ttl time.Duration) (*cache.Profile, bool, error)
}

type loadedMsg struct {
	Overview *api.Overview
	Stale    *cache.Profile
	Err      error
}

// Model is the protected example resource view.
type Model struct {
	example  *api.ExampleResponse
	stale    *cache.Profile
	authed   bool
	loading  bool
	err      string
	client   *api.Client
	cache    ProfileCache
	username string
	ttl      time.Duration
	width    int
	height   int
}

// New creates a new example view. db may be nil.
func New(client *api.Client, db ProfileCache, username string, ttl time.Duration) Model {
	return Model{
		client:   client,
		cache:    db,
		username: username,
		ttl:      ttl,
	}
}

// Init loads the example resource.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	m.err = ""
	client, db, username, ttl := m.client, m.cache, m.username, m.ttl
	return func() tea.Msg {
		ov, err := client.Overview(context.Background())
		if err == nil {
			return loadedMsg{Overview: ov}
		}
		if !errors.Is(err, api.ErrNetwork) || db == nil {
			return loadedMsg{Err: err}
		}
		// Offline: show the last known profile, marked stale.
		var p *cache.Profile
		if username != "" {
			p, _, _ = db.GetProfile(username, ttl)
		}
		if p == nil {
			p, _, _ = db.LatestProfile(ttl)
		}
		return loadedMsg{Stale: p, Err: err}
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Loading reports whether a fetch is in flight.
func (m Model) Loading() bool {
	return m.loading
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "f", "r":
			if m.loading {
				return m, nil
			}
			cmd := m.Init()
			return m, cmd
		}

	case loadedMsg:
		m.loading = false
		m.stale = msg.Stale
		if msg.Err != nil {
			m.err = api.Message(msg.Err, "Could not load the example resource")
			if !errors.Is(msg.Err, api.ErrNetwork) {
				m.example = nil
			}
			return m, func() tea.Msg {
				return messages.ExampleLoadedMsg{Err: msg.Err}
			}
		}
		m.err = ""
		m.authed = msg.Overview.Authenticated
		m.example = msg.Overview.Example
		authed, ex := m.authed, m.example
		return m, tea.Batch(
			func() tea.Msg { return messages.ExampleLoadedMsg{Example: ex} },
			func() tea.Msg { return messages.AuthStateMsg{Authenticated: authed} },
		)
	}
	return m, nil
}

// View renders the example resource.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Example"))
	sb.WriteString("\n")

	switch {
	case m.loading:
		sb.WriteString("Loading...")
	case m.example != nil:
		writeProfile(&sb, m.wrapWidth(), m.example.Message, m.example.UserInfo.Username, m.example.UserInfo.BankBalance)
		if !m.authed {
			sb.WriteString("\n")
			sb.WriteString(staleStyle.Render("Session check failed after fetch"))
		}
	case m.stale != nil:
		writeProfile(&sb, m.wrapWidth(), m.stale.Message, m.stale.Username, m.stale.BankBalance)
		sb.WriteString("\n")
		sb.WriteString(staleStyle.Render("Offline, showing data from " + render.TimeAgo(m.stale.FetchedAt)))
	}

	if m.err != "" && !m.loading {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.err))
	}

	sb.WriteString("\n\n")
	sb.WriteString(hintStyle.Render("enter/f: fetch   esc: back   q: quit"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}

// wrapWidth keeps long server messages inside a readable column.
func (m Model) wrapWidth() int {
	if m.width <= 0 || m.width > 80 {
		return 60
	}
	return m.width - 20
}

func writeProfile(sb *strings.Builder, width int, message, username string, balance float64) {
	sb.WriteString(labelStyle.Render("Message:"))
	sb.WriteString("\n")
	sb.WriteString(valueStyle.Render(render.Wrap(message, width)))
	sb.WriteString("\n")
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Username: ") + valueStyle.Render(username))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Bank balance: ") + valueStyle.Render(fmt.Sprintf("%.2f", balance)))
}
