package login

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/ui/eyes"
	"github.com/fragmede/authdesk/internal/ui/messages"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	bannerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true).
			Padding(1, 0)
)

const (
	inputWidth = 30
	formWidth  = inputWidth + 2 // textinput prompt "> "

	// Rows from the eyes' center down to the username input, following View.
	usernameRow = 7
)

// ErrNotAccepted is returned when login succeeded but the server does not
// accept the new session on check-auth.
var ErrNotAccepted = errors.New("logged in, but the session was not accepted")

// Model is the login form view.
type Model struct {
	usernameInput textinput.Model
	passwordInput textinput.Model
	focusIndex    int
	eyes          eyes.Model
	err           string
	banner        string
	submitting    bool
	client        *api.Client
	width         int
	height        int
}

// New creates a new login form.
func New(client *api.Client) Model {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "username"
	usernameInput.Focus()
	usernameInput.Width = inputWidth

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.Width = inputWidth

	m := Model{
		usernameInput: usernameInput,
		passwordInput: passwordInput,
		client:        client,
	}
	if client != nil {
		m.usernameInput.SetValue(client.Session().Username())
		m.usernameInput.CursorEnd()
	}
	m.track()
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetBanner shows text above the form, e.g. why the user was sent here.
func (m *Model) SetBanner(text string) {
	m.banner = text
}

// SetUsername prefills the username field.
func (m *Model) SetUsername(username string) {
	m.usernameInput.SetValue(username)
	m.usernameInput.CursorEnd()
	if username != "" {
		m.focusIndex = 0
		m.toggleFocus()
	}
	m.track()
}

// Submitting reports whether a login request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// track points the eyes at the cursor of the focused input.
func (m *Model) track() {
	if m.focusIndex == 1 {
		m.eyes.Look(0, 0, true)
		return
	}
	caret := 2 + m.usernameInput.Position()
	m.eyes.Look(caret-formWidth/2, usernameRow, false)
}

func (m *Model) toggleFocus() {
	if m.focusIndex == 0 {
		m.focusIndex = 1
		m.usernameInput.Blur()
		m.passwordInput.Focus()
	} else {
		m.focusIndex = 0
		m.passwordInput.Blur()
		m.usernameInput.Focus()
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			m.toggleFocus()
			m.track()
			return m, nil
		case "ctrl+r":
			return m, func() tea.Msg { return messages.OpenRegisterMsg{} }
		case "ctrl+g":
			if m.client == nil {
				return m, nil
			}
			url := m.client.GoogleLoginURL()
			return m, func() tea.Msg { return messages.StatusMsg{Text: "Opening: " + url} }
		case "enter":
			if m.submitting {
				return m, nil
			}
			if m.focusIndex == 0 && m.passwordInput.Value() == "" {
				m.toggleFocus()
				m.track()
				return m, nil
			}
			username := strings.TrimSpace(m.usernameInput.Value())
			password := m.passwordInput.Value()
			if username == "" || password == "" {
				m.err = "Username and password required"
				return m, nil
			}
			m.submitting = true
			m.err = ""
			return m, loginCmd(m.client, username, password)
		}

	case messages.LoginResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = api.Message(msg.Err, "Login failed")
			m.passwordInput.SetValue("")
			return m, nil
		}
		m.banner = ""
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	m.track()
	return m, cmd
}

// loginCmd posts the credentials and then confirms the new session the way
// a fresh page load would, with check-auth.
func loginCmd(client *api.Client, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := client.Login(ctx, username, password); err != nil {
			return messages.LoginResultMsg{Err: err}
		}
		if !client.CheckAuth(ctx) {
			return messages.LoginResultMsg{Err: ErrNotAccepted}
		}
		return messages.LoginResultMsg{Username: username}
	}
}

// View renders the login form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(lipgloss.PlaceHorizontal(formWidth, lipgloss.Center, m.eyes.View()))
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Login"))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Username:"))
	sb.WriteString("\n")
	sb.WriteString(m.usernameInput.View())
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("Password:"))
	sb.WriteString("\n")
	sb.WriteString(m.passwordInput.View())
	sb.WriteString("\n\n")

	if m.banner != "" {
		sb.WriteString(bannerStyle.Render(m.banner))
		sb.WriteString("\n\n")
	}
	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString("Logging in...")
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " to submit, " +
			focusedStyle.Render("ctrl+r") + " register, " +
			focusedStyle.Render("ctrl+g") + " Google, " +
			focusedStyle.Render("Esc") + " to cancel")
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
