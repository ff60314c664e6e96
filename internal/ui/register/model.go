package register

import (
	"context"
	"slices"
	"sort"
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
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true).
			Padding(1, 0)
)

const (
	inputWidth = 30
	formWidth  = inputWidth + 2

	// Eyes center to the first input line; each field takes three rows
	// plus one per inline error above it.
	firstFieldRow = 7
	fieldRows     = 3
)

type field struct {
	key      string // wire name, also the key of server field errors
	label    string
	password bool
}

var fields = []field{
	{key: "username", label: "Username:"},
	{key: "password", label: "Password:", password: true},
	{key: "email", label: "Email:"},
	{key: "date_of_birth", label: "Date of birth:"},
}

// Model is the registration form view.
type Model struct {
	inputs      []textinput.Model
	focusIndex  int
	eyes        eyes.Model
	fieldErrors map[string]string
	err         string
	submitting  bool
	client      *api.Client
	width       int
	height      int
}

// New creates a new registration form.
func New(client *api.Client) Model {
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		in := textinput.New()
		in.Placeholder = f.key
		in.Width = inputWidth
		if f.password {
			in.EchoMode = textinput.EchoPassword
		}
		inputs[i] = in
	}
	inputs[3].Placeholder = "YYYY-MM-DD"
	inputs[0].Focus()

	m := Model{inputs: inputs, client: client}
	m.track()
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Submitting reports whether a registration request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// FieldError returns the server's error for a field, if any.
func (m Model) FieldError(key string) string {
	return m.fieldErrors[key]
}

// Request collects the form values.
func (m Model) Request() api.RegisterRequest {
	return api.RegisterRequest{
		Username:    strings.TrimSpace(m.inputs[0].Value()),
		Password:    m.inputs[1].Value(),
		Email:       strings.TrimSpace(m.inputs[2].Value()),
		DateOfBirth: strings.TrimSpace(m.inputs[3].Value()),
	}
}

func (m *Model) focus(i int) {
	m.inputs[m.focusIndex].Blur()
	m.focusIndex = (i + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focusIndex].Focus()
	m.track()
}

func (m *Model) track() {
	if fields[m.focusIndex].password {
		m.eyes.Look(0, 0, true)
		return
	}
	row := firstFieldRow + m.focusIndex*fieldRows
	for _, f := range fields[:m.focusIndex] {
		if m.fieldErrors[f.key] != "" {
			row++
		}
	}
	caret := 2 + m.inputs[m.focusIndex].Position()
	m.eyes.Look(caret-formWidth/2, row, false)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focus(m.focusIndex + 1)
			return m, nil
		case "shift+tab", "up":
			m.focus(m.focusIndex - 1)
			return m, nil
		case "enter":
			if m.submitting {
				return m, nil
			}
			if m.focusIndex < len(m.inputs)-1 {
				m.focus(m.focusIndex + 1)
				return m, nil
			}
			req := m.Request()
			if req.Username == "" || req.Password == "" || req.Email == "" || req.DateOfBirth == "" {
				m.err = "All fields are required"
				return m, nil
			}
			m.submitting = true
			m.err = ""
			m.fieldErrors = nil
			client := m.client
			return m, func() tea.Msg {
				_, err := client.Register(context.Background(), req)
				return messages.RegisterResultMsg{Username: req.Username, Err: err}
			}
		}

	case messages.RegisterResultMsg:
		m.submitting = false
		if msg.Err == nil {
			return m, nil
		}
		if fe := api.FieldErrors(msg.Err); len(fe) > 0 {
			m.fieldErrors = fe
			m.err = unmatchedErrors(fe)
			for i, f := range fields {
				if fe[f.key] != "" {
					m.focus(i)
					break
				}
			}
			return m, nil
		}
		m.err = api.Message(msg.Err, "Registration failed")
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	m.track()
	return m, cmd
}

// unmatchedErrors joins the field errors no input shows, as "key: msg".
func unmatchedErrors(fe map[string]string) string {
	var keys []string
	for k := range fe {
		if !slices.ContainsFunc(fields, func(f field) bool { return f.key == k }) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return strings.Join(parts, "; ")
}

// View renders the registration form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(lipgloss.PlaceHorizontal(formWidth, lipgloss.Center, m.eyes.View()))
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Create an account"))
	sb.WriteString("\n")

	for i, f := range fields {
		label := labelStyle.Render(f.label)
		if i == m.focusIndex {
			label = focusedStyle.Bold(true).Render(f.label)
		}
		sb.WriteString(label)
		sb.WriteString("\n")
		sb.WriteString(m.inputs[i].View())
		sb.WriteString("\n")
		if e := m.fieldErrors[f.key]; e != "" {
			sb.WriteString(errorStyle.Render(e))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString("Registering...")
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " next/submit, " + focusedStyle.Render("Esc") + " to cancel")
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
