package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/auth"
	"github.com/fragmede/authdesk/internal/config"
	"github.com/fragmede/authdesk/internal/ui/messages"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.SessionCheckInterval = time.Hour

	s, err := auth.NewSession("http://127.0.0.1:1/api", nil)
	require.NoError(t, err)
	a := NewApp(cfg, api.NewClient(s), nil, nil)
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return a
}

func TestAppStartsOnLogin(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, ViewLogin, a.ActiveView())
	assert.Contains(t, a.View(), "Login")
}

func TestAppRegisterAndBack(t *testing.T) {
	a := newTestApp(t)

	a.Update(messages.OpenRegisterMsg{})
	assert.Equal(t, ViewRegister, a.ActiveView())

	a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewLogin, a.ActiveView())
}

func TestAppRegistrationSuccessReturnsToLogin(t *testing.T) {
	a := newTestApp(t)
	a.Update(messages.OpenRegisterMsg{})

	a.Update(messages.RegisterResultMsg{Username: "bob"})
	assert.Equal(t, ViewLogin, a.ActiveView())
	assert.Contains(t, a.View(), bannerRegistered)
}

func TestAppAuthExpiredShowsLogin(t *testing.T) {
	a := newTestApp(t)
	a.Update(messages.LoginResultMsg{Username: "alice"})
	require.Equal(t, ViewExample, a.ActiveView())
	assert.True(t, a.statusBar.Authenticated())

	a.Update(messages.AuthExpiredMsg{})
	assert.Equal(t, ViewLogin, a.ActiveView())
	assert.False(t, a.statusBar.Authenticated())
	assert.Contains(t, a.View(), bannerExpired)
	assert.Empty(t, a.previousViews)
}

func TestAppAuthExpiredDuringLoginKeepsForm(t *testing.T) {
	a := newTestApp(t)
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("alice")})
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("wrong")})
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, a.loginForm.Submitting())

	a.Update(messages.AuthExpiredMsg{})
	assert.Equal(t, ViewLogin, a.ActiveView())
	assert.True(t, a.loginForm.Submitting())
	assert.NotContains(t, a.View(), bannerExpired)

	err := &api.Error{Kind: api.KindAuthExpired, Status: 401, Message: "Incorrect username or password"}
	a.Update(messages.LoginResultMsg{Err: err})
	assert.False(t, a.loginForm.Submitting())
	assert.Contains(t, a.View(), "Incorrect username or password")
	assert.Contains(t, a.View(), "alice")
}

func TestAppAuthStateLost(t *testing.T) {
	a := newTestApp(t)
	a.Update(messages.AuthStateMsg{Authenticated: true})
	a.Update(messages.AuthStateMsg{Authenticated: false})
	assert.False(t, a.statusBar.Authenticated())
	assert.Contains(t, a.View(), "Session lost")
}
