package ui

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/fragmede/authdesk/internal/api"
	"github.com/fragmede/authdesk/internal/cache"
	"github.com/fragmede/authdesk/internal/config"
	"github.com/fragmede/authdesk/internal/monitor"
	"github.com/fragmede/authdesk/internal/ui/example"
	"github.com/fragmede/authdesk/internal/ui/login"
	"github.com/fragmede/authdesk/internal/ui/messages"
	"github.com/fragmede/authdesk/internal/ui/register"
	"github.com/fragmede/authdesk/internal/ui/statusbar"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewLogin ViewType = iota
	ViewRegister
	ViewExample
)

func (v ViewType) String() string {
	return statusbar.Tabs[v]
}

const (
	bannerExpired    = "Your session has expired. Please log in again."
	bannerRegistered = "Registration complete. Please log in."
)

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType

	// Child models
	loginForm    login.Model
	registerForm register.Model
	exampleView  example.Model
	statusBar    statusbar.Model

	// Shared state
	cfg            config.Config
	client         *api.Client
	profiles       example.ProfileCache
	monitor        *monitor.Monitor
	monitorStarted bool
	log            *zap.SugaredLogger

	// Dimensions
	width  int
	height int

	// For passing program reference to monitor
	program *tea.Program
}

// NewApp creates the root application model. db may be nil.
func NewApp(cfg config.Config, client *api.Client, db *cache.DB, log *zap.SugaredLogger) *App {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	a := &App{
		activeView: ViewLogin,
		loginForm:  login.New(client),
		statusBar:  statusbar.New(),
		cfg:        cfg,
		client:     client,
		monitor:    monitor.New(client, cfg.SessionCheckInterval, log),
		log:        log.Named("ui"),
	}
	if db != nil {
		a.profiles = db
	}
	return a
}

// SetProgram stores the tea.Program reference for the background monitor
// and routes the client's auth-expired signal into it.
func (a *App) SetProgram(p *tea.Program) {
	a.program = p
	a.client.OnAuthExpired(func() {
		p.Send(messages.AuthExpiredMsg{})
	})
}

// Init fetches a CSRF token, then restores the saved session and asks the
// server whether it is still good.
func (a *App) Init() tea.Cmd {
	return tea.Sequence(a.fetchToken(), a.tryRestoreSession())
}

func (a *App) fetchToken() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		return messages.TokenFetchedMsg{Token: client.FetchToken(context.Background())}
	}
}

func (a *App) tryRestoreSession() tea.Cmd {
	client := a.client
	log := a.log
	return func() tea.Msg {
		session := client.Session()
		ok, err := session.Load()
		if err != nil {
			log.Warnw("restoring session", "error", err)
		}
		if !ok {
			return messages.AuthStateMsg{Authenticated: false}
		}
		if client.CheckAuth(context.Background()) {
			return messages.SessionRestoredMsg{Username: session.Username()}
		}
		return messages.AuthStateMsg{Authenticated: false}
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := a.contentHeight()
		a.statusBar.SetSize(msg.Width)
		a.loginForm.SetSize(msg.Width, contentHeight)
		a.registerForm.SetSize(msg.Width, contentHeight)
		a.exampleView.SetSize(msg.Width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, Keys.ForceQuit) {
			a.monitor.Stop()
			return a, tea.Quit
		}
		if key.Matches(msg, Keys.Back) {
			if len(a.previousViews) > 0 {
				return a, a.goBack()
			}
			if a.activeView != ViewExample {
				return a, nil
			}
		}
		// Global keys (only when not in text input views).
		if a.activeView == ViewExample {
			switch {
			case key.Matches(msg, Keys.Quit):
				a.monitor.Stop()
				return a, tea.Quit
			case key.Matches(msg, Keys.Login):
				a.openLogin("")
				return a, nil
			case key.Matches(msg, Keys.Register):
				a.openRegister()
				return a, nil
			}
		}

	// View transitions.
	case messages.OpenLoginMsg:
		a.openLogin("")
		return a, nil

	case messages.OpenRegisterMsg:
		a.openRegister()
		return a, nil

	case messages.OpenExampleMsg:
		return a, a.openExample()

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.TokenFetchedMsg:
		if msg.Token == "" {
			a.statusBar.SetStatus("Could not get a CSRF token", true)
		}
		return a, nil

	case messages.SessionRestoredMsg:
		a.statusBar.SetUser(msg.Username)
		a.statusBar.SetAuthenticated(true)
		a.startMonitor()
		cmd := a.openExample()
		a.previousViews = nil
		return a, cmd

	case messages.AuthStateMsg:
		wasAuthed := a.statusBar.Authenticated()
		a.statusBar.SetAuthenticated(msg.Authenticated)
		if wasAuthed && !msg.Authenticated {
			a.statusBar.SetStatus("Session lost", true)
		}
		return a, nil

	case messages.AuthExpiredMsg:
		a.statusBar.SetAuthenticated(false)
		a.statusBar.SetUser("")
		a.previousViews = nil
		// A rejected login also ends in recovery; its own result explains it.
		if a.activeView == ViewLogin && a.loginForm.Submitting() {
			return a, nil
		}
		a.log.Infow("auth expired, returning to login")
		a.openLogin(bannerExpired)
		a.previousViews = nil
		return a, nil

	case messages.LoginResultMsg:
		if msg.Err == nil {
			a.statusBar.SetUser(msg.Username)
			a.statusBar.SetAuthenticated(true)
			a.statusBar.SetStatus("", false)
			a.startMonitor()
			a.loginForm, _ = a.loginForm.Update(msg)
			cmd := a.openExample()
			a.previousViews = nil
			return a, cmd
		}
		// Let login form handle the error.

	case messages.RegisterResultMsg:
		if msg.Err == nil {
			a.openLogin(bannerRegistered)
			a.loginForm.SetUsername(msg.Username)
			a.previousViews = nil
			return a, nil
		}

	case messages.ExampleLoadedMsg:
		a.statusBar.SetOffline(errors.Is(msg.Err, api.ErrNetwork))
		return a, nil

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		if !msg.IsError {
			if url, ok := strings.CutPrefix(msg.Text, "Opening: "); ok {
				go openBrowser(url)
			}
		}
		return a, nil
	}

	// Route to active view.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
		cmds = append(cmds, cmd)
	case ViewRegister:
		a.registerForm, cmd = a.registerForm.Update(msg)
		cmds = append(cmds, cmd)
	case ViewExample:
		a.exampleView, cmd = a.exampleView.Update(msg)
		cmds = append(cmds, cmd)
	}

	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View renders the application.
func (a *App) View() string {
	var content string
	switch a.activeView {
	case ViewLogin:
		content = a.loginForm.View()
	case ViewRegister:
		content = a.registerForm.View()
	case ViewExample:
		content = a.exampleView.View()
	}

	header := HeaderStyle.Render("authdesk") + DimStyle.Render(a.cfg.BaseURL)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, a.statusBar.View())
}

// ActiveView returns the view currently shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

// contentHeight leaves one line for the header and one for the status bar.
func (a *App) contentHeight() int {
	return a.height - 2
}

func (a *App) pushView(v ViewType) {
	if a.activeView == v {
		return
	}
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
	a.statusBar.SetActiveTab(v.String())
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
		a.statusBar.SetActiveTab(a.activeView.String())
	}
	return nil
}

func (a *App) openLogin(banner string) {
	if a.activeView != ViewLogin || banner != "" {
		a.loginForm = login.New(a.client)
		a.loginForm.SetSize(a.width, a.contentHeight())
	}
	a.loginForm.SetBanner(banner)
	a.pushView(ViewLogin)
}

func (a *App) openRegister() {
	a.registerForm = register.New(a.client)
	a.registerForm.SetSize(a.width, a.contentHeight())
	a.pushView(ViewRegister)
}

func (a *App) openExample() tea.Cmd {
	a.exampleView = example.New(a.client, a.profiles, a.client.Session().Username(), a.cfg.ProfileTTL)
	a.exampleView.SetSize(a.width, a.contentHeight())
	a.pushView(ViewExample)
	return a.exampleView.Init()
}

func (a *App) startMonitor() {
	if a.monitorStarted || a.program == nil {
		return
	}
	a.monitorStarted = true
	a.monitor.Start(a.program)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		return
	}
	cmd.Run()
}
