package monitor

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fragmede/authdesk/internal/ui/messages"
)

// Checker reports whether the server still accepts the session.
// *api.Client implements it.
type Checker interface {
	CheckAuth(ctx context.Context) bool
}

// Sender delivers messages to the TUI. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Monitor periodically checks the session in the background so an expiry
// shows up in the status bar before the user's next action hits it.
type Monitor struct {
	client   Checker
	interval time.Duration
	log      *zap.SugaredLogger

	program Sender
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu    sync.Mutex
	known bool // whether last has been set
	last  bool
}

// New creates a new background session watcher.
func New(client Checker, interval time.Duration, log *zap.SugaredLogger) *Monitor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Monitor{
		client:   client,
		interval: interval,
		log:      log.Named("monitor"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background polling loop.
func (m *Monitor) Start(program Sender) {
	m.program = program
	m.wg.Add(1)
	go m.loop()
}

// Stop halts the background polling and waits for an in-progress check.
// It is safe to call more than once.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	authed := m.client.CheckAuth(ctx)

	select {
	case <-m.stopCh:
		return
	default:
	}

	m.mu.Lock()
	changed := !m.known || m.last != authed
	m.last, m.known = authed, true
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.Infow("session state changed", "authenticated", authed)
	if m.program != nil {
		m.program.Send(messages.AuthStateMsg{Authenticated: authed})
	}
}
