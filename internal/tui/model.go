// Package tui is the terminal front end: the connection form, the
// connect toggle and a scrolling view of the log sink.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
)

// maxLogEntries is the maximum number of log entries to keep in memory
const maxLogEntries = 1000

// maxErrorDisplayLen is the maximum length of error messages in the status line
const maxErrorDisplayLen = 80

// opTimeout bounds a connect or disconnect issued from the UI
const opTimeout = 30 * time.Second

// Controller is the part of the supervisor the UI drives
type Controller interface {
	Start(ctx context.Context, params domain.ConnectParams) error
	Stop(ctx context.Context) error
	Status() domain.ProcessInfo
}

// SettingsStore persists the form
type SettingsStore interface {
	Load() (domain.ConnectionConfig, error)
	Save(cfg domain.ConnectionConfig) error
}

// focus targets, in tab order
const (
	focusServer = iota
	focusPort
	focusKey
	focusProtocol
	focusConnect
	focusSave
	focusCount
)

// Model is the bubbletea model for the TUI
type Model struct {
	// Dependencies
	controller Controller
	store      SettingsStore
	logMgr     *logs.Manager // backfills lines the subscription dropped

	// Form
	inputs   [3]textinput.Model // server, port, key
	protocol int
	focus    int
	showKey  bool

	// Client
	state domain.ProcessState
	pid   int
	busy  bool // a connect or disconnect is in flight

	// Status line; seq lets a stale clear leave a newer message alone
	status      string
	statusError bool
	statusSeq   int

	// Logs
	logEntries []domain.LogEntry
	viewport   viewport.Model
	followMode bool

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewModel creates a new TUI model with the form filled from the store.
// Entries already in the sink are shown immediately.
func NewModel(ctrl Controller, store SettingsStore, logMgr *logs.Manager) Model {
	m := Model{
		controller: ctrl,
		store:      store,
		logMgr:     logMgr,
		focus:      focusServer,
		followMode: true,
		state:      ctrl.Status().State,
	}

	placeholders := [3]string{"server address", "port", "auth key"}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 256
		ti.Width = 32
		m.inputs[i] = ti
	}
	m.inputs[focusPort].CharLimit = 5
	m.inputs[focusKey].EchoMode = textinput.EchoPassword
	m.inputs[focusKey].EchoCharacter = '•'
	m.inputs[focusServer].Focus()

	cfg, err := store.Load()
	m.setForm(cfg)
	if err != nil {
		m.status = "settings: " + truncateError(err, maxErrorDisplayLen)
		m.statusError = true
	}

	if logMgr != nil {
		if backlog, _, err := logMgr.Query(domain.LogFilter{}, maxLogEntries); err == nil {
			m.logEntries = backlog
		}
	}

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.status != "" {
		cmds = append(cmds, statusClearCmd(m.statusSeq))
	}
	return tea.Batch(cmds...)
}

// LogEntryMsg is sent when a new log entry arrives
type LogEntryMsg domain.LogEntry

// StateMsg is sent when the supervisor changes state
type StateMsg domain.StateChange

// ConnectResultMsg is sent when a connect operation completes
type ConnectResultMsg struct {
	Err error
}

// DisconnectResultMsg is sent when a disconnect operation completes
type DisconnectResultMsg struct {
	Err error
}

// SaveResultMsg is sent when the settings have been written
type SaveResultMsg struct {
	Err error
}

// statusClearMsg clears the status line if it still shows message seq
type statusClearMsg struct {
	seq int
}

func statusClearCmd(seq int) tea.Cmd {
	return tea.Tick(constants.StatusMessageDuration, func(time.Time) tea.Msg {
		return statusClearMsg{seq: seq}
	})
}

// setStatus shows msg in the status line for a few seconds
func (m *Model) setStatus(msg string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = msg
	m.statusError = isErr
	return statusClearCmd(m.statusSeq)
}

func (m *Model) setForm(cfg domain.ConnectionConfig) {
	m.inputs[focusServer].SetValue(cfg.ServerAddress)
	m.inputs[focusPort].SetValue(cfg.Port)
	m.inputs[focusKey].SetValue(cfg.AuthKey)
	if cfg.ProtocolIndex >= 0 && cfg.ProtocolIndex < len(domain.Protocols) {
		m.protocol = cfg.ProtocolIndex
	} else {
		m.protocol = 0
	}
}

// config returns the settings as currently entered
func (m Model) config() domain.ConnectionConfig {
	return domain.ConnectionConfig{
		ServerAddress: m.inputs[focusServer].Value(),
		Port:          m.inputs[focusPort].Value(),
		AuthKey:       m.inputs[focusKey].Value(),
		ProtocolIndex: m.protocol,
	}
}

// locked reports whether the form is read-only. Fields cannot change while a
// client is running with them.
func (m Model) locked() bool {
	return m.busy || m.state.IsActive()
}

func connectCmd(ctrl Controller, params domain.ConnectParams) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return ConnectResultMsg{Err: ctrl.Start(ctx, params)}
	}
}

func disconnectCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return DisconnectResultMsg{Err: ctrl.Stop(ctx)}
	}
}

func saveCmd(store SettingsStore, cfg domain.ConnectionConfig) tea.Cmd {
	return func() tea.Msg {
		return SaveResultMsg{Err: store.Save(cfg)}
	}
}

// connectErrorText turns a start error into status line text
func connectErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidParams):
		return "please fill in server address, port and auth key"
	case errors.Is(err, domain.ErrAlreadyRunning):
		return "npc client is already running"
	case errors.Is(err, domain.ErrExecutableNotFound):
		return "npc executable not found"
	case errors.Is(err, domain.ErrStartTimeout):
		return "npc client did not start in time"
	default:
		return "connect failed: " + truncateError(err, maxErrorDisplayLen)
	}
}

// truncateError truncates an error message to maxLen characters
func truncateError(err error, maxLen int) string {
	msg := err.Error()
	r := []rune(msg)
	if len(r) <= maxLen {
		return msg
	}
	return string(r[:maxLen-3]) + "..."
}
