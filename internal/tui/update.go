package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/npcctl/internal/domain"
)

// nearBottomThreshold is the scroll percentage (0.0-1.0) at which we consider
// the viewport to be "near" the bottom for auto-follow purposes.
const nearBottomThreshold = 0.98

// formHeight is the number of lines above the log view
const formHeight = 7

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
		m.updateViewport()
		if m.followMode {
			m.viewport.GotoBottom()
		}

	case LogEntryMsg:
		m.handleLogEntry(domain.LogEntry(msg))

	case StateMsg:
		return m.handleState(domain.StateChange(msg))

	case ConnectResultMsg:
		m.busy = false
		m.refreshStatus()
		if msg.Err != nil {
			return m, m.setStatus(connectErrorText(msg.Err), true)
		}
		return m, m.setStatus("connected", false)

	case DisconnectResultMsg:
		m.busy = false
		m.refreshStatus()
		if msg.Err != nil {
			return m, m.setStatus("disconnect failed: "+truncateError(msg.Err, maxErrorDisplayLen), true)
		}
		return m, m.setStatus("disconnected", false)

	case SaveResultMsg:
		if msg.Err != nil {
			return m, m.setStatus("failed to save config: "+truncateError(msg.Err, maxErrorDisplayLen), true)
		}
		return m, m.setStatus("config saved", false)

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusError = false
		}
	}

	var cmd tea.Cmd
	if m.focus < len(m.inputs) {
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	}
	return m, cmd
}

func (m *Model) refreshStatus() {
	info := m.controller.Status()
	m.state = info.State
	m.pid = info.PID
}

// handleState tracks unsolicited transitions reported by the supervisor
func (m Model) handleState(change domain.StateChange) (tea.Model, tea.Cmd) {
	m.state = change.To
	if change.To == domain.ProcessStateRunning {
		m.pid = m.controller.Status().PID
	} else if !change.To.IsActive() {
		m.pid = 0
	}

	switch change.To {
	case domain.ProcessStateExited, domain.ProcessStateCrashed:
		text := "npc client disconnected"
		if change.Exit != nil {
			text = fmt.Sprintf("npc client disconnected (%s, rc=%d)", change.Exit.Status, change.Exit.Code)
		}
		return m, m.setStatus(text, true)
	}
	return m, nil
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		return m, tea.Quit

	case "tab", "down":
		return m, m.setFocus((m.focus + 1) % focusCount)

	case "shift+tab", "up":
		return m, m.setFocus((m.focus + focusCount - 1) % focusCount)

	case "ctrl+s":
		return m, saveCmd(m.store, m.config())

	case "ctrl+t":
		m.toggleKeyVisibility()
		return m, nil

	case "pgup":
		m.viewport.HalfViewUp()
		m.followMode = false
		return m, nil

	case "pgdown":
		m.viewport.HalfViewDown()
		if m.viewport.AtBottom() {
			m.followMode = true
		}
		return m, nil

	case "ctrl+home":
		m.viewport.GotoTop()
		m.followMode = false
		return m, nil

	case "ctrl+end":
		m.viewport.GotoBottom()
		m.followMode = true
		return m, nil
	}

	switch m.focus {
	case focusConnect:
		if msg.String() == "enter" || msg.String() == " " {
			return m.toggleConnection()
		}
		return m, nil

	case focusSave:
		if msg.String() == "enter" || msg.String() == " " {
			return m, saveCmd(m.store, m.config())
		}
		return m, nil

	case focusProtocol:
		if m.locked() {
			return m, nil
		}
		switch msg.String() {
		case "left", "h":
			m.protocol = (m.protocol + len(domain.Protocols) - 1) % len(domain.Protocols)
		case "right", "l", " ", "enter":
			m.protocol = (m.protocol + 1) % len(domain.Protocols)
		}
		return m, nil
	}

	// Text fields
	if msg.String() == "enter" {
		return m, m.setFocus(m.focus + 1)
	}
	if m.locked() {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// toggleConnection connects when idle and disconnects when running.
// Transitional states ignore the toggle.
func (m Model) toggleConnection() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch m.state {
	case domain.ProcessStateStarting, domain.ProcessStateStopping:
		return m, nil
	case domain.ProcessStateRunning:
		m.busy = true
		return m, disconnectCmd(m.controller)
	}
	m.busy = true
	return m, connectCmd(m.controller, m.config().Params())
}

func (m *Model) setFocus(focus int) tea.Cmd {
	if m.focus < len(m.inputs) {
		m.inputs[m.focus].Blur()
	}
	m.focus = focus
	if m.focus < len(m.inputs) {
		return m.inputs[m.focus].Focus()
	}
	return nil
}

func (m *Model) toggleKeyVisibility() {
	m.showKey = !m.showKey
	if m.showKey {
		m.inputs[focusKey].EchoMode = textinput.EchoNormal
	} else {
		m.inputs[focusKey].EchoMode = textinput.EchoPassword
	}
}

// handleWindowSize handles window resize messages
func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	viewportHeight := msg.Height - formHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = newViewport(msg.Width, viewportHeight)
		m.viewport.YPosition = formHeight
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}
}

// handleLogEntry handles a new log entry message
func (m *Model) handleLogEntry(entry domain.LogEntry) {
	var lastSeq uint64
	if n := len(m.logEntries); n > 0 {
		lastSeq = m.logEntries[n-1].Seq
	}
	if entry.Seq != 0 && entry.Seq <= lastSeq {
		return
	}

	// Check if we're at/near bottom BEFORE adding new content
	wasNearBottom := m.isNearBottom()

	m.logEntries = append(m.logEntries, m.missedEntries(lastSeq, entry)...)
	// Keep only last entries - create new slice to release memory from old entries
	if len(m.logEntries) > maxLogEntries {
		newEntries := make([]domain.LogEntry, maxLogEntries)
		copy(newEntries, m.logEntries[len(m.logEntries)-maxLogEntries:])
		m.logEntries = newEntries
	}
	m.updateViewport()

	if wasNearBottom {
		m.followMode = true
	}
	if m.followMode {
		m.viewport.GotoBottom()
	}
}

// missedEntries returns entry preceded by any lines the subscription lost
// after lastSeq. The sink holds them unless they have been evicted. Later
// entries returned by the sink are kept too; their own messages are then
// skipped as duplicates.
func (m *Model) missedEntries(lastSeq uint64, entry domain.LogEntry) []domain.LogEntry {
	if m.logMgr == nil || entry.Seq == 0 || entry.Seq == lastSeq+1 {
		return []domain.LogEntry{entry}
	}
	missed, _, err := m.logMgr.QuerySince(domain.LogFilter{}, lastSeq, maxLogEntries)
	if err != nil || len(missed) == 0 || missed[len(missed)-1].Seq < entry.Seq {
		return []domain.LogEntry{entry}
	}
	return missed
}

// isNearBottom checks if the viewport is at or near the bottom
func (m *Model) isNearBottom() bool {
	if !m.ready || m.viewport.AtBottom() {
		return true
	}
	return m.viewport.ScrollPercent() >= nearBottomThreshold
}
