package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/npcctl/internal/domain"
)

func newViewport(width, height int) viewport.Model {
	return viewport.New(width, height)
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("npcctl  " + stateStyle(m.state).Render(m.stateText())))
	b.WriteString("\n")
	b.WriteString(m.fieldView(focusServer, "Server"))
	b.WriteString(m.fieldView(focusPort, "Port"))
	b.WriteString(m.fieldView(focusKey, "Auth key"))
	b.WriteString(m.protocolView())
	b.WriteString(m.buttonsView())
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	return b.String()
}

func (m Model) stateText() string {
	switch {
	case m.busy && m.state.IsActive():
		return "disconnecting..."
	case m.busy:
		return "connecting..."
	case m.state == domain.ProcessStateRunning && m.pid > 0:
		return fmt.Sprintf("running (pid %d)", m.pid)
	default:
		return m.state.String()
	}
}

func (m Model) label(focus int, text string) string {
	style := labelStyle
	if m.focus == focus {
		style = focusedLabelStyle
	}
	return style.Render(fmt.Sprintf("%-10s", text))
}

func (m Model) fieldView(focus int, text string) string {
	value := m.inputs[focus].View()
	if m.locked() {
		value = dimStyle.Render(value)
	}
	return m.label(focus, text) + value + "\n"
}

func (m Model) protocolView() string {
	var opts []string
	for i, p := range domain.Protocols {
		if i == m.protocol {
			opts = append(opts, selectedStyle.Render("["+p+"]"))
		} else {
			opts = append(opts, dimStyle.Render(" "+p+" "))
		}
	}
	return m.label(focusProtocol, "Protocol") + strings.Join(opts, " ") + "\n"
}

func (m Model) buttonsView() string {
	connectText := "Connect"
	if m.state.IsActive() {
		connectText = "Disconnect"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.button(focusConnect, connectText),
		" ",
		m.button(focusSave, "Save config"),
	) + "\n"
}

func (m Model) button(focus int, text string) string {
	if m.focus == focus {
		return activeButtonStyle.Render(text)
	}
	return buttonStyle.Render(text)
}

func (m Model) statusView() string {
	if m.status == "" {
		return statusStyle.Render(dimStyle.Render("tab: next field  enter: select  ctrl+s: save  ctrl+t: show key  pgup/pgdn: scroll  ctrl+c: quit"))
	}
	if m.statusError {
		return statusStyle.Render(errorStyle.Render(m.status))
	}
	return statusStyle.Render(m.status)
}

// updateViewport updates the viewport content
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	lines := make([]string, 0, len(m.logEntries))
	for _, entry := range m.logEntries {
		lines = append(lines, formatLogEntry(entry))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

// formatLogEntry renders "[timestamp] text" with stream coloring
func formatLogEntry(entry domain.LogEntry) string {
	ts := dimStyle.Render("[" + entry.Timestamp.Format(domain.LogTimeLayout) + "]")
	text := entry.Text()
	switch entry.Stream {
	case domain.StreamStderr:
		text = stderrStyle.Render(text)
	case domain.StreamSystem:
		text = systemStyle.Render(text)
	}
	return ts + " " + text
}

// stateStyle returns style based on client state
func stateStyle(state domain.ProcessState) lipgloss.Style {
	switch state {
	case domain.ProcessStateRunning:
		return runningStyle
	case domain.ProcessStateIdle:
		return stoppedStyle
	case domain.ProcessStateCrashed, domain.ProcessStateExited, domain.ProcessStateFailedToStart:
		return crashedStyle
	case domain.ProcessStateStarting, domain.ProcessStateStopping:
		return startingStyle
	default:
		return lipgloss.NewStyle()
	}
}
