package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
)

// shutdownTimeout bounds the stop issued when the UI exits
const shutdownTimeout = 10 * time.Second

// Supervisor is what Run needs from the process supervisor
type Supervisor interface {
	Controller
	OnStateChange(fn func(domain.StateChange)) func()
}

// Run starts the TUI application. It blocks until the user quits, then
// stops the client if one is still running.
func Run(sup Supervisor, store SettingsStore, logMgr *logs.Manager, logger *zap.Logger, opts ...tea.ProgramOption) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Subscribe before reading the backlog so nothing falls in between;
	// the model drops entries it already holds.
	subID, ch, subErr := logMgr.Subscribe(domain.LogFilter{})
	if subErr != nil {
		logger.Error("subscribing to logs", zap.Error(subErr))
		logMgr.System("error subscribing to logs: " + subErr.Error())
	}

	model := NewModel(sup, store, logMgr)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(model, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	if subErr == nil {
		go forwardLogs(ctx, p, ch)
	}

	// State changes arrive on the supervisor's dispatcher goroutine
	removeState := sup.OnStateChange(func(change domain.StateChange) {
		p.Send(StateMsg(change))
	})

	_, runErr := p.Run()

	// Cleanup: cancel context and unsubscribe
	cancel()
	removeState()
	if subID != "" {
		logMgr.Unsubscribe(subID)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := sup.Stop(stopCtx); err != nil {
		logger.Warn("stopping client on exit", zap.Error(err))
	}

	return runErr
}

// forwardLogs forwards log entries from the subscription channel to the TUI program.
// It exits when the context is cancelled or the channel is closed.
func forwardLogs(ctx context.Context, p *tea.Program, ch <-chan domain.LogEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			p.Send(LogEntryMsg(entry))
		}
	}
}
