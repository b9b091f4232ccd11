package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
	"github.com/charliek/npcctl/internal/settings"
)

// mockController records calls in place of the supervisor
type mockController struct {
	mu       sync.Mutex
	state    domain.ProcessState
	startErr error
	started  []domain.ConnectParams
	stops    int
}

func (m *mockController) Status() domain.ProcessInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := domain.ProcessInfo{State: m.state}
	if m.state == domain.ProcessStateRunning {
		info.PID = 4242
		info.StartedAt = time.Now()
		info.Cmd = "npc -server=10.0.0.5:9000 -vkey=*bc -type=udp"
	}
	return info
}

func (m *mockController) Start(ctx context.Context, params domain.ConnectParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if m.state.IsActive() {
		return domain.ErrAlreadyRunning
	}
	m.started = append(m.started, params)
	m.state = domain.ProcessStateRunning
	return nil
}

func (m *mockController) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.state = domain.ProcessStateIdle
	return nil
}

type testEnv struct {
	server     *Server
	controller *mockController
	store      *settings.Store
	logs       *logs.Manager
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	logMgr := logs.NewManager(logs.ManagerConfig{BufferSize: 100, SubscriptionBuffer: 10})
	t.Cleanup(logMgr.Close)

	ctrl := &mockController{state: domain.ProcessStateIdle}
	store := settings.NewStore(t.TempDir(), zap.NewNop())
	handlers := NewHandlers(ctrl, store, logMgr, zap.NewNop())

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &testEnv{
		server:     NewServer(cfg, handlers, zap.NewNop()),
		controller: ctrl,
		store:      store,
		logs:       logMgr,
	}
}
