//go:build !windows

package supervisor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
)

var testParams = domain.ConnectParams{
	ServerAddress: "10.0.0.5",
	Port:          "9000",
	AuthKey:       "abc",
	Protocol:      "udp",
}

// shellPath returns the sh binary or skips the test
func shellPath(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

// writeFakeClient writes an executable npc script into a temp dir and
// returns the directory
func writeFakeClient(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	script := "#!" + shellPath(t) + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npc"), []byte(script), 0755))
	return dir
}

func newTestSupervisor(t *testing.T, dir string, tweak func(*Config)) (*Supervisor, *logs.Manager) {
	t.Helper()
	logMgr := logs.NewManager(logs.ManagerConfig{BufferSize: 1000})

	cfg := DefaultConfig()
	cfg.Executable = "npc"
	cfg.WorkDir = dir
	if tweak != nil {
		tweak(&cfg)
	}

	sup := New(cfg, logMgr, nil, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sup.Close(ctx)
		logMgr.Close()
	})
	return sup, logMgr
}

func waitForLog(t *testing.T, m *logs.Manager, substr string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return countContaining(logLinesAll(m), substr) > 0
	}, 5*time.Second, 20*time.Millisecond, "log line %q never appeared: %v", substr, logLinesAll(m))
}

func waitForState(t *testing.T, sup *Supervisor, want domain.ProcessState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sup.State() == want
	}, 5*time.Second, 20*time.Millisecond, "state never became %s (is %s)", want, sup.State())
}

// stateRecorder collects state changes from a supervisor
type stateRecorder struct {
	mu      sync.Mutex
	changes []domain.StateChange
}

func recordStates(sup *Supervisor) *stateRecorder {
	r := &stateRecorder{}
	sup.OnStateChange(func(c domain.StateChange) {
		r.mu.Lock()
		r.changes = append(r.changes, c)
		r.mu.Unlock()
	})
	return r
}

func (r *stateRecorder) states() []domain.ProcessState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProcessState, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.To)
	}
	return out
}

func (r *stateRecorder) last() (domain.StateChange, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return domain.StateChange{}, false
	}
	return r.changes[len(r.changes)-1], true
}
