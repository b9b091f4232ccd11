package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
	"github.com/charliek/npcctl/internal/textenc"
)

// Config holds configuration for the supervisor
type Config struct {
	// Executable is the client binary, resolved against WorkDir when relative
	Executable string
	// WorkDir is the client's working directory; empty means the current one
	WorkDir string
	// Env is added to the inherited environment
	Env map[string]string

	StartTimeout     time.Duration
	TerminateTimeout time.Duration
	KillTimeout      time.Duration

	// Decoder converts client output to text; nil means UTF-8
	Decoder *textenc.Decoder
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Executable:       constants.DefaultExecutable(),
		StartTimeout:     constants.DefaultStartTimeout,
		TerminateTimeout: constants.DefaultTerminateTimeout,
		KillTimeout:      constants.DefaultKillTimeout,
	}
}

// Supervisor runs at most one client process at a time.
//
// Start and Stop may be called from any goroutine. State changes are delivered
// to OnStateChange listeners in order on a dedicated goroutine; log lines are
// delivered to OnLogLine listeners synchronously from the goroutine that
// produced them.
type Supervisor struct {
	mu sync.Mutex

	cfg    Config
	runner ProcessRunner
	logs   *logs.Manager
	logger *zap.Logger
	events *dispatcher

	state    domain.ProcessState
	current  *instance
	cmdLine  string
	lastExit *domain.ExitInfo
	lastErr  error
	closed   bool

	// settled is closed when the in-flight Start returns
	settled chan struct{}
	// stopped is closed when the in-flight Stop returns
	stopped chan struct{}
}

// New creates a new supervisor. A nil runner uses os/exec.
func New(cfg Config, logManager *logs.Manager, runner ProcessRunner, logger *zap.Logger) *Supervisor {
	defaults := DefaultConfig()
	if cfg.Executable == "" {
		cfg.Executable = defaults.Executable
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaults.StartTimeout
	}
	if cfg.TerminateTimeout <= 0 {
		cfg.TerminateTimeout = defaults.TerminateTimeout
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = defaults.KillTimeout
	}
	if cfg.Decoder == nil {
		cfg.Decoder = textenc.UTF8()
	}
	if runner == nil {
		runner = NewExecRunner()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Supervisor{
		cfg:    cfg,
		runner: runner,
		logs:   logManager,
		logger: logger,
		events: newDispatcher(),
		state:  domain.ProcessStateIdle,
	}
}

// OnStateChange registers fn for state changes and returns a function
// that removes it
func (s *Supervisor) OnStateChange(fn func(domain.StateChange)) func() {
	return s.events.add(fn)
}

// OnLogLine registers fn for every line written to the log sink and
// returns a function that removes it. fn must not write to the sink.
func (s *Supervisor) OnLogLine(fn func(domain.LogEntry)) func() {
	return s.logs.AddListener(fn)
}

// Log appends a line from the host application to the log sink
func (s *Supervisor) Log(line string) {
	s.logs.System(line)
}

// Logs returns the log sink
func (s *Supervisor) Logs() *logs.Manager {
	return s.logs
}

// State returns the current state
func (s *Supervisor) State() domain.ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether a client process is up
func (s *Supervisor) Running() bool {
	return s.State().IsRunning()
}

// Status returns the current client state. Resource usage is sampled only
// while the client is running.
func (s *Supervisor) Status() domain.ProcessInfo {
	s.mu.Lock()
	info := domain.ProcessInfo{
		State: s.state,
		Cmd:   s.cmdLine,
	}
	if s.lastExit != nil {
		exit := *s.lastExit
		info.LastExit = &exit
	}
	if s.lastErr != nil {
		info.LastError = s.lastErr.Error()
	}
	inst := s.current
	if inst != nil {
		info.PID = inst.proc.PID()
		info.StartedAt = inst.startedAt
	}
	s.mu.Unlock()

	if inst != nil && info.State.IsRunning() && info.PID > 0 {
		usage, err := sampleUsage(info.PID)
		if err != nil {
			s.logger.Debug("sampling client usage", zap.Int("pid", info.PID), zap.Error(err))
		} else {
			info.Usage = usage
		}
	}
	return info
}

// Start launches the client. It is rejected with domain.ErrAlreadyRunning
// while a client is starting, running or stopping. ctx bounds only the
// launch; the client keeps running after ctx is done.
func (s *Supervisor) Start(ctx context.Context, params domain.ConnectParams) error {
	if err := params.Validate(); err != nil {
		s.logs.System("warning: " + err.Error())
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: supervisor is shut down", domain.ErrStartFailed)
	}
	if s.state.IsActive() {
		state := s.state
		s.mu.Unlock()
		s.logs.System("warning: npc client is already running")
		s.logger.Warn("start rejected", zap.String("state", state.String()))
		return domain.ErrAlreadyRunning
	}

	workDir := s.workDir()
	path, err := s.executablePath(workDir)
	if err != nil {
		s.lastErr = err
		s.setStateLocked(domain.ProcessStateFailedToStart, nil, err)
		s.mu.Unlock()
		s.logs.System(fmt.Sprintf("error: %v (it must be in %s)", err, workDir))
		s.logger.Warn("client executable missing", zap.String("path", path), zap.Error(err))
		return err
	}

	spec := LaunchSpec{
		Path: path,
		Args: params.Args(),
		Dir:  workDir,
		Env:  s.cfg.Env,
	}
	cmdLine := formatCommand(s.cfg.Executable, params.MaskedArgs())

	settled := make(chan struct{})
	s.settled = settled
	s.cmdLine = cmdLine
	s.lastErr = nil
	s.setStateLocked(domain.ProcessStateStarting, nil, nil)
	s.mu.Unlock()
	defer close(settled)

	s.logs.System("starting npc client...")
	s.logs.System("command: " + cmdLine)

	proc, err := s.spawn(ctx, spec)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.setStateLocked(domain.ProcessStateFailedToStart, nil, err)
		s.mu.Unlock()
		s.logs.System("error: " + err.Error())
		s.logger.Warn("client failed to start", zap.String("path", path), zap.Error(err))
		return err
	}

	s.logs.System(fmt.Sprintf("npc client started (pid %d)", proc.PID()))
	s.logger.Info("client started", zap.Int("pid", proc.PID()), zap.String("cmd", cmdLine))

	inst := newInstance(proc)
	inst.relay(s.logs, s.cfg.Decoder)

	s.mu.Lock()
	s.current = inst
	s.setStateLocked(domain.ProcessStateRunning, nil, nil)
	s.mu.Unlock()

	go s.monitor(inst)
	return nil
}

type spawnResult struct {
	proc Process
	err  error
}

// spawn starts the process, giving up after StartTimeout. A process that
// appears after we gave up is killed and released.
func (s *Supervisor) spawn(ctx context.Context, spec LaunchSpec) (Process, error) {
	results := make(chan spawnResult, 1)
	go func() {
		proc, err := s.runner.Start(ctx, spec)
		results <- spawnResult{proc: proc, err: err}
	}()

	timer := time.NewTimer(s.cfg.StartTimeout)
	defer timer.Stop()

	select {
	case r := <-results:
		if r.err != nil {
			return nil, domain.NewProcessError(domain.ProcessErrorFailedToStart, r.err)
		}
		return r.proc, nil
	case <-timer.C:
		go s.discardLate(results)
		return nil, domain.NewProcessError(domain.ProcessErrorTimedOut,
			fmt.Errorf("not started within %s", s.cfg.StartTimeout))
	case <-ctx.Done():
		go s.discardLate(results)
		return nil, domain.NewProcessError(domain.ProcessErrorFailedToStart, ctx.Err())
	}
}

func (s *Supervisor) discardLate(results <-chan spawnResult) {
	r := <-results
	if r.proc == nil {
		return
	}
	s.logger.Warn("killing client that started after the start timeout", zap.Int("pid", r.proc.PID()))
	if err := r.proc.Kill(); err != nil {
		s.logger.Debug("kill late client", zap.Error(err))
	}
	r.proc.Wait()
	r.proc.Release()
}

// monitor blocks until the instance exits. Exits during Stop are left for
// Stop to finish; anything else is an unsolicited exit and resets to idle.
func (s *Supervisor) monitor(inst *instance) {
	exit := inst.wait(s.logs)
	s.logs.System(fmt.Sprintf("npc client exited (%s)", describeExit(exit)))

	s.mu.Lock()
	if s.current != inst {
		// Stop already gave up waiting on this instance
		s.mu.Unlock()
		inst.finish(exit)
		return
	}

	if s.state == domain.ProcessStateStopping {
		exit.Requested = true
		s.lastExit = &exit
		s.mu.Unlock()
		inst.finish(exit)
		return
	}

	s.lastExit = &exit
	s.current = nil

	to := domain.ProcessStateExited
	var err error
	if exit.Status == domain.ExitCrash {
		to = domain.ProcessStateCrashed
		err = domain.NewProcessError(domain.ProcessErrorCrashed, fmt.Errorf("rc=%d", exit.Code))
	}
	s.lastErr = err
	s.setStateLocked(to, &exit, err)
	s.setStateLocked(domain.ProcessStateIdle, &exit, err)
	s.mu.Unlock()
	inst.finish(exit)

	if err != nil {
		s.logs.System("process error: " + err.Error())
	}
	s.logs.System("npc client disconnected")
	s.logger.Info("client exited on its own",
		zap.Int("rc", exit.Code),
		zap.String("status", string(exit.Status)))
}

// Stop terminates the client: a graceful request first, a forced kill if it
// has not exited within TerminateTimeout, then a best-effort wait of
// KillTimeout. It always ends idle. Stop is a no-op without a client;
// concurrent calls wait for the first. Cancelling ctx skips straight to the
// kill.
func (s *Supervisor) Stop(ctx context.Context) error {
	for {
		s.mu.Lock()
		switch s.state {
		case domain.ProcessStateStarting:
			settled := s.settled
			s.mu.Unlock()
			select {
			case <-settled:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		case domain.ProcessStateStopping:
			stopped := s.stopped
			s.mu.Unlock()
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		case domain.ProcessStateRunning:
			s.stopLocked(ctx)
			return nil
		default:
			s.mu.Unlock()
			return nil
		}
	}
}

// stopLocked is called with s.mu held and releases it
func (s *Supervisor) stopLocked(ctx context.Context) {
	inst := s.current
	stopped := make(chan struct{})
	s.stopped = stopped
	s.setStateLocked(domain.ProcessStateStopping, nil, nil)
	s.mu.Unlock()
	defer close(stopped)

	s.logs.System("stopping npc client...")
	if err := inst.proc.Terminate(); err != nil {
		s.logger.Debug("terminate client", zap.Error(err))
	}

	if !waitDone(ctx, inst.done, s.cfg.TerminateTimeout) {
		s.logs.System("warning: npc client did not exit, forcing it to stop")
		if err := inst.proc.Kill(); err != nil {
			s.logger.Debug("kill client", zap.Error(err))
		}
		if !waitDone(context.Background(), inst.done, s.cfg.KillTimeout) {
			s.logger.Warn("client still alive after kill, releasing it", zap.Int("pid", inst.proc.PID()))
			inst.proc.Release()
		}
	}

	exit, _ := inst.exited()

	s.mu.Lock()
	s.current = nil
	s.setStateLocked(domain.ProcessStateIdle, exit, nil)
	s.mu.Unlock()

	s.logs.System("npc client stopped")
	s.logger.Info("client stopped")
}

// Close stops the client and releases the supervisor. Start fails afterwards.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Stop(ctx)
	s.events.close()
	return err
}

// setStateLocked records a transition and queues it for listeners.
// Callers hold s.mu.
func (s *Supervisor) setStateLocked(to domain.ProcessState, exit *domain.ExitInfo, err error) {
	from := s.state
	s.state = to
	s.events.push(domain.StateChange{
		From:      from,
		To:        to,
		Timestamp: time.Now(),
		Exit:      exit,
		Err:       err,
	})
}

func (s *Supervisor) workDir() string {
	if s.cfg.WorkDir != "" {
		return s.cfg.WorkDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// executablePath resolves the client binary and checks that it exists
func (s *Supervisor) executablePath(workDir string) (string, error) {
	path := s.cfg.Executable
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, fmt.Errorf("%w: %s", domain.ErrExecutableNotFound, path)
	}
	return path, nil
}

// waitDone waits for done up to timeout or until ctx ends
func waitDone(ctx context.Context, done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func formatCommand(exe string, args []string) string {
	return exe + " " + strings.Join(args, " ")
}
