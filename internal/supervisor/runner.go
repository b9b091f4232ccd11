// Package supervisor owns the lifecycle of the single npc client process:
// starting it with the connection arguments, relaying its output into the log
// sink, detecting when it exits on its own and tearing it down on request.
//
// # Security Model
//
// The client is executed directly (no shell) with arguments built from the
// connection settings. The auth key is passed on the command line, as the
// client requires, so it is visible to other local users through the process
// table. Logged command lines mask it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/charliek/npcctl/internal/domain"
)

// LaunchSpec describes how to launch the client
type LaunchSpec struct {
	Path string
	Args []string
	Dir  string
	Env  map[string]string
}

// ProcessRunner creates and starts processes
type ProcessRunner interface {
	Start(ctx context.Context, spec LaunchSpec) (Process, error)
}

// Process represents a running process
type Process interface {
	PID() int
	// Wait blocks until the process exits. It does not close the output streams.
	Wait() error
	// Terminate asks the process to exit
	Terminate() error
	// Kill forces the process to exit
	Kill() error
	Stdout() io.Reader
	Stderr() io.Reader
	// Release closes the output streams, unblocking any pending reads
	Release()
}

// ExecRunner implements ProcessRunner using os/exec
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Start starts a new process. The process lifetime is not bound to ctx;
// ctx only aborts a launch that has not happened yet.
func (r *ExecRunner) Start(ctx context.Context, spec LaunchSpec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir

	// Set up environment
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Manual pipes instead of cmd.StdoutPipe so Wait does not close the read
	// side while output is still being drained
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, fmt.Errorf("starting %s: %w", spec.Path, err)
	}

	// The child holds its own copies of the write ends
	stdoutW.Close()
	stderrW.Close()

	return &execProcess{
		cmd:    cmd,
		stdout: stdoutR,
		stderr: stderrR,
	}, nil
}

// execProcess wraps exec.Cmd to implement Process interface
type execProcess struct {
	cmd         *exec.Cmd
	stdout      *os.File
	stderr      *os.File
	releaseOnce sync.Once
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return terminate(p.cmd.Process)
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return kill(p.cmd.Process)
}

func (p *execProcess) Stdout() io.Reader {
	return p.stdout
}

func (p *execProcess) Stderr() io.Reader {
	return p.stderr
}

func (p *execProcess) Release() {
	p.releaseOnce.Do(func() {
		p.stdout.Close()
		p.stderr.Close()
	})
}

// exitDetails converts the result of Wait into an exit code and status.
// Termination by signal is reported as a negative signal number.
func exitDetails(err error) (int, domain.ExitStatus) {
	if err == nil {
		return 0, domain.ExitNormal
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return platformExitDetails(exitErr)
	}
	return 1, domain.ExitAbnormal
}

func statusForCode(code int) domain.ExitStatus {
	if code == 0 {
		return domain.ExitNormal
	}
	return domain.ExitAbnormal
}
