//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/charliek/npcctl/internal/domain"
)

// setProcAttr puts the client in its own process group so we can signal
// anything it spawns
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func terminate(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

func kill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(p.Pid)
	if err != nil {
		// Fall back to signalling just the process
		return p.Signal(sig)
	}
	return syscall.Kill(-pgid, sig)
}

func platformExitDetails(exitErr *exec.ExitError) (int, domain.ExitStatus) {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return -int(status.Signal()), domain.ExitCrash
		}
		return status.ExitStatus(), statusForCode(status.ExitStatus())
	}
	return exitErr.ExitCode(), statusForCode(exitErr.ExitCode())
}
