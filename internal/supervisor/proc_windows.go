//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/charliek/npcctl/internal/domain"
)

// exceptionExitCode is the lowest NTSTATUS error value; exit codes at or above
// it mean the process died from an unhandled exception
const exceptionExitCode = 0xC0000000

// setProcAttr gives the client its own console process group so it can be
// sent CTRL_BREAK without affecting npcctl
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}

// terminate sends CTRL_BREAK to the client's process group. Without a shared
// console that is impossible and the client is killed instead.
func terminate(p *os.Process) error {
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(p.Pid)); err != nil {
		return p.Kill()
	}
	return nil
}

func kill(p *os.Process) error {
	return p.Kill()
}

func platformExitDetails(exitErr *exec.ExitError) (int, domain.ExitStatus) {
	return classifyExitCode(exitErr.ExitCode())
}

// classifyExitCode treats NTSTATUS error values as crashes
func classifyExitCode(code int) (int, domain.ExitStatus) {
	if uint32(code) >= exceptionExitCode {
		return code, domain.ExitCrash
	}
	return code, statusForCode(code)
}
