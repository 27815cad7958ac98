//go:build windows

package reboot

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// stillActive is the exit code GetExitCodeProcess reports for a running process.
const stillActive = 259

type osSystem struct{}

// Signal terminates the process. Windows has no graceful SIGTERM, so both
// signals end up as TerminateProcess.
func (osSystem) Signal(pid int, _ Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func (osSystem) Alive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

func (osSystem) Chdir(dir string) error {
	return os.Chdir(dir)
}

func (osSystem) Start(spec LaunchSpec) (int, error) {
	if len(spec.Argv) == 0 {
		return 0, classifyStartError(exec.ErrNotFound)
	}
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...) //nolint:gosec // G204: argv comes from operator config
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}

	if err := cmd.Start(); err != nil {
		return 0, classifyStartError(err)
	}

	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

func (osSystem) Sleep(d time.Duration) {
	time.Sleep(d)
}
